package procutil

import (
	"os/user"
	"strconv"
)

// UserResolver maps a numeric owner id to a username.
type UserResolver interface {
	Username(uid uint32) (string, bool)
}

type accountUsers struct {
	cache map[uint32]string
}

// NewUserResolver looks uids up in the system account database, caching
// both hits and misses for the lifetime of one scan.
func NewUserResolver() UserResolver {
	return &accountUsers{cache: make(map[uint32]string)}
}

func (a *accountUsers) Username(uid uint32) (string, bool) {
	if name, has := a.cache[uid]; has {
		return name, name != ""
	}

	name := ""
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		name = u.Username
	}
	a.cache[uid] = name
	return name, name != ""
}

// StaticUsers is a fixed uid table.
type StaticUsers map[uint32]string

func (s StaticUsers) Username(uid uint32) (string, bool) {
	name, ok := s[uid]
	return name, ok && name != ""
}
