package procutil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/cprobe/swordfish/config"
	"github.com/cprobe/swordfish/logger"
	"github.com/cprobe/swordfish/types"
)

// MaxNameLen bounds the short command name kept in a record.
const MaxNameLen = 255

// StateZombie is the state code of a process that exited but was not reaped.
const StateZombie = "Z"

var errEmpty = errors.New("empty attribute")

// Table is a read-only view of the process table keyed by pid. Every
// per-process accessor may fail transiently; only PIDs failing is fatal.
type Table interface {
	PIDs() ([]int, error)
	Name(pid int) (string, error)
	UID(pid int) (uint32, error)
	// State returns the one-letter state code, e.g. "R", "S" or "Z".
	State(pid int) (string, error)
	Cmdline(pid int) (string, error)
	Threads(pid int) (int, error)
}

// OpenTable builds the process table backend named by source.
func OpenTable(source, root string) (Table, error) {
	switch source {
	case config.SourceProcfs:
		return NewProcfsTable(root)
	case config.SourceGopsutil:
		return NewGopsutilTable(), nil
	default:
		return NewOsProcTable(root), nil
	}
}

type Reader struct {
	table Table
	users UserResolver
}

func NewReader(table Table, users UserResolver) *Reader {
	if users == nil {
		users = NewUserResolver()
	}
	return &Reader{table: table, users: users}
}

// Scan walks the process table once and calls visit for every readable
// process in discovery order. A non-nil error from visit stops the walk.
func (r *Reader) Scan(visit func(types.ProcessRecord) error) error {
	pids, err := r.table.PIDs()
	if err != nil {
		return fmt.Errorf("failed to read process table: %w", err)
	}

	scanned := 0
	for _, pid := range pids {
		rec, ok := r.record(pid)
		if !ok {
			continue
		}
		scanned++
		if err := visit(rec); err != nil {
			return err
		}
	}

	logger.Logger.Debugw("process table scanned", "entries", len(pids), "readable", scanned)
	return nil
}

// Enumerate returns every readable process in discovery order.
func (r *Reader) Enumerate() ([]types.ProcessRecord, error) {
	var out []types.ProcessRecord
	err := r.Scan(func(rec types.ProcessRecord) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (r *Reader) record(pid int) (types.ProcessRecord, bool) {
	if pid <= 0 {
		return types.ProcessRecord{}, false
	}

	name, err := r.table.Name(pid)
	if err != nil {
		if IsProcessGone(err) {
			logger.Logger.Debugw("process vanished during scan", "pid", pid)
		} else {
			logger.Logger.Debugw("skip unreadable process", "pid", pid, "error", err)
		}
		return types.ProcessRecord{}, false
	}

	owner := types.UnknownOwner
	if uid, err := r.table.UID(pid); err == nil {
		if u, ok := r.users.Username(uid); ok {
			owner = u
		}
	}

	return types.ProcessRecord{
		PID:   pid,
		Name:  truncate(name, MaxNameLen),
		Owner: owner,
	}, true
}

// IsZombie re-reads the state of pid. Unreadable state counts as not zombie.
func (r *Reader) IsZombie(pid int) bool {
	state, err := r.table.State(pid)
	if err != nil {
		return false
	}
	return state == StateZombie
}

// Details returns a copy of rec with the verbose attributes read.
func (r *Reader) Details(rec types.ProcessRecord) types.ProcessRecord {
	if rec.Detailed() {
		return rec
	}

	cmdline, err := r.table.Cmdline(rec.PID)
	if err != nil {
		cmdline = ""
	}
	cmdline = firstLine(cmdline)

	threads := ""
	if n, err := r.table.Threads(rec.PID); err == nil && n > 0 {
		threads = strconv.Itoa(n)
	}

	return rec.WithDetails(cmdline, threads)
}

// IsProcessGone returns true if the error indicates the process no longer exists.
func IsProcessGone(err error) bool {
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if errors.Is(err, syscall.ESRCH) {
		return true
	}
	return false
}

// IsAllDigits reports whether s is a non-empty run of ASCII digits.
func IsAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r ")
}
