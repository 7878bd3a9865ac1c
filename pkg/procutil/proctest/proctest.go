// Package proctest builds fake /proc trees on an in-memory afero filesystem.
package proctest

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const Root = "/proc"

// NoUID leaves the Uid line out of the status file.
const NoUID = -1

type Proc struct {
	PID     int
	Name    string
	UID     int
	State   string
	Threads int
	Cmdline []string

	// NoComm drops the comm file, as if the process vanished mid-scan.
	NoComm bool
}

// NewFS returns a memory filesystem holding procs under Root.
func NewFS(procs ...Proc) afero.Fs {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(Root, 0o555); err != nil {
		panic(err)
	}
	for _, p := range procs {
		if err := Write(fs, p); err != nil {
			panic(err)
		}
	}
	// non-process entries that must be ignored
	_ = afero.WriteFile(fs, path.Join(Root, "uptime"), []byte("1.00 2.00\n"), 0o444)
	_ = fs.MkdirAll(path.Join(Root, "sys"), 0o555)
	return fs
}

func Write(fs afero.Fs, p Proc) error {
	dir := path.Join(Root, strconv.Itoa(p.PID))
	if err := fs.MkdirAll(dir, 0o555); err != nil {
		return err
	}

	if !p.NoComm {
		if err := afero.WriteFile(fs, path.Join(dir, "comm"), []byte(p.Name+"\n"), 0o444); err != nil {
			return err
		}
	}

	state := p.State
	if state == "" {
		state = "S"
	}
	threads := p.Threads
	if threads == 0 {
		threads = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name:\t%s\n", p.Name)
	fmt.Fprintf(&sb, "State:\t%s (%s)\n", state, stateName(state))
	fmt.Fprintf(&sb, "Pid:\t%d\n", p.PID)
	if p.UID != NoUID {
		fmt.Fprintf(&sb, "Uid:\t%d\t%d\t%d\t%d\n", p.UID, p.UID, p.UID, p.UID)
	}
	fmt.Fprintf(&sb, "Threads:\t%d\n", threads)
	if err := afero.WriteFile(fs, path.Join(dir, "status"), []byte(sb.String()), 0o444); err != nil {
		return err
	}

	if err := afero.WriteFile(fs, path.Join(dir, "stat"), []byte(statLine(p.PID, p.Name, state, threads)), 0o444); err != nil {
		return err
	}

	cmdline := ""
	if len(p.Cmdline) > 0 {
		cmdline = strings.Join(p.Cmdline, "\x00") + "\x00"
	}
	return afero.WriteFile(fs, path.Join(dir, "cmdline"), []byte(cmdline), 0o444)
}

// statLine renders a /proc/<pid>/stat line; only state and thread count
// carry meaning, the other fields are plausible placeholders.
func statLine(pid int, name, state string, threads int) string {
	fields := []string{
		state, "1", strconv.Itoa(pid), strconv.Itoa(pid), "0", "-1", "4194560",
		"0", "0", "0", "0", "0", "0", "0", "0",
		"20", "0", strconv.Itoa(threads), "0", "100",
	}
	for i := 0; i < 15; i++ {
		fields = append(fields, "0")
	}
	fields = append(fields, "17", "0", "0", "0", "0", "0", "0")
	return fmt.Sprintf("%d (%s) %s\n", pid, name, strings.Join(fields, " "))
}

// SetState rewrites the state of an existing fake process.
func SetState(fs afero.Fs, p Proc, state string) error {
	p.State = state
	return Write(fs, p)
}

func stateName(s string) string {
	switch s {
	case "R":
		return "running"
	case "Z":
		return "zombie"
	case "T":
		return "stopped"
	case "D":
		return "disk sleep"
	default:
		return "sleeping"
	}
}
