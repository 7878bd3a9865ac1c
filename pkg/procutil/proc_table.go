package procutil

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

type procTable struct {
	fs   afero.Fs
	root string
}

// NewProcTable reads a /proc style tree rooted at root on fs.
func NewProcTable(fs afero.Fs, root string) Table {
	return &procTable{fs: fs, root: root}
}

// NewOsProcTable reads the live process table of the host.
func NewOsProcTable(root string) Table {
	return NewProcTable(afero.NewOsFs(), root)
}

func (t *procTable) PIDs() ([]int, error) {
	d, err := t.fs.Open(t.root)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	pids := make([]int, 0, len(names))
	for _, name := range names {
		if !IsAllDigits(name) {
			continue
		}
		pid, err := strconv.Atoi(name)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func (t *procTable) read(pid int, name string) ([]byte, error) {
	return afero.ReadFile(t.fs, path.Join(t.root, strconv.Itoa(pid), name))
}

func (t *procTable) Name(pid int) (string, error) {
	data, err := t.read(pid, "comm")
	if err != nil {
		return "", err
	}
	name := firstLine(string(data))
	if name == "" {
		return "", fmt.Errorf("pid %d comm: %w", pid, errEmpty)
	}
	return name, nil
}

func (t *procTable) status(pid int) (string, error) {
	data, err := t.read(pid, "status")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *procTable) UID(pid int) (uint32, error) {
	status, err := t.status(pid)
	if err != nil {
		return 0, err
	}
	return parseStatusUID(status)
}

func (t *procTable) State(pid int) (string, error) {
	status, err := t.status(pid)
	if err != nil {
		return "", err
	}
	v, ok := statusField(status, "State")
	if !ok {
		return "", fmt.Errorf("pid %d status: State not found", pid)
	}
	return v[:1], nil
}

func (t *procTable) Threads(pid int) (int, error) {
	status, err := t.status(pid)
	if err != nil {
		return 0, err
	}
	v, ok := statusField(status, "Threads")
	if !ok {
		return 0, fmt.Errorf("pid %d status: Threads not found", pid)
	}
	return strconv.Atoi(v)
}

func (t *procTable) Cmdline(pid int) (string, error) {
	data, err := t.read(pid, "cmdline")
	if err != nil {
		return "", err
	}
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return "", fmt.Errorf("pid %d cmdline: %w", pid, errEmpty)
	}
	return string(bytes.ReplaceAll(data, []byte{0}, []byte{' '})), nil
}

// statusField returns the first whitespace separated value of the
// "key:" line in /proc/<pid>/status content.
func statusField(status, key string) (string, bool) {
	prefix := key + ":"
	for _, line := range strings.Split(status, "\n") {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(line[len(prefix):])
		if len(fields) == 0 {
			return "", false
		}
		return fields[0], true
	}
	return "", false
}

// parseStatusUID extracts the real uid from the Uid line.
func parseStatusUID(status string) (uint32, error) {
	v, ok := statusField(status, "Uid")
	if !ok {
		return 0, fmt.Errorf("Uid not found in status")
	}
	uid, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse uid %q: %v", v, err)
	}
	return uint32(uid), nil
}
