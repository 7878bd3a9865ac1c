package procutil

import (
	"fmt"
	"strings"

	"github.com/prometheus/procfs"
)

type procfsTable struct {
	fs procfs.FS
}

// NewProcfsTable reads the process table through prometheus/procfs mounted at root.
func NewProcfsTable(root string) (Table, error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, err
	}
	return &procfsTable{fs: fs}, nil
}

func (t *procfsTable) PIDs() ([]int, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	return pids, nil
}

func (t *procfsTable) Name(pid int) (string, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return "", err
	}
	name, err := p.Comm()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("pid %d comm: %w", pid, errEmpty)
	}
	return name, nil
}

func (t *procfsTable) UID(pid int) (uint32, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return 0, err
	}
	st, err := p.NewStatus()
	if err != nil {
		return 0, err
	}
	return uint32(st.UIDs[0]), nil
}

func (t *procfsTable) stat(pid int) (procfs.ProcStat, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return procfs.ProcStat{}, err
	}
	return p.Stat()
}

func (t *procfsTable) State(pid int) (string, error) {
	st, err := t.stat(pid)
	if err != nil {
		return "", err
	}
	if st.State == "" {
		return "", fmt.Errorf("pid %d stat: %w", pid, errEmpty)
	}
	return st.State[:1], nil
}

func (t *procfsTable) Threads(pid int) (int, error) {
	st, err := t.stat(pid)
	if err != nil {
		return 0, err
	}
	return st.NumThreads, nil
}

func (t *procfsTable) Cmdline(pid int) (string, error) {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return "", err
	}
	args, err := p.CmdLine()
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", fmt.Errorf("pid %d cmdline: %w", pid, errEmpty)
	}
	return strings.Join(args, " "), nil
}
