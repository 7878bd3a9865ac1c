package procutil

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// gopsutil reports long state names; the reader works with kernel codes.
var gopsutilStates = map[string]string{
	process.Running: "R",
	process.Sleep:   "S",
	process.Idle:    "I",
	process.Stop:    "T",
	process.Wait:    "W",
	process.Lock:    "L",
	process.Blocked: "D",
	process.Zombie:  StateZombie,
}

type gopsutilTable struct{}

// NewGopsutilTable reads the process table through gopsutil, which also
// works on platforms without a /proc tree.
func NewGopsutilTable() Table {
	return gopsutilTable{}
}

// handle returns a lightweight process handle; attributes are fetched lazily on demand.
func handle(pid int) *process.Process {
	return &process.Process{Pid: int32(pid)}
}

func (gopsutilTable) PIDs() ([]int, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, err
	}

	result := make([]int, 0, len(pids))
	for _, pid := range pids {
		if pid > 0 {
			result = append(result, int(pid))
		}
	}
	return result, nil
}

func (gopsutilTable) Name(pid int) (string, error) {
	name, err := handle(pid).Name()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("pid %d name: %w", pid, errEmpty)
	}
	return name, nil
}

func (gopsutilTable) UID(pid int) (uint32, error) {
	uids, err := handle(pid).Uids()
	if err != nil {
		return 0, err
	}
	if len(uids) == 0 {
		return 0, fmt.Errorf("pid %d uids: %w", pid, errEmpty)
	}
	if uids[0] < 0 {
		return 0, fmt.Errorf("pid %d has invalid uid %d", pid, uids[0])
	}
	return uint32(uids[0]), nil
}

func (gopsutilTable) State(pid int) (string, error) {
	statuses, err := handle(pid).Status()
	if err != nil {
		return "", err
	}
	if len(statuses) == 0 {
		return "", fmt.Errorf("pid %d status: %w", pid, errEmpty)
	}
	return stateCode(statuses[0]), nil
}

func stateCode(s string) string {
	if code, ok := gopsutilStates[s]; ok {
		return code
	}
	if len(s) == 1 {
		return s
	}
	return ""
}

func (gopsutilTable) Threads(pid int) (int, error) {
	n, err := handle(pid).NumThreads()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (gopsutilTable) Cmdline(pid int) (string, error) {
	cmdline, err := handle(pid).Cmdline()
	if err != nil {
		return "", err
	}
	if cmdline == "" {
		return "", fmt.Errorf("pid %d cmdline: %w", pid, errEmpty)
	}
	return cmdline, nil
}
