//go:build !windows

// Package escalate decides whether targets can be signaled with the current
// privileges and re-runs the tool with elevated ones when they cannot.
package escalate

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/cprobe/swordfish/logger"
	"github.com/cprobe/swordfish/pkg/cmdx"
	"golang.org/x/sys/unix"
)

// Checker reports whether the current process may signal pid.
type Checker interface {
	CanSignal(pid int) bool
}

type killProbe struct{}

func NewChecker() Checker {
	return killProbe{}
}

// CanSignal probes pid with signal 0. Only EPERM means not permitted; a
// vanished process is left for the real delivery to report.
func (killProbe) CanSignal(pid int) bool {
	err := unix.Kill(pid, 0)
	return !errors.Is(err, unix.EPERM)
}

// IsRoot reports whether the effective uid is 0.
func IsRoot() bool {
	return unix.Geteuid() == 0
}

// Strategy re-runs the tool with elevated privileges and returns the exit
// status of that run.
type Strategy interface {
	Name() string
	Escalate(args []string) (int, error)
}

type sudo struct {
	self string
}

// NewSudo re-executes the running binary through sudo.
func NewSudo() Strategy {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	return &sudo{self: self}
}

func (s *sudo) Name() string {
	return "sudo"
}

func (s *sudo) Escalate(args []string) (int, error) {
	path, err := exec.LookPath("sudo")
	if err != nil {
		return -1, fmt.Errorf("sudo not found: %w", err)
	}

	logger.Logger.Infow("re-running with elevated privileges", "via", path, "args", args)

	cmd := exec.Command(path, append([]string{s.self}, args...)...)
	return cmdx.RunAttached(cmd, os.Stdin, os.Stdout, os.Stderr)
}

// DropPrivileges gives up root when the real ids are unprivileged, e.g.
// for a setuid install that only lists processes.
func DropPrivileges() error {
	if unix.Geteuid() != 0 {
		return nil
	}

	uid, gid := unix.Getuid(), unix.Getgid()
	if uid == 0 {
		return nil
	}

	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("failed to drop privileges: %w", err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("failed to drop privileges: %w", err)
	}
	return nil
}
