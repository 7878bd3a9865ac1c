//go:build !windows

// Package sigutil resolves signal names and numbers and delivers signals.
package sigutil

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// NSIG is one past the largest valid signal number.
const NSIG = 65

// Parse resolves a signal given as a number ("9") or a name with or
// without the SIG prefix ("kill", "SIGKILL").
func Parse(s string) (syscall.Signal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty signal")
	}

	if isNumeric(s) {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n >= NSIG {
			return 0, fmt.Errorf("signal number %s out of range", s)
		}
		return syscall.Signal(n), nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal name %s", s)
	}
	return sig, nil
}

// Name returns the symbolic name of sig, e.g. "SIGTERM".
func Name(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("SIG%d", int(sig))
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Signaler delivers a signal to one process.
type Signaler interface {
	Signal(pid int, sig syscall.Signal) error
}

type unixSignaler struct{}

func NewSignaler() Signaler {
	return unixSignaler{}
}

func (unixSignaler) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
