package cmdx

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// RunAttached runs cmd wired to the given stdio and waits for it. The child
// exit status is returned; err is only set when the child could not be
// started or waited for.
func RunAttached(cmd *exec.Cmd, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("exec: failed to start %s: %w", cmd.Path, err)
	}

	release := holdSignals()
	defer release()

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	if code, ok := ExitCode(err); ok {
		return code, nil
	}
	return -1, err
}

// ExitCode extracts the exit status carried by an *exec.ExitError. A child
// killed by a signal reports 128+signo, like a shell does.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), true
	}
	return exitErr.ExitCode(), true
}
