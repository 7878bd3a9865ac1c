//go:build !windows

package main

import (
	"syscall"

	"github.com/cprobe/swordfish/pkg/sigutil"
)

// splitSignalShorthand consumes a leading "-<SIGNAL>" argument such as
// "-9", "-KILL" or "-SIGKILL". Anything that does not resolve to a signal
// is left for the flag parser, so "-k" and "-kx" keep their flag meaning.
func splitSignalShorthand(args []string) (syscall.Signal, bool, []string) {
	if len(args) == 0 {
		return 0, false, args
	}

	first := args[0]
	if len(first) < 2 || first[0] != '-' || !isSignalStart(first[1]) {
		return 0, false, args
	}

	sig, err := sigutil.Parse(first[1:])
	if err != nil {
		return 0, false, args
	}
	return sig, true, args[1:]
}

func isSignalStart(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
