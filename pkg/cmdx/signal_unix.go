//go:build !windows

package cmdx

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cprobe/swordfish/logger"
)

// holdSignals catches terminal generated signals while an attached child
// runs. The child gets them from the terminal itself; the parent has to stay
// alive to collect its exit status. Notify is used rather than Ignore since
// ignored dispositions survive exec.
func holdSignals() func() {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sc:
				logger.Logger.Debugw("received signal while child runs", "signal", sig.String())
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sc)
		close(done)
	}
}
