//go:build windows

package cmdx

import (
	"os"
	"os/signal"

	"github.com/cprobe/swordfish/logger"
)

func holdSignals() func() {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, os.Interrupt)

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
