// Package testing puts the process into test mode when imported from a
// test binary. Handler tests blank-import it so the entrypoints refuse to
// start real servers and the PDF client points at an unreachable port.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var guard sync.Once

func enableTestMode() {
	guard.Do(func() {
		_ = os.Setenv("ANCORA_TEST_MODE", "1")
		// Port 0 never accepts connections, so a stray Gotenberg call
		// fails fast instead of hitting a live service.
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	enableTestMode()
}

func TestMain(m *stdtesting.M) {
	enableTestMode()
	os.Exit(m.Run())
}
