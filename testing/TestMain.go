// Package testing switches the process into test mode when imported by a
// test binary. Import it for side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/gatehouse/gatehouse/internal/testing/guard"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(guard.EnvTestMode, "1")
		for key, value := range map[string]string{
			"SESSION_SECRET":   "test-session-secret",
			"AUTHZ_JWT_SECRET": "test-jwt-secret",
			"SESSION_STORE":    "memory",
		} {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
