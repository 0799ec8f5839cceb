package app

import (
	"sync"
	"sync/atomic"

	"github.com/gatehouse/gatehouse/internal/testing/guard"
)

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(guard.Enabled())
}

// InTestMode reports whether the binaries should skip runtime side effects
// such as opening database and redis connections.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
