package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether binaries should skip opening pools, redis and
// listeners. The flag is read once; RefreshTestMode re-reads it.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	readTestMode()
}
