// Package testing is blank-imported by test files to pin the environment the
// ledger packages expect before any config is read.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testEnv = map[string]string{
	"ODYSSEY_TEST_MODE": "1",
	"LEDGER_CURRENCY":   "EUR",
	// Keep a developer's .env out of test runs.
	"ODYSSEY_ENV_FILE": os.DevNull,
}

func ensureTestMode() {
	once.Do(func() {
		for key, val := range testEnv {
			if key != "ODYSSEY_TEST_MODE" && os.Getenv(key) != "" {
				continue
			}
			_ = os.Setenv(key, val)
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
