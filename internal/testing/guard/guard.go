// Package guard switches the process into test mode when imported by tests so
// binaries and wiring helpers skip runtime side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("STATEMENTS_TEST_MODE") == "" {
			_ = os.Setenv("STATEMENTS_TEST_MODE", "1")
		}
	})
}
