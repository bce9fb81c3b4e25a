// Package guard flips the runtime into test mode when imported. Test
// packages that exercise main-adjacent code import it for side effect so a
// stray `go test` never starts servers or workers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PRESSDESK_TEST_MODE") == "" {
			_ = os.Setenv("PRESSDESK_TEST_MODE", "1")
		}
	})
}
