package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ARTHA_TEST_MODE") == "" {
			_ = os.Setenv("ARTHA_TEST_MODE", "1")
		}
	})
}
