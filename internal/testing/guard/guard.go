// Package guard reports whether the process runs under test mode.
package guard

import (
	"os"
	"strings"
)

// EnvTestMode is the variable that enables test mode.
const EnvTestMode = "GATEHOUSE_TEST_MODE"

// Enabled reports whether test mode is on. Any value other than "", "0" or
// "false" enables it.
func Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvTestMode))) {
	case "", "0", "false":
		return false
	}
	return true
}
