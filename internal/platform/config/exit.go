package config

import (
	"fmt"
	"os"
)

// UsageExitCode is the status for invalid configuration, matching flag.ExitOnError.
const UsageExitCode = 2

// Exitf reports a configuration failure on stderr and exits with UsageExitCode.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "config: "+format+"\n", args...)
	os.Exit(UsageExitCode)
}
