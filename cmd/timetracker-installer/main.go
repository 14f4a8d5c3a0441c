// Package main is the entry point for timetracker-installer.
package main

import (
	"errors"
	"os"

	"github.com/fgeck/timetracker-installer/internal/services/host"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status. A failed command
// passes its own exit code through.
func exitCode(err error) int {
	var cmdErr *host.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}
	return 1
}
