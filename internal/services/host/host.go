// Package host performs installer operations on the target machine, either
// locally or over SSH.
package host

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Host is the machine a unit is installed on.
type Host interface {
	// Name identifies the host in logs and notifications.
	Name() string
	Username(ctx context.Context) (string, error)
	WorkDir(ctx context.Context) (string, error)

	Exists(ctx context.Context, path string) (bool, error)
	MakeExecutable(ctx context.Context, path string) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	// CopyFile copies src to dst. When privileged is set the copy is elevated
	// if the host's sudo policy requires it.
	CopyFile(ctx context.Context, src, dst string, privileged bool) error
	// Remove deletes path. A missing file is not an error.
	Remove(ctx context.Context, path string, privileged bool) error
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, privileged bool, name string, args ...string) ([]byte, error)

	Close() error
}

// CommandError is returned when a command on the host exits unsuccessfully.
type CommandError struct {
	Command  string
	Output   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command %q failed with exit code %d: %v", e.Command, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command %q failed with exit code %d: %v, output: %s", e.Command, e.ExitCode, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

var safeShellWord = regexp.MustCompile(`^[A-Za-z0-9_./:=@%+,-]+$`)

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s != "" && safeShellWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellJoin renders a command line for logs and remote execution.
func shellJoin(name string, args ...string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, shellQuote(name))
	for _, a := range args {
		words = append(words, shellQuote(a))
	}
	return strings.Join(words, " ")
}
