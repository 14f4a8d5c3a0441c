package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its combined output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Privileges reports what the current process may do without elevation.
type Privileges interface {
	IsRoot() bool
	CanWrite(dir string) bool
}

// UnixPrivileges probes privileges with the effective uid and access(2).
type UnixPrivileges struct{}

// IsRoot reports whether the effective uid is 0.
func (UnixPrivileges) IsRoot() bool {
	return unix.Geteuid() == 0
}

// CanWrite reports whether dir is writable by the effective user.
func (UnixPrivileges) CanWrite(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}

// Local runs operations on this machine.
type Local struct {
	executor CommandExecutor
	privs    Privileges
	sudo     models.SudoMode
	user     string
	workDir  string
	logger   zerolog.Logger
}

// NewLocal creates a host for the local machine. Empty user or workDir fall
// back to the invoking user and the current directory.
func NewLocal(logger zerolog.Logger, sudo models.SudoMode, user, workDir string) *Local {
	return &Local{
		executor: &DefaultExecutor{},
		privs:    UnixPrivileges{},
		sudo:     sudo,
		user:     user,
		workDir:  workDir,
		logger:   logger,
	}
}

// NewLocalWithExecutor creates a local host with a custom executor and privilege probe (for testing).
func NewLocalWithExecutor(
	logger zerolog.Logger,
	executor CommandExecutor,
	privs Privileges,
	sudo models.SudoMode,
	user, workDir string,
) *Local {
	return &Local{
		executor: executor,
		privs:    privs,
		sudo:     sudo,
		user:     user,
		workDir:  workDir,
		logger:   logger,
	}
}

// Name returns "local".
func (h *Local) Name() string {
	return "local"
}

// Username returns the configured user, $USER, or the current OS user.
func (h *Local) Username(_ context.Context) (string, error) {
	if h.user != "" {
		return h.user, nil
	}
	if u := os.Getenv("USER"); u != "" {
		return u, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolving current user: %w", err)
	}
	return u.Username, nil
}

// WorkDir returns the configured working directory as an absolute path, or the current directory.
func (h *Local) WorkDir(_ context.Context) (string, error) {
	if h.workDir != "" {
		abs, err := filepath.Abs(h.workDir)
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		return abs, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return wd, nil
}

// Exists reports whether path exists.
func (h *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	return true, nil
}

// MakeExecutable adds the execute bits to path, like chmod +x.
func (h *Local) MakeExecutable(_ context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	h.logger.Debug().Str("path", path).Msg("marked executable")
	return nil
}

// ReadFile returns the contents of path.
func (h *Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces the contents of path, keeping its mode if it exists.
func (h *Local) WriteFile(_ context.Context, path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return replaceFile(path, data, perm)
}

// CopyFile copies src to dst. A privileged copy into a directory the process
// cannot write goes through sudo cp.
func (h *Local) CopyFile(ctx context.Context, src, dst string, privileged bool) error {
	if privileged && h.needsSudoFor(filepath.Dir(dst)) {
		_, err := h.run(ctx, "sudo", "cp", src, dst)
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	// The copy stays owner-writable so it can be rendered in place.
	if err := replaceFile(dst, data, info.Mode().Perm()|0o200); err != nil {
		return err
	}
	h.logger.Debug().Str("src", src).Str("dst", dst).Msg("file copied")
	return nil
}

// Remove deletes path. A missing file is not an error.
func (h *Local) Remove(ctx context.Context, path string, privileged bool) error {
	if privileged && h.needsSudoFor(filepath.Dir(path)) {
		_, err := h.run(ctx, "sudo", "rm", "-f", path)
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Run executes a command, prefixed with sudo when privileged and the sudo policy requires it.
func (h *Local) Run(ctx context.Context, privileged bool, name string, args ...string) ([]byte, error) {
	if privileged && h.elevate() {
		return h.run(ctx, "sudo", append([]string{name}, args...)...)
	}
	return h.run(ctx, name, args...)
}

// Close is a no-op for the local host.
func (h *Local) Close() error {
	return nil
}

func (h *Local) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := shellJoin(name, args...)
	h.logger.Debug().Str("command", line).Msg("running command")

	output, err := h.executor.Execute(ctx, name, args...)
	if err != nil {
		return output, &CommandError{
			Command:  line,
			Output:   string(output),
			ExitCode: exitCode(err),
			Err:      err,
		}
	}
	return output, nil
}

func (h *Local) elevate() bool {
	switch h.sudo {
	case models.SudoAlways:
		return true
	case models.SudoNever:
		return false
	default:
		return !h.privs.IsRoot()
	}
}

func (h *Local) needsSudoFor(dir string) bool {
	switch h.sudo {
	case models.SudoAlways:
		return true
	case models.SudoNever:
		return false
	default:
		return !h.privs.IsRoot() && !h.privs.CanWrite(dir)
	}
}

// replaceFile writes data to a temporary file next to path and renames it
// over path, so a read-only existing file does not block the write.
func replaceFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// exitCode extracts a process exit code, using the shell's conventions for
// commands that never ran.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return 1
	}
	if errors.Is(err, exec.ErrNotFound) {
		return 127
	}
	return 1
}
