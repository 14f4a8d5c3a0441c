package installer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/fgeck/timetracker-installer/internal/services/host"
	"github.com/fgeck/timetracker-installer/internal/services/systemd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor stands in for systemctl and sudo on the local host.
type recordingExecutor struct {
	calls []string
}

func (e *recordingExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	e.calls = append(e.calls, strings.Join(append([]string{name}, args...), " "))
	return nil, nil
}

type writablePrivileges struct{}

func (writablePrivileges) IsRoot() bool             { return false }
func (writablePrivileges) CanWrite(dir string) bool { return true }

func setupWorkDir(t *testing.T, withExecutable bool) (workDir, unitDir string) {
	t.Helper()

	workDir = t.TempDir()
	unitDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "apptimetracker.service.templ"), []byte(testTemplate), 0o644))
	if withExecutable {
		require.NoError(t, os.WriteFile(filepath.Join(workDir, "timetracker_run.sh"), []byte("#!/bin/sh\nexec python3 main.py\n"), 0o644))
	}
	return workDir, unitDir
}

func newLocalInstaller(executor *recordingExecutor, workDir string) *Impl {
	h := host.NewLocalWithExecutor(testLogger(), executor, writablePrivileges{}, models.SudoAuto, "tracker", workDir)
	return NewWithServices(
		testLogger(),
		h,
		systemd.New(testLogger(), h, models.SystemctlSettings{Path: "systemctl"}),
		nil,
		&mockTelegramService{},
	)
}

func TestLocalInstall_EndToEnd(t *testing.T) {
	workDir, unitDir := setupWorkDir(t, true)
	executor := &recordingExecutor{}
	svc := newLocalInstaller(executor, workDir)

	cfg := testConfig()
	cfg.Service.UnitDir = unitDir

	_, err := svc.Install(context.Background(), cfg)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(workDir, "timetracker_run.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "companion executable must be runnable")

	rendered, err := os.ReadFile(filepath.Join(workDir, "apptimetracker.service"))
	require.NoError(t, err)
	installed, err := os.ReadFile(filepath.Join(unitDir, "apptimetracker.service"))
	require.NoError(t, err)

	assert.Equal(t, string(rendered), string(installed))
	assert.NotContains(t, string(installed), "{USER}")
	assert.NotContains(t, string(installed), "{PWD}")
	assert.Contains(t, string(installed), "User=tracker\n")
	assert.Contains(t, string(installed), "WorkingDirectory="+workDir+"\n")

	assert.Equal(t, []string{
		"sudo systemctl daemon-reload",
		"sudo systemctl enable apptimetracker.service",
		"sudo systemctl start apptimetracker.service",
	}, executor.calls)
}

func TestLocalInstall_MissingExecutableWritesNothing(t *testing.T) {
	workDir, unitDir := setupWorkDir(t, false)
	executor := &recordingExecutor{}
	svc := newLocalInstaller(executor, workDir)

	cfg := testConfig()
	cfg.Service.UnitDir = unitDir

	_, err := svc.Install(context.Background(), cfg)
	require.ErrorIs(t, err, ErrMissingExecutable)

	workEntries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Len(t, workEntries, 1, "only the template may exist")

	unitEntries, err := os.ReadDir(unitDir)
	require.NoError(t, err)
	assert.Empty(t, unitEntries)
	assert.Empty(t, executor.calls)
}

func TestLocalInstall_SecondRunSameUnit(t *testing.T) {
	workDir, unitDir := setupWorkDir(t, true)
	svc := newLocalInstaller(&recordingExecutor{}, workDir)

	cfg := testConfig()
	cfg.Service.UnitDir = unitDir
	unitPath := filepath.Join(unitDir, "apptimetracker.service")

	_, err := svc.Install(context.Background(), cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(unitPath)
	require.NoError(t, err)

	_, err = svc.Install(context.Background(), cfg)
	require.NoError(t, err)
	second, err := os.ReadFile(unitPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLocalInstall_ReadOnlyTemplate(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	workDir, unitDir := setupWorkDir(t, true)
	templ := filepath.Join(workDir, "apptimetracker.service.templ")
	require.NoError(t, os.Chmod(templ, 0o444))
	svc := newLocalInstaller(&recordingExecutor{}, workDir)

	cfg := testConfig()
	cfg.Service.UnitDir = unitDir

	for run := 1; run <= 2; run++ {
		result, err := svc.Install(context.Background(), cfg)
		require.NoError(t, err, "run %d", run)
		assert.Equal(t, models.InstallSteps, result.StepsCompleted)
	}

	installed, err := os.ReadFile(filepath.Join(unitDir, "apptimetracker.service"))
	require.NoError(t, err)
	assert.Contains(t, string(installed), "User=tracker\n")
	assert.NotContains(t, string(installed), "{PWD}")

	original, err := os.ReadFile(templ)
	require.NoError(t, err)
	assert.Equal(t, testTemplate, string(original))
}
