// Package installer renders, installs and manages the service unit.
package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/fgeck/timetracker-installer/internal/services/host"
	"github.com/fgeck/timetracker-installer/internal/services/process"
	"github.com/fgeck/timetracker-installer/internal/services/systemd"
	"github.com/fgeck/timetracker-installer/internal/services/telegram"
	"github.com/fgeck/timetracker-installer/internal/services/unit"
	"github.com/rs/zerolog"
)

// Service defines the interface for the installer.
type Service interface {
	Install(ctx context.Context, cfg models.InstallConfig) (*models.InstallResult, error)
	Uninstall(ctx context.Context, cfg models.InstallConfig) (*models.UninstallResult, error)
	Render(ctx context.Context, cfg models.InstallConfig) (string, error)
	Status(ctx context.Context, cfg models.InstallConfig) (*models.UnitStatus, error)
}

// Impl implements the installer Service interface.
type Impl struct {
	host        host.Host
	systemdSvc  systemd.Service
	processSvc  process.Service // nil when processes cannot be inspected
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// New creates a new installer operating on h. Process inspection is only
// available for the local host.
func New(logger zerolog.Logger, h host.Host, settings models.SystemctlSettings) *Impl {
	var processSvc process.Service
	if _, ok := h.(*host.Local); ok {
		processSvc = process.New(logger)
	}
	return &Impl{
		host:        h,
		systemdSvc:  systemd.New(logger, h, settings),
		processSvc:  processSvc,
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new installer with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	h host.Host,
	systemdSvc systemd.Service,
	processSvc process.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		host:        h,
		systemdSvc:  systemdSvc,
		processSvc:  processSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// layout holds the resolved names and paths for one run.
type layout struct {
	unit       string
	user       string
	workDir    string
	executable string
	template   string
	rendered   string
	installed  string
}

func (s *Impl) resolve(ctx context.Context, settings models.ServiceSettings) (layout, error) {
	user, err := s.host.Username(ctx)
	if err != nil {
		return layout{}, err
	}
	workDir, err := s.host.WorkDir(ctx)
	if err != nil {
		return layout{}, err
	}

	name := unit.FileName(settings.Name)
	return layout{
		unit:       name,
		user:       user,
		workDir:    workDir,
		executable: filepath.Join(workDir, settings.Executable),
		template:   filepath.Join(workDir, settings.Template),
		rendered:   filepath.Join(workDir, name),
		installed:  filepath.Join(settings.UnitDir, name),
	}, nil
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Install runs the install sequence. Preconditions are checked before any
// side effect; after that the first failing step aborts the run and nothing
// already applied is rolled back.
//
//nolint:funlen // install sequence reads top to bottom
func (s *Impl) Install(ctx context.Context, cfg models.InstallConfig) (*models.InstallResult, error) {
	startTime := time.Now()
	result := &models.InstallResult{Unit: unit.FileName(cfg.Service.Name)}
	var l layout
	var failedStep string
	var runErr error

	defer func() {
		result.Duration = time.Since(startTime)
		// Send notification if configured
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, l, result, startTime, failedStep, runErr)
		}
	}()

	failedStep = "resolve"
	var err error
	l, err = s.resolve(ctx, cfg.Service)
	if err != nil {
		runErr = err
		return result, fmt.Errorf("resolving install layout: %w", err)
	}
	result.RenderedPath = l.rendered
	result.InstalledPath = l.installed

	s.logger.Info().
		Str("host", s.host.Name()).
		Str("unit", l.unit).
		Str("user", l.user).
		Str("work_dir", l.workDir).
		Msg("starting install")

	failedStep = "preflight"
	if err := s.preflight(ctx, l, true); err != nil {
		runErr = err
		return result, err
	}

	steps := []step{
		{models.StepMakeExecutable, func(ctx context.Context) error {
			return s.host.MakeExecutable(ctx, l.executable)
		}},
		{models.StepCopyTemplate, func(ctx context.Context) error {
			return s.host.CopyFile(ctx, l.template, l.rendered, false)
		}},
		{models.StepRender, func(ctx context.Context) error {
			return s.renderWorkingCopy(ctx, l, cfg.Service.Variables)
		}},
		{models.StepInstallUnit, func(ctx context.Context) error {
			return s.host.CopyFile(ctx, l.rendered, l.installed, true)
		}},
		{models.StepDaemonReload, s.systemdSvc.DaemonReload},
		{models.StepEnable, func(ctx context.Context) error {
			return s.systemdSvc.Enable(ctx, l.unit)
		}},
		{models.StepStart, func(ctx context.Context) error {
			return s.systemdSvc.Start(ctx, l.unit)
		}},
	}

	for _, st := range steps {
		failedStep = st.name
		if err := ctx.Err(); err != nil {
			runErr = &StepError{Step: st.name, Err: err}
			return result, runErr
		}

		s.logger.Debug().Str("step", st.name).Msg("running step")
		if err := st.run(ctx); err != nil {
			runErr = &StepError{Step: st.name, Err: err}
			return result, runErr
		}
		result.StepsCompleted = append(result.StepsCompleted, st.name)
	}

	// Success - clear failedStep
	failedStep = ""
	s.logger.Info().
		Str("unit", l.unit).
		Str("path", l.installed).
		Dur("duration", time.Since(startTime)).
		Msg("service installed and started")

	return result, nil
}

// preflight verifies the inputs exist without touching anything.
func (s *Impl) preflight(ctx context.Context, l layout, needExecutable bool) error {
	if needExecutable {
		ok, err := s.host.Exists(ctx, l.executable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingExecutable, l.executable)
		}
	}

	ok, err := s.host.Exists(ctx, l.template)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingTemplate, l.template)
	}
	return nil
}

// renderWorkingCopy substitutes placeholders in the working copy in place.
func (s *Impl) renderWorkingCopy(ctx context.Context, l layout, extra map[string]string) error {
	raw, err := s.host.ReadFile(ctx, l.rendered)
	if err != nil {
		return err
	}

	out := s.render(string(raw), l, extra)
	return s.host.WriteFile(ctx, l.rendered, []byte(out))
}

func (s *Impl) render(tmpl string, l layout, extra map[string]string) string {
	out := unit.Render(tmpl, unit.Vars(l.user, l.workDir, extra))
	if left := unit.Unresolved(out); len(left) > 0 {
		s.logger.Warn().Strs("placeholders", left).Msg("unit still contains unknown placeholders")
	}
	return out
}

// Render returns the rendered unit without side effects.
func (s *Impl) Render(ctx context.Context, cfg models.InstallConfig) (string, error) {
	l, err := s.resolve(ctx, cfg.Service)
	if err != nil {
		return "", fmt.Errorf("resolving install layout: %w", err)
	}
	if err := s.preflight(ctx, l, false); err != nil {
		return "", err
	}

	raw, err := s.host.ReadFile(ctx, l.template)
	if err != nil {
		return "", err
	}
	return s.render(string(raw), l, cfg.Service.Variables), nil
}

// Uninstall stops and disables the unit, removes its file and reloads the
// service manager. Stop and disable are best effort.
func (s *Impl) Uninstall(ctx context.Context, cfg models.InstallConfig) (*models.UninstallResult, error) {
	startTime := time.Now()
	l, err := s.resolve(ctx, cfg.Service)
	if err != nil {
		return nil, fmt.Errorf("resolving install layout: %w", err)
	}
	result := &models.UninstallResult{Unit: l.unit}

	installed, err := s.host.Exists(ctx, l.installed)
	if err != nil {
		return nil, err
	}
	if !installed {
		s.logger.Info().Str("path", l.installed).Msg("unit file not present, nothing to uninstall")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	if err := s.systemdSvc.Stop(ctx, l.unit); err != nil {
		s.logger.Warn().Err(err).Str("unit", l.unit).Msg("stop failed, continuing")
	}
	if err := s.systemdSvc.Disable(ctx, l.unit); err != nil {
		s.logger.Warn().Err(err).Str("unit", l.unit).Msg("disable failed, continuing")
	}

	if err := s.host.Remove(ctx, l.installed, true); err != nil {
		return nil, fmt.Errorf("removing unit file: %w", err)
	}
	result.UnitRemoved = true

	if err := s.systemdSvc.DaemonReload(ctx); err != nil {
		return nil, fmt.Errorf("daemon reload: %w", err)
	}

	result.Duration = time.Since(startTime)
	s.logger.Info().
		Str("unit", l.unit).
		Dur("duration", result.Duration).
		Msg("service uninstalled")

	return result, nil
}

// Status reports the live state of the unit.
func (s *Impl) Status(ctx context.Context, cfg models.InstallConfig) (*models.UnitStatus, error) {
	l, err := s.resolve(ctx, cfg.Service)
	if err != nil {
		return nil, fmt.Errorf("resolving install layout: %w", err)
	}

	status := &models.UnitStatus{
		Unit:     l.unit,
		UnitPath: l.installed,
	}

	status.Installed, err = s.host.Exists(ctx, l.installed)
	if err != nil {
		return nil, err
	}
	status.Active, err = s.systemdSvc.IsActive(ctx, l.unit)
	if err != nil {
		return nil, err
	}
	status.Enabled, err = s.systemdSvc.IsEnabled(ctx, l.unit)
	if err != nil {
		return nil, err
	}

	if s.processSvc != nil {
		procs, err := s.processSvc.FindByCommand(ctx, cfg.Service.Executable)
		if err != nil {
			s.logger.Warn().Err(err).Msg("could not list processes")
		}
		status.Processes = procs
	}

	return status, nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.InstallConfig,
	l layout,
	result *models.InstallResult,
	startTime time.Time,
	failedStep string,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:        runErr == nil,
		Host:           s.host.Name(),
		Unit:           result.Unit,
		User:           l.user,
		WorkDir:        l.workDir,
		StartTime:      startTime,
		Duration:       time.Since(startTime),
		InstalledPath:  result.InstalledPath,
		StepsCompleted: len(result.StepsCompleted),
	}

	if runErr != nil {
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	}

	res, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if res.Error != nil {
		s.logger.Error().Err(res.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
