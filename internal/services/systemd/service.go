// Package systemd drives systemctl on a host.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/fgeck/timetracker-installer/internal/services/host"
	"github.com/rs/zerolog"
)

// Service defines the interface for service manager operations.
type Service interface {
	DaemonReload(ctx context.Context) error
	Enable(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	IsActive(ctx context.Context, unit string) (string, error)
	IsEnabled(ctx context.Context, unit string) (string, error)
}

// Impl implements the Service interface on top of a host.
type Impl struct {
	host     host.Host
	path     string
	userMode bool
	logger   zerolog.Logger
}

// New creates a new systemctl service for h.
func New(logger zerolog.Logger, h host.Host, settings models.SystemctlSettings) *Impl {
	path := settings.Path
	if path == "" {
		path = "systemctl"
	}
	return &Impl{
		host:     h,
		path:     path,
		userMode: settings.UserMode,
		logger:   logger,
	}
}

// DaemonReload reloads unit definitions.
func (s *Impl) DaemonReload(ctx context.Context) error {
	s.logger.Info().Msg("reloading service manager configuration")
	_, err := s.run(ctx, "daemon-reload")
	return err
}

// Enable enables unit for automatic start.
func (s *Impl) Enable(ctx context.Context, unit string) error {
	s.logger.Info().Str("unit", unit).Msg("enabling unit")
	_, err := s.run(ctx, "enable", unit)
	return err
}

// Start starts unit now.
func (s *Impl) Start(ctx context.Context, unit string) error {
	s.logger.Info().Str("unit", unit).Msg("starting unit")
	_, err := s.run(ctx, "start", unit)
	return err
}

// Stop stops unit.
func (s *Impl) Stop(ctx context.Context, unit string) error {
	s.logger.Info().Str("unit", unit).Msg("stopping unit")
	_, err := s.run(ctx, "stop", unit)
	return err
}

// Disable disables unit.
func (s *Impl) Disable(ctx context.Context, unit string) error {
	s.logger.Info().Str("unit", unit).Msg("disabling unit")
	_, err := s.run(ctx, "disable", unit)
	return err
}

// IsActive returns the unit's active state, e.g. "active" or "inactive".
func (s *Impl) IsActive(ctx context.Context, unit string) (string, error) {
	return s.query(ctx, "is-active", unit)
}

// IsEnabled returns the unit's enablement state, e.g. "enabled" or "disabled".
func (s *Impl) IsEnabled(ctx context.Context, unit string) (string, error) {
	return s.query(ctx, "is-enabled", unit)
}

// query runs a read-only verb. systemctl reports non-active states with a
// non-zero exit, so only a missing state line is an error.
func (s *Impl) query(ctx context.Context, verb, unit string) (string, error) {
	output, err := s.host.Run(ctx, false, s.path, s.args(verb, unit)...)
	state := firstLine(output)
	if err != nil {
		var cmdErr *host.CommandError
		if errors.As(err, &cmdErr) && state != "" {
			return state, nil
		}
		return "", fmt.Errorf("systemctl %s %s: %w", verb, unit, err)
	}
	return state, nil
}

func (s *Impl) run(ctx context.Context, args ...string) ([]byte, error) {
	return s.host.Run(ctx, !s.userMode, s.path, s.args(args...)...)
}

func (s *Impl) args(args ...string) []string {
	if s.userMode {
		return append([]string{"--user"}, args...)
	}
	return args
}

func firstLine(output []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line)
}
