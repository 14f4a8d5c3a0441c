package main

import (
	"errors"
	"fmt"

	"github.com/fgeck/timetracker-installer/internal/services/installer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Render, install, enable and start the service",
	Long: `Install the service unit:
1. Check that the executable and template exist
2. Make the executable runnable
3. Copy the template to the unit file and fill in {USER} and {PWD}
4. Copy the unit file into the unit directory
5. Reload systemd
6. Enable the unit
7. Start the unit
8. Send Telegram notification (if configured)

The first failing step aborts the run. Completed steps are not undone.`,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	h := newHost(cfg)
	defer func() { _ = h.Close() }()

	log.Info().
		Str("host", h.Name()).
		Str("service", cfg.Service.Name).
		Str("unit_dir", cfg.Service.UnitDir).
		Msg("configuration loaded")

	svc := installer.New(log.Logger, h, cfg.Systemctl)
	result, err := svc.Install(ctx, *cfg)
	if err != nil {
		switch {
		case errors.Is(err, installer.ErrMissingExecutable):
			log.Error().Err(err).Msg("executable not found, run the installer from the project directory")
		case errors.Is(err, installer.ErrMissingTemplate):
			log.Error().Err(err).Msg("unit template not found")
		default:
			log.Error().Err(err).Msg("install failed")
		}
		return err
	}

	log.Info().
		Str("unit", result.Unit).
		Dur("duration", result.Duration).
		Msg("install completed successfully")
	fmt.Fprintln(cmd.OutOrStdout(), result.InstalledPath)
	return nil
}
