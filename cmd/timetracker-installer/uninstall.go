package main

import (
	"github.com/fgeck/timetracker-installer/internal/services/installer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, disable and remove the service",
	Long:  `Stop and disable the unit, delete the installed unit file and reload systemd. Nothing is done when the unit file is absent.`,
	RunE:  runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	h := newHost(cfg)
	defer func() { _ = h.Close() }()

	svc := installer.New(log.Logger, h, cfg.Systemctl)
	result, err := svc.Uninstall(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("uninstall failed")
		return err
	}

	if result.UnitRemoved {
		log.Info().Str("unit", result.Unit).Msg("uninstall completed successfully")
	}
	return nil
}
