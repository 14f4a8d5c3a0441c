package main

import (
	"fmt"

	"github.com/fgeck/timetracker-installer/internal/services/installer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the installed service",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	h := newHost(cfg)
	defer func() { _ = h.Close() }()

	svc := installer.New(log.Logger, h, cfg.Systemctl)
	status, err := svc.Status(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("status failed")
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Unit: %s\n", status.Unit)
	fmt.Fprintf(out, "  Host: %s\n", h.Name())
	fmt.Fprintf(out, "  Unit file: %s\n", status.UnitPath)
	fmt.Fprintf(out, "  Installed: %v\n", status.Installed)
	fmt.Fprintf(out, "  Active: %s\n", status.Active)
	fmt.Fprintf(out, "  Enabled: %s\n", status.Enabled)

	if len(status.Processes) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Processes:")
		for _, p := range status.Processes {
			fmt.Fprintf(out, "  %d %s\n", p.PID, p.Cmdline)
		}
	}
	return nil
}
