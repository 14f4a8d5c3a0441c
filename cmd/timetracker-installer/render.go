package main

import (
	"fmt"

	"github.com/fgeck/timetracker-installer/internal/services/installer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the rendered unit without installing it",
	Long:  `Render the unit template for the resolved user and directory and print it to stdout. No file is written and systemd is not touched.`,
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	h := newHost(cfg)
	defer func() { _ = h.Close() }()

	svc := installer.New(log.Logger, h, cfg.Systemctl)
	out, err := svc.Render(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("render failed")
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
