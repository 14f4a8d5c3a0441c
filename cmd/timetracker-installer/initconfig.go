package main

import (
	"github.com/fgeck/timetracker-installer/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	initConfigPath  string
	initConfigForce bool
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a configuration file with the defaults",
	RunE:  runInitConfig,
}

func init() {
	initConfigCmd.Flags().StringVarP(&initConfigPath, "output", "o", "timetracker-installer.yaml", "path of the file to write")
	initConfigCmd.Flags().BoolVar(&initConfigForce, "force", false, "overwrite an existing file")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	file := config.DefaultFile()
	file.Service.User = user
	file.Service.WorkDir = workDir
	if unitDir != "" {
		file.Service.UnitDir = unitDir
	}

	if err := config.WriteConfig(file, initConfigPath, initConfigForce); err != nil {
		log.Error().Err(err).Str("file", initConfigPath).Msg("failed to write config")
		return err
	}

	log.Info().Str("file", initConfigPath).Msg("configuration written")
	return nil
}
