package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and flags without installing anything.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		// Check if file exists
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Service: %s\n", cfg.Service.Name)
	fmt.Fprintf(out, "  Template: %s\n", cfg.Service.Template)
	fmt.Fprintf(out, "  Executable: %s\n", cfg.Service.Executable)
	fmt.Fprintf(out, "  Unit directory: %s\n", cfg.Service.UnitDir)
	fmt.Fprintf(out, "  Sudo: %s\n", cfg.Service.Sudo)
	if cfg.Service.User != "" {
		fmt.Fprintf(out, "  User: %s\n", cfg.Service.User)
	}
	if cfg.Service.WorkDir != "" {
		fmt.Fprintf(out, "  Directory: %s\n", cfg.Service.WorkDir)
	}
	if len(cfg.Service.Variables) > 0 {
		fmt.Fprintf(out, "  Variables: %v\n", cfg.Service.Variables)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Systemctl:")
	fmt.Fprintf(out, "  Path: %s\n", cfg.Systemctl.Path)
	fmt.Fprintf(out, "  User mode: %v\n", cfg.Systemctl.UserMode)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  Remote: %v\n", cfg.Remote != nil)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.Remote != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Remote Configuration:")
		fmt.Fprintf(out, "  Host: %s\n", cfg.Remote.Host)
		fmt.Fprintf(out, "  Port: %d\n", cfg.Remote.Port)
		fmt.Fprintf(out, "  Username: %s\n", cfg.Remote.Username)
		fmt.Fprintf(out, "  Directory: %s\n", cfg.Remote.WorkDir)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	return nil
}
