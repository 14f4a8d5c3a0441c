package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fgeck/timetracker-installer/internal/config"
	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/fgeck/timetracker-installer/internal/services/host"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool

	// Overrides for the config file.
	workDir string
	user    string
	unitDir string
)

var rootCmd = &cobra.Command{
	Use:   "timetracker-installer",
	Short: "Install the apptimetracker systemd service",
	Long: `timetracker-installer sets up the apptimetracker service on a systemd host:
  - Renders apptimetracker.service.templ for the current user and directory
  - Installs the unit into the systemd unit directory
  - Reloads systemd, then enables and starts the unit

Run without a subcommand to install from the current directory.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE:          runInstall,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "directory holding the template and executable (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "user the service runs as (default: invoking user)")
	rootCmd.PersistentFlags().StringVar(&unitDir, "unit-dir", "", "systemd unit directory (default: /etc/systemd/system)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func setupLogging() {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig reads the config file if one was given, applies flag overrides
// and validates the result.
func loadConfig() (*models.InstallConfig, error) {
	parser := config.NewParser()

	var cfg *models.InstallConfig
	var err error
	if configFile != "" {
		cfg, err = parser.LoadFile(configFile)
		if err != nil {
			log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
			return nil, err
		}
	} else {
		cfg, err = parser.LoadDefaults()
		if err != nil {
			return nil, err
		}
	}

	if workDir != "" {
		cfg.Service.WorkDir = workDir
		if cfg.Remote != nil {
			cfg.Remote.WorkDir = workDir
		}
	}
	if user != "" {
		cfg.Service.User = user
	}
	if unitDir != "" {
		cfg.Service.UnitDir = unitDir
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	return cfg, nil
}

// newHost returns the SSH host when remote is configured, the local host otherwise.
func newHost(cfg *models.InstallConfig) host.Host {
	if cfg.Remote != nil {
		return host.NewSSH(log.Logger, *cfg.Remote, cfg.Service.Sudo, cfg.Service.User)
	}
	return host.NewLocal(log.Logger, cfg.Service.Sudo, cfg.Service.User, cfg.Service.WorkDir)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !quiet {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
