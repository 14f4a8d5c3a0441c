// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/spf13/viper"
)

// Defaults for the apptimetracker unit.
const (
	DefaultServiceName = "apptimetracker"
	DefaultTemplate    = "apptimetracker.service.templ"
	DefaultExecutable  = "timetracker_run.sh"
	DefaultUnitDir     = "/etc/systemd/system"
	DefaultUserUnitDir = "${HOME}/.config/systemd/user"
	DefaultSystemctl   = "systemctl"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.InstallConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.InstallConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// LoadDefaults returns the configuration used when no file is given.
func (p *Parser) LoadDefaults() (*models.InstallConfig, error) {
	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.InstallConfig, error) {
	cfg := &models.InstallConfig{}

	// Parse service settings.
	cfg.Service = models.ServiceSettings{
		Name:       p.v.GetString("service.name"),
		Template:   p.v.GetString("service.template"),
		Executable: p.v.GetString("service.executable"),
		UnitDir:    p.expandEnv(p.v.GetString("service.unit_dir")),
		User:       p.expandEnv(p.v.GetString("service.user")),
		WorkDir:    p.expandEnv(p.v.GetString("service.work_dir")),
		Variables:  p.v.GetStringMapString("service.variables"),
		Sudo:       models.SudoMode(p.v.GetString("service.sudo")),
	}

	if cfg.Service.Name == "" {
		cfg.Service.Name = DefaultServiceName
	}
	if cfg.Service.Template == "" {
		cfg.Service.Template = DefaultTemplate
	}
	if cfg.Service.Executable == "" {
		cfg.Service.Executable = DefaultExecutable
	}
	unitDirSet := cfg.Service.UnitDir != ""
	if !unitDirSet {
		cfg.Service.UnitDir = DefaultUnitDir
		if p.v.GetBool("systemctl.user_mode") {
			cfg.Service.UnitDir = p.expandEnv(DefaultUserUnitDir)
		}
	}
	if cfg.Service.Sudo == "" {
		cfg.Service.Sudo = models.SudoAuto
	}
	for k, v := range cfg.Service.Variables {
		cfg.Service.Variables[k] = p.expandEnv(v)
	}

	validSudo := map[models.SudoMode]bool{models.SudoAuto: true, models.SudoAlways: true, models.SudoNever: true}
	if !validSudo[cfg.Service.Sudo] {
		return nil, fmt.Errorf("service.sudo must be one of: auto, always, never")
	}

	// Parse systemctl settings.
	cfg.Systemctl = models.SystemctlSettings{
		Path:     p.v.GetString("systemctl.path"),
		UserMode: p.v.GetBool("systemctl.user_mode"),
	}
	if cfg.Systemctl.Path == "" {
		cfg.Systemctl.Path = DefaultSystemctl
	}

	// Parse optional remote config.
	if p.v.IsSet("remote") { //nolint:nestif // config parsing with defaults
		cfg.Remote = &models.RemoteConfig{
			Host:     p.v.GetString("remote.host"),
			Port:     p.v.GetInt("remote.port"),
			Username: p.v.GetString("remote.username"),
			KeyPath:  p.expandEnv(p.v.GetString("remote.key_path")),
			WorkDir:  p.expandEnv(p.v.GetString("remote.work_dir")),
		}

		if cfg.Remote.Host == "" {
			return nil, fmt.Errorf("remote.host is required when remote is configured")
		}
		if cfg.Remote.Port == 0 {
			cfg.Remote.Port = 22
		}
		if cfg.Remote.Username == "" {
			cfg.Remote.Username = "root"
		}
		if cfg.Remote.KeyPath == "" {
			return nil, fmt.Errorf("remote.key_path is required when remote is configured")
		}
		if cfg.Remote.WorkDir == "" {
			cfg.Remote.WorkDir = cfg.Service.WorkDir
		}
		if cfg.Remote.WorkDir == "" {
			return nil, fmt.Errorf("remote.work_dir is required when remote is configured")
		}
		if cfg.Systemctl.UserMode && !unitDirSet {
			return nil, fmt.Errorf("service.unit_dir is required for remote installs in systemctl user mode")
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.InstallConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Service.Name == "" {
		return fmt.Errorf("service.name is required")
	}
	if strings.ContainsRune(cfg.Service.Name, '/') {
		return fmt.Errorf("service.name must not contain '/'")
	}
	if cfg.Service.Template == "" {
		return fmt.Errorf("service.template is required")
	}
	if cfg.Service.Executable == "" {
		return fmt.Errorf("service.executable is required")
	}
	if cfg.Service.UnitDir == "" {
		return fmt.Errorf("service.unit_dir is required")
	}
	if cfg.Systemctl.UserMode && filepath.Clean(cfg.Service.UnitDir) == DefaultUnitDir {
		return fmt.Errorf("service.unit_dir %s is not read by systemctl --user", DefaultUnitDir)
	}

	return nil
}
