package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File mirrors the YAML layout read by Parser.
type File struct {
	Service   ServiceFile   `yaml:"service"`
	Systemctl SystemctlFile `yaml:"systemctl"`
	Remote    *RemoteFile   `yaml:"remote,omitempty"`
	Telegram  *TelegramFile `yaml:"telegram,omitempty"`
}

// ServiceFile is the service section.
type ServiceFile struct {
	Name       string            `yaml:"name"`
	Template   string            `yaml:"template"`
	Executable string            `yaml:"executable"`
	UnitDir    string            `yaml:"unit_dir"`
	User       string            `yaml:"user,omitempty"`
	WorkDir    string            `yaml:"work_dir,omitempty"`
	Variables  map[string]string `yaml:"variables,omitempty"`
	Sudo       string            `yaml:"sudo"`
}

// SystemctlFile is the systemctl section.
type SystemctlFile struct {
	Path     string `yaml:"path"`
	UserMode bool   `yaml:"user_mode"`
}

// RemoteFile is the remote section.
type RemoteFile struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	KeyPath  string `yaml:"key_path"`
	WorkDir  string `yaml:"work_dir"`
}

// TelegramFile is the telegram section.
type TelegramFile struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// DefaultFile returns a configuration file populated with defaults.
func DefaultFile() *File {
	return &File{
		Service: ServiceFile{
			Name:       DefaultServiceName,
			Template:   DefaultTemplate,
			Executable: DefaultExecutable,
			UnitDir:    DefaultUnitDir,
			Sudo:       "auto",
		},
		Systemctl: SystemctlFile{
			Path: DefaultSystemctl,
		},
	}
}

// WriteConfig writes cfg as YAML to path. An existing file is only replaced when force is set.
func WriteConfig(cfg *File, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o640)
}
