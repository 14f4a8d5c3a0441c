// Package models contains the data structures used throughout timetracker-installer.
package models

// InstallConfig holds the complete configuration for an installer run.
type InstallConfig struct {
	Service   ServiceSettings
	Systemctl SystemctlSettings
	Remote    *RemoteConfig   // nil if not configured
	Telegram  *TelegramConfig // nil if not configured
}

// ServiceSettings describes the unit being installed.
type ServiceSettings struct {
	Name       string            // unit name without the .service suffix
	Template   string            // template file name, relative to WorkDir
	Executable string            // companion executable, relative to WorkDir
	UnitDir    string            // service-definition directory
	User       string            // substituted for {USER}; empty means invoking user
	WorkDir    string            // substituted for {PWD}; empty means current directory
	Variables  map[string]string // extra {KEY} placeholders
	Sudo       SudoMode
}

// SudoMode controls privilege elevation for privileged steps.
type SudoMode string

const (
	SudoAuto   SudoMode = "auto"
	SudoAlways SudoMode = "always"
	SudoNever  SudoMode = "never"
)

// SystemctlSettings configures how the service manager is invoked.
type SystemctlSettings struct {
	Path     string
	UserMode bool // pass --user and never elevate
}

// RemoteConfig holds SSH settings for installing on another machine.
type RemoteConfig struct {
	Host       string
	Port       int
	Username   string
	KeyPath    string
	PrivateKey []byte // in-memory key, takes precedence over KeyPath
	WorkDir    string
}
