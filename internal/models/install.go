package models

import "time"

// Install steps, in execution order.
const (
	StepMakeExecutable = "make_executable"
	StepCopyTemplate   = "copy_template"
	StepRender         = "render"
	StepInstallUnit    = "install_unit"
	StepDaemonReload   = "daemon_reload"
	StepEnable         = "enable"
	StepStart          = "start"
)

// InstallSteps lists every install step in order.
var InstallSteps = []string{
	StepMakeExecutable,
	StepCopyTemplate,
	StepRender,
	StepInstallUnit,
	StepDaemonReload,
	StepEnable,
	StepStart,
}

// InstallResult holds the result of an install run.
type InstallResult struct {
	Unit           string
	RenderedPath   string
	InstalledPath  string
	StepsCompleted []string
	Duration       time.Duration
}

// UninstallResult holds the result of an uninstall run.
type UninstallResult struct {
	Unit        string
	UnitRemoved bool
	Duration    time.Duration
}

// UnitStatus describes the live state of the installed unit.
type UnitStatus struct {
	Unit      string
	UnitPath  string
	Installed bool
	Active    string // output of systemctl is-active
	Enabled   string // output of systemctl is-enabled
	Processes []ProcessInfo
}

// ProcessInfo describes a running process related to the unit.
type ProcessInfo struct {
	PID     int32
	Name    string
	Cmdline string
}
