package unit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleTemplate = `[Unit]
Description=App time tracker

[Service]
User={USER}
WorkingDirectory={PWD}
ExecStart={PWD}/timetracker_run.sh

[Install]
WantedBy=multi-user.target
`

func TestRender_ReplacesBuiltins(t *testing.T) {
	out := Render(sampleTemplate, Vars("alice", "/home/alice/tracker", nil))

	assert.NotContains(t, out, "{USER}")
	assert.NotContains(t, out, "{PWD}")
	assert.Contains(t, out, "User=alice\n")
	assert.Contains(t, out, "WorkingDirectory=/home/alice/tracker\n")
	assert.Contains(t, out, "ExecStart=/home/alice/tracker/timetracker_run.sh\n")
	assert.Empty(t, Unresolved(out))
}

func TestRender_ReplacesEveryOccurrence(t *testing.T) {
	out := Render("{USER}:{USER}:{USER}", Vars("bob", "/x", nil))

	assert.Equal(t, "bob:bob:bob", out)
}

func TestRender_ExtraVariables(t *testing.T) {
	out := Render("ExecStart={PWD}/run --sleep-time {SLEEP_TIME}", Vars("bob", "/opt/tt", map[string]string{
		"sleep_time": "60",
	}))

	assert.Equal(t, "ExecStart=/opt/tt/run --sleep-time 60", out)
}

func TestRender_BuiltinsWinOverExtra(t *testing.T) {
	vars := Vars("bob", "/opt/tt", map[string]string{"USER": "mallory"})

	assert.Equal(t, "bob", Render("{USER}", vars))
}

func TestRender_ValuesAreNotReexpanded(t *testing.T) {
	out := Render("{PWD}", Vars("bob", "/weird/{USER}", nil))

	assert.Equal(t, "/weird/{USER}", out)
}

func TestRender_Deterministic(t *testing.T) {
	vars := Vars("bob", "/opt/tt", map[string]string{"A": "1", "B": "2", "C": "3"})
	first := Render(sampleTemplate+"{A}{B}{C}", vars)

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Render(sampleTemplate+"{A}{B}{C}", vars))
	}
}

func TestRender_UnknownTokensLeftAlone(t *testing.T) {
	out := Render("{USER} {OTHER} {lower}", Vars("bob", "/x", nil))

	assert.Equal(t, "bob {OTHER} {lower}", out)
	assert.Equal(t, []string{"{OTHER}"}, Unresolved(out))
}

func TestUnresolved_Distinct(t *testing.T) {
	got := Unresolved(strings.Repeat("{PWD} {USER} ", 3))

	assert.Equal(t, []string{"{PWD}", "{USER}"}, got)
}

func TestUnresolved_IgnoresVariableReferences(t *testing.T) {
	content := "ExecStart=/bin/sh -c 'exec ${HOME}/bin/run --cfg ${XDG_CONFIG_HOME}'\nEnvironment=DIR={DATA_DIR}\n"

	assert.Equal(t, []string{"{DATA_DIR}"}, Unresolved(content))
	assert.Empty(t, Unresolved("${HOME}"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "apptimetracker.service", FileName("apptimetracker"))
	assert.Equal(t, "apptimetracker.service", FileName("apptimetracker.service"))
}
