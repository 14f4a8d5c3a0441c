// Package unit renders systemd unit templates.
package unit

import (
	"regexp"
	"sort"
	"strings"
)

// Built-in placeholder keys.
const (
	KeyUser = "USER"
	KeyPWD  = "PWD"
)

var placeholderRe = regexp.MustCompile(`\{[A-Z][A-Z0-9_]*\}`)

// Token returns the placeholder token for key, e.g. "{USER}".
func Token(key string) string {
	return "{" + key + "}"
}

// Vars builds the substitution set for a render. Built-in keys override extra.
func Vars(user, workDir string, extra map[string]string) map[string]string {
	vars := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		vars[strings.ToUpper(k)] = v
	}
	vars[KeyUser] = user
	vars[KeyPWD] = workDir
	return vars
}

// Render replaces every {KEY} token in tmpl with vars[KEY]. Substitution is a
// single pass, so values that contain tokens are not expanded again.
func Render(tmpl string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, Token(k), vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Unresolved returns the distinct placeholder tokens left in content, sorted.
func Unresolved(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, loc := range placeholderRe.FindAllStringIndex(content, -1) {
		// ${NAME} is a shell or systemd variable reference, not a placeholder.
		if loc[0] > 0 && content[loc[0]-1] == '$' {
			continue
		}
		m := content[loc[0]:loc[1]]
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// FileName returns the unit file name for a service name.
func FileName(name string) string {
	if strings.HasSuffix(name, ".service") {
		return name
	}
	return name + ".service"
}
