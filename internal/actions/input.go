package actions

import (
	"os"
	"strings"
)

// Input returns the step input name, as the runner passes it in
// INPUT_<NAME>. Hyphens are kept; spaces become underscores.
func Input(name string) string {
	return strings.TrimSpace(os.Getenv(InputEnvName(name)))
}

// LookupInput is like Input but reports whether the variable was set.
func LookupInput(name string) (string, bool) {
	v, ok := os.LookupEnv(InputEnvName(name))
	return strings.TrimSpace(v), ok
}

// InputEnvName returns the environment variable carrying input name.
func InputEnvName(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}
