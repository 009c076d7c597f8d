package actions

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/majorcontext/setup-npmrc/internal/log"
)

// Environment variables set by the GitHub Actions runner.
const (
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitHubEnv     = "GITHUB_ENV"
	EnvRunnerTemp    = "RUNNER_TEMP"
)

// Env publishes variables to the process environment and, when running
// under GitHub Actions, to the GITHUB_ENV file read by later steps.
type Env struct {
	out       io.Writer
	envFile   string
	inActions bool
}

// NewEnv creates an Env from the runner environment. Workflow commands are
// written to out.
func NewEnv(out io.Writer) *Env {
	return &Env{
		out:       out,
		envFile:   os.Getenv(EnvGitHubEnv),
		inActions: InActions(),
	}
}

// ExportVariable sets name for this process and for later pipeline steps.
func (e *Env) ExportVariable(name, value string) error {
	if err := os.Setenv(name, value); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	if e.envFile == "" {
		log.Debug("no env file, variable set for this process only", "name", name)
		return nil
	}

	entry, err := envFileEntry(name, value, "ghadelimiter_"+uuid.NewString())
	if err != nil {
		return err
	}

	f, err := os.OpenFile(e.envFile, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("opening env file: %w", err)
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return fmt.Errorf("writing env file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing env file: %w", err)
	}

	log.Debug("exported variable", "name", name)
	return nil
}

// SetSecret masks value in the job log. It is a no-op outside Actions, where
// printing the mask command would print the secret.
func (e *Env) SetSecret(value string) {
	if !e.inActions || value == "" {
		return
	}
	fmt.Fprintf(e.out, "::add-mask::%s\n", escapeData(value))
}

// envFileEntry formats a multiline-safe GITHUB_ENV entry.
func envFileEntry(name, value, delimiter string) (string, error) {
	if strings.Contains(name, delimiter) {
		return "", fmt.Errorf("variable name %q contains the delimiter", name)
	}
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("value of %s contains the delimiter", name)
	}
	return name + "<<" + delimiter + "\n" + value + "\n" + delimiter + "\n", nil
}

// escapeData escapes a workflow command payload.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

// InActions reports whether the process runs under GitHub Actions.
func InActions() bool {
	return os.Getenv(EnvGitHubActions) == "true"
}

// ErrorAnnotation writes err as a workflow error annotation.
func ErrorAnnotation(w io.Writer, err error) {
	fmt.Fprintf(w, "::error::%s\n", escapeData(err.Error()))
}
