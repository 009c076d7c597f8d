// Package config handles the inputs of a setup-npmrc run.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/majorcontext/setup-npmrc/internal/actions"
	"github.com/majorcontext/setup-npmrc/internal/log"
)

// EnvConfigFile names a YAML inputs file when --config is not given.
const EnvConfigFile = "SETUP_NPMRC_CONFIG"

// Input names, shared by the YAML file, the action inputs and the CLI flags.
const (
	InputRegistryURL           = "registry-url"
	InputAlwaysAuth            = "always-auth"
	InputScope                 = "scope"
	InputAuthURL               = "auth-url"
	InputAuthUser              = "auth-user"
	InputAuthPassword          = "auth-password"
	InputIncludeBothRegistries = "include-both-registries"
	InputPath                  = "path"
)

// Inputs are the parameters of a run.
type Inputs struct {
	RegistryURL string `yaml:"registry-url"`
	// AlwaysAuth is written verbatim to the always-auth line.
	AlwaysAuth   string `yaml:"always-auth"`
	Scope        string `yaml:"scope,omitempty"`
	AuthURL      string `yaml:"auth-url,omitempty"`
	AuthUser     string `yaml:"auth-user,omitempty"`
	AuthPassword string `yaml:"auth-password,omitempty"`
	// IncludeBothRegistries is empty or a boolean literal.
	IncludeBothRegistries string `yaml:"include-both-registries,omitempty"`
	// Path overrides the .npmrc location.
	Path string `yaml:"path,omitempty"`
}

// Default returns the inputs used when nothing else is set.
func Default() *Inputs {
	return &Inputs{
		AlwaysAuth: "false",
	}
}

// Load builds Inputs from defaults, then the YAML file at path (or
// $SETUP_NPMRC_CONFIG when path is empty), then INPUT_* action inputs.
// A named file that cannot be read or parsed is an error.
func Load(path string) (*Inputs, error) {
	in := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, in); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		log.Debug("loaded config file", "path", path)
	}

	in.applyActionInputs()
	return in, nil
}

// Fields maps input names to the fields they set.
func (in *Inputs) Fields() map[string]*string {
	return map[string]*string{
		InputRegistryURL:           &in.RegistryURL,
		InputAlwaysAuth:            &in.AlwaysAuth,
		InputScope:                 &in.Scope,
		InputAuthURL:               &in.AuthURL,
		InputAuthUser:              &in.AuthUser,
		InputAuthPassword:          &in.AuthPassword,
		InputIncludeBothRegistries: &in.IncludeBothRegistries,
		InputPath:                  &in.Path,
	}
}

// applyActionInputs overrides fields with non-empty INPUT_* variables. The
// runner sets every declared input, so empty values mean "not given".
func (in *Inputs) applyActionInputs() {
	for name, field := range in.Fields() {
		if v := actions.Input(name); v != "" {
			*field = v
		}
	}
}

// Validate checks the inputs for a run.
func (in *Inputs) Validate() error {
	if in.RegistryURL == "" {
		return fmt.Errorf("%s is required", InputRegistryURL)
	}
	u, err := url.Parse(in.RegistryURL)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", InputRegistryURL, in.RegistryURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute URL", InputRegistryURL, in.RegistryURL)
	}

	if in.AuthURL != "" {
		u, err := url.Parse(in.AuthURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: must be an absolute URL", InputAuthURL)
		}
	} else if in.AuthUser != "" || in.AuthPassword != "" {
		log.Warn("auth-user/auth-password ignored without auth-url")
	}

	if in.IncludeBothRegistries != "" {
		if _, err := strconv.ParseBool(in.IncludeBothRegistries); err != nil {
			return fmt.Errorf("invalid %s %q: must be true or false", InputIncludeBothRegistries, in.IncludeBothRegistries)
		}
	}
	return nil
}

// IncludeBoth reports whether both scoped and unscoped registry lines are
// requested. Call after Validate.
func (in *Inputs) IncludeBoth() bool {
	b, _ := strconv.ParseBool(in.IncludeBothRegistries)
	return b
}
