// Package cli implements the setup-npmrc command-line interface using Cobra.
// The root command writes registry authentication into an .npmrc for the
// current CI job.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/majorcontext/setup-npmrc/internal/actions"
	"github.com/majorcontext/setup-npmrc/internal/config"
	"github.com/majorcontext/setup-npmrc/internal/log"
	"github.com/majorcontext/setup-npmrc/internal/npmrc"
	"github.com/majorcontext/setup-npmrc/internal/secrets"
	"github.com/majorcontext/setup-npmrc/internal/ui"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbose bool
	jsonOut bool
}

// inputFlags lists the flags that override config inputs, in help order.
var inputFlags = []struct {
	name  string
	usage string
}{
	{config.InputRegistryURL, "registry URL (same as the positional argument)"},
	{config.InputAlwaysAuth, "value written to always-auth (default \"false\")"},
	{config.InputScope, "package scope routed to the registry; defaults to the repository owner on npm.pkg.github.com"},
	{config.InputAuthURL, "endpoint returning \"_auth = <token>\"; without it the token is ${NODE_AUTH_TOKEN}"},
	{config.InputAuthUser, "basic auth user for auth-url (op:// and awssm:// references are resolved)"},
	{config.InputAuthPassword, "basic auth password for auth-url (op:// and awssm:// references are resolved)"},
	{config.InputIncludeBothRegistries, "with a scope, also set the unscoped registry"},
	{config.InputPath, "write this file instead of $RUNNER_TEMP/.npmrc"},
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	var configPath string
	flagValues := &config.Inputs{}

	cmd := &cobra.Command{
		Use:   "setup-npmrc [registry-url]",
		Short: "Configure npm registry authentication for a CI job",
		Long: `setup-npmrc writes registry authentication into an .npmrc for later
steps of a CI job.

The file is $RUNNER_TEMP/.npmrc (or ./.npmrc). Existing settings are kept,
except registry lines, which are replaced. The file location is exported as
NPM_CONFIG_USERCONFIG and the token as NODE_AUTH_TOKEN.

Inputs come from, in increasing precedence: a YAML file (--config or
$SETUP_NPMRC_CONFIG), action inputs (INPUT_*), and flags.

Examples:
  setup-npmrc https://registry.npmjs.org
  setup-npmrc https://npm.pkg.github.com --always-auth=true
  setup-npmrc https://npm.company.com --scope myorg --include-both-registries \
    --auth-url https://npm.company.com/auth --auth-user ci --auth-password "$PASS"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Init(log.Options{
				Verbose:    g.verbose,
				JSONFormat: g.jsonOut,
				Stderr:     cmd.ErrOrStderr(),
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, inputs, flagValues, args)
			return runSetup(cmd, inputs, g)
		},
	}

	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML inputs file (env: "+config.EnvConfigFile+")")

	fields := flagValues.Fields()
	for _, f := range inputFlags {
		cmd.Flags().StringVar(fields[f.name], f.name, "", f.usage)
	}
	cmd.Flags().Lookup(config.InputIncludeBothRegistries).NoOptDefVal = "true"

	cmd.AddCommand(newInspectCmd(g), newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := newRootCmd()
	err := cmd.Execute()
	if err != nil {
		if actions.InActions() {
			actions.ErrorAnnotation(cmd.OutOrStdout(), err)
		} else {
			ui.Error(err.Error())
		}
	}
	return err
}

// applyFlags copies explicitly set flags, then the positional registry URL,
// over inputs.
func applyFlags(cmd *cobra.Command, inputs, flagValues *config.Inputs, args []string) {
	fields := inputs.Fields()
	for name, value := range flagValues.Fields() {
		if cmd.Flags().Changed(name) {
			*fields[name] = *value
		}
	}
	if len(args) == 1 {
		inputs.RegistryURL = args[0]
	}
}

func runSetup(cmd *cobra.Command, inputs *config.Inputs, g *globalFlags) error {
	if err := inputs.Validate(); err != nil {
		return err
	}

	var owner string
	if inputs.Scope == "" && strings.Contains(inputs.RegistryURL, npmrc.GitHubPackagesHost) {
		owner = actions.RepositoryOwner()
		if owner == "" {
			ui.Warn("could not determine the repository owner; writing an unscoped registry")
		}
	}

	ctx := cmd.Context()
	env := actions.NewEnv(cmd.OutOrStdout())
	user, err := resolveSecretInput(ctx, env, config.InputAuthUser, inputs.AuthUser)
	if err != nil {
		return err
	}
	password, err := resolveSecretInput(ctx, env, config.InputAuthPassword, inputs.AuthPassword)
	if err != nil {
		return err
	}

	writer := npmrc.NewWriter(npmrc.NewResolver(npmrc.ResolverConfig{}), env)
	res, err := writer.Write(ctx, npmrc.Options{
		RegistryURL:           inputs.RegistryURL,
		AlwaysAuth:            inputs.AlwaysAuth,
		Scope:                 inputs.Scope,
		Owner:                 owner,
		IncludeBothRegistries: inputs.IncludeBoth(),
		Credentials: npmrc.Credentials{
			AuthURL:  inputs.AuthURL,
			User:     user,
			Password: password,
		},
		Path:    inputs.Path,
		TempDir: os.Getenv(actions.EnvRunnerTemp),
	})
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), res, g.jsonOut)
}

// resolveSecretInput resolves a secret reference given for an input. Resolved
// values are masked in the job log before anything else can print them.
func resolveSecretInput(ctx context.Context, env *actions.Env, name, value string) (string, error) {
	resolved, isRef, err := secrets.ResolveValue(ctx, value)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}
	if isRef {
		log.Debug("resolved secret reference", "input", name, "reference", value)
		env.SetSecret(resolved)
	}
	return resolved, nil
}

// setupResult is the --json form of a run. It never carries the token.
type setupResult struct {
	Path        string `json:"path"`
	Registry    string `json:"registry"`
	Scope       string `json:"scope,omitempty"`
	TokenSource string `json:"token_source"`
}

func printResult(w io.Writer, res *npmrc.Result, jsonOut bool) error {
	source := "auth-url"
	if res.Placeholder {
		source = npmrc.EnvAuthToken
	}

	if jsonOut {
		return json.NewEncoder(w).Encode(setupResult{
			Path:        res.Path,
			Registry:    res.Target.URL,
			Scope:       res.Target.Scope,
			TokenSource: source,
		})
	}

	fmt.Fprintf(w, "%s Configured %s in %s\n", ui.OKTag(), ui.Bold(res.Target.URL), res.Path)
	if res.Target.Scope != "" {
		fmt.Fprintf(w, "  %s %s\n", ui.Dim("scope:"), res.Target.Scope)
	}
	fmt.Fprintf(w, "  %s %s\n", ui.Dim("token:"), source)
	return nil
}
