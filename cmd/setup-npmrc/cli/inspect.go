package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/majorcontext/setup-npmrc/internal/actions"
	"github.com/majorcontext/setup-npmrc/internal/log"
	"github.com/majorcontext/setup-npmrc/internal/npmrc"
)

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [path]",
		Short: "Show the registries configured in an .npmrc",
		Long: `Show the registries configured in an .npmrc, with tokens redacted.

Without a path, inspects $NPM_CONFIG_USERCONFIG, then $RUNNER_TEMP/.npmrc,
then ./.npmrc.

Examples:
  setup-npmrc inspect
  setup-npmrc inspect ~/.npmrc --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := inspectPath(args)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening npmrc: %w", err)
			}
			defer f.Close()

			entries, err := npmrc.ParseNpmrc(f)
			if err != nil {
				return err
			}
			for i := range entries {
				if entries[i].TokenSource == npmrc.SourceLiteral {
					entries[i].Token = log.Redacted(entries[i].Token)
				}
			}

			out := cmd.OutOrStdout()
			if g.jsonOut {
				return json.NewEncoder(out).Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No registries configured in %s\n", path)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tTOKEN\tSCOPES\tDEFAULT")
			for _, e := range entries {
				token := e.Token
				if token == "" {
					token = "-"
				}
				scopes := strings.Join(e.Scopes, ",")
				if scopes == "" {
					scopes = "-"
				}
				def := ""
				if e.Default {
					def = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Host, token, scopes, def)
			}
			return w.Flush()
		},
	}
}

func inspectPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if p := os.Getenv(npmrc.EnvUserConfig); p != "" {
		return p, nil
	}
	return npmrc.ResolvePath(os.Getenv(actions.EnvRunnerTemp))
}
