package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/whx4/wxc/internal/scope"
)

// NewScopesCommand creates the scopes command group: list names and
// resolve tokens to concrete bounds.
func NewScopesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scopes",
		Short:         "List and resolve named date scopes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScopesList(rootOpts, cmd)
		},
	}

	cmd.AddCommand(newScopesResolveCommand(rootOpts))

	return cmd
}

func newScopesResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		mode string
		on   string
	)

	cmd := &cobra.Command{
		Use:   "resolve <token>",
		Short: "Resolve a scope token into date bounds",
		Long: `Resolve a scope token ("today", "this_month", "2022-2025", ...) into
concrete inclusive bounds. Unknown tokens fall back to today rather
than failing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScopesResolve(rootOpts, args[0], mode, on, cmd)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "date", "resolution mode (date|datetime)")
	cmd.Flags().StringVar(&on, "on", "", "anchor date, YYYY-MM-DD (default today)")

	return cmd
}

func runScopesList(opts *RootOptions, cmd *cobra.Command) error {
	resolver := scope.NewResolver(time.Local, 1)
	names := resolver.Names()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.JSON(map[string]any{"scopes": names})
	}
	for _, name := range names {
		out.Line("%s", name)
	}
	return nil
}

func runScopesResolve(opts *RootOptions, token, mode, on string, cmd *cobra.Command) error {
	resolveOpts := scope.Options{Mode: scope.NormalizeMode(mode)}
	if on != "" {
		anchor, err := time.ParseInLocation("2006-01-02", on, time.Local)
		if err != nil {
			return WrapExitError(ExitCommandError, "parsing --on date", err)
		}
		resolveOpts.Now = anchor
	}

	resolver := scope.NewResolver(time.Local, 1)
	bounds := resolver.Resolve(scope.Named(token), resolveOpts)

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.JSON(map[string]any{
			"token":  token,
			"mode":   resolveOpts.Mode,
			"bounds": bounds,
		})
	}
	out.Line("%s => [%s .. %s]", token, bounds.Start, bounds.End)
	return nil
}
