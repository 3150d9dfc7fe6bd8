package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/whx4/wxc/internal/query"
)

// NewCompileCommand creates the compile command: filters file in,
// canonical descriptor JSON out, without touching storage.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile <filters-file>",
		Short: "Compile a filters file into a query descriptor",
		Long: `Compile a YAML or JSON filters file into the storage-ready query
descriptor, printed as canonical JSON. Useful for debugging what a
filter set actually asks the executor for.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, args[0], output, cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *RootOptions, filtersPath, output string, cmd *cobra.Command) error {
	filters, err := loadFilters(filtersPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading filters", err)
	}

	reg, err := loadRegistry(opts)
	if err != nil {
		return err
	}

	q := query.New(reg, nil, query.WithLogger(logger(opts)))
	d, trace := q.Compile(filters)

	data, err := query.MarshalCanonical(d)
	if err != nil {
		return WrapExitError(ExitFailure, "rendering descriptor", err)
	}

	if output != "" {
		return writeFile(output, data)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		_, err = out.Writer.Write(data)
		return err
	}
	out.Line("collection: %s", d.CollectionType)
	if !trace.Bounds.IsZero() {
		out.Line("scope:      [%s .. %s] (%s)", trace.Bounds.Start, trace.Bounds.End, trace.Mode)
	}
	out.Line("descriptor:")
	_, err = out.Writer.Write(data)
	return err
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "writing output file", err)
	}
	return nil
}
