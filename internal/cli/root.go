// Package cli implements the wxc command line: compile filters into
// descriptors, inspect named scopes, and run queries against a SQLite
// content database.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whx4/wxc/internal/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Collections string // CUE collection definitions directory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the wxc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wxc",
		Short: "wxc - content query compiler",
		Long:  "Compiles declarative content filters into storage-ready query descriptors and runs them.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Collections, "collections", "", "directory of CUE collection definitions")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewScopesCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadRegistry builds the collection registry from --collections, or a
// minimal single-collection default when the flag is unset.
func loadRegistry(opts *RootOptions) (*registry.Registry, error) {
	if opts.Collections == "" {
		return registry.New("post",
			registry.Collection{Type: "post", Order: "DESC", OrderBy: "date"},
		), nil
	}
	reg, err := registry.Load(opts.Collections)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading collections", err)
	}
	return reg, nil
}

// logger builds the command logger: a development logger on stderr when
// verbose, a no-op otherwise.
func logger(opts *RootOptions) *zap.Logger {
	if !opts.Verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
