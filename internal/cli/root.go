package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/config"
)

// RootOptions holds the persistent flags shared by every command.
type RootOptions struct {
	Verbose bool
	Format  string // empty defers to the output setting of persistsql.yaml
}

// ValidFormats lists the values accepted by --format.
var ValidFormats = []string{config.OutputText, config.OutputJSON}

// NewRootCommand creates the persistsql command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "persistsql",
		Short: "persistsql - push query clauses down into persist client calls",
		Long: `Compile the where, order by, group by and limit clauses of query
expressions over persist clients into SQL fragments, and rewrite each
client call so the database does the filtering.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "" && !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			slog.SetDefault(newLogger(cmd, opts))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logs")
	flags.StringVar(&opts.Format, "format", "", "output format (json|text), defaults to persistsql.yaml output")

	cmd.AddCommand(
		NewCheckCommand(opts),
		NewRewriteCommand(opts),
		NewExplainCommand(opts),
		NewPreviewCommand(opts),
		NewHistoryCommand(opts),
		NewTestCommand(opts),
	)
	return cmd
}

// newLogger logs to stderr: warnings only, or everything from debug up with
// --verbose. JSON output gets JSON log lines.
func newLogger(cmd *cobra.Command, opts *RootOptions) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if opts.Format == config.OutputJSON {
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), hopts))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), hopts))
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
