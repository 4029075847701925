package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/harness"
	"github.com/roach88/persistsql/internal/loader"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run rewrite scenarios",
		Long: `Run every YAML scenario under <scenarios-dir>.

Each scenario loads a package from its manifests, rewrites it, previews
statements against a fresh in-memory database and checks its assertions.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid directory or filter)

Examples:
  persistsql test ./scenarios
  persistsql test ./scenarios --filter "store_*"
  persistsql test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, nil, cmd)

	files, err := harness.FindScenarios(dir, opts.Filter)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeNotFound, err.Error())
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), dir)

	result, err := harness.RunSuite(dir, opts.Filter)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result *harness.SuiteResult) {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
