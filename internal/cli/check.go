package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/compiler"
)

// CheckResult holds analysis results.
type CheckResult struct {
	Valid       bool                  `json:"valid"`
	Pipelines   int                   `json:"pipelines"`
	Accepted    int                   `json:"accepted"`
	Skips       []compiler.Skip       `json:"skips,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <manifest-dir>",
		Short: "Report misuse of persist client calls in query expressions",
		Long: `Load the package described by the CUE manifests in <manifest-dir>,
register its entities and clients, and classify every query expression.

Queries that pass explicit clause arguments, filter on array fields or
place 'group by' before 'where' or 'order by' are reported as errors.
Nothing is rewritten.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, dir string, cmd *cobra.Command) error {
	s, err := openSession(opts, dir, cmd)
	if err != nil {
		return err
	}
	res := s.result
	formatter := s.formatter

	for _, skip := range res.Skips {
		formatter.VerboseLog("skip %s: %s", skip.Location, skip.Reason)
	}

	result := CheckResult{
		Valid:       !res.HasErrors(),
		Pipelines:   res.Pipelines,
		Accepted:    len(res.Accepted),
		Skips:       res.Skips,
		Diagnostics: res.Diagnostics,
	}

	if result.Valid {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %d of %d query pipeline(s) accepted, %d skipped\n",
			result.Accepted, result.Pipelines, len(result.Skips))
		return nil
	}

	if formatter.JSON() {
		first := res.Diagnostics[0]
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		printDiagnostics(formatter, res.Diagnostics)
		fmt.Fprintf(formatter.Writer, "✗ %d error(s), %d of %d query pipeline(s) accepted\n",
			len(res.Diagnostics), result.Accepted, result.Pipelines)
	}

	// Diagnostics = exit code 1 (analysis failure)
	return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s)", len(res.Diagnostics)))
}
