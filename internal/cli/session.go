package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistsql/internal/compiler"
	"github.com/roach88/persistsql/internal/config"
	"github.com/roach88/persistsql/internal/loader"
	"github.com/roach88/persistsql/internal/syntax"
)

// session is a loaded and analyzed manifest directory.
type session struct {
	dir       string
	config    *config.Config
	load      *loader.Result
	result    *compiler.Result
	formatter *OutputFormatter
}

// newFormatter builds the formatter for a command. The --format flag wins
// over the configured output format.
func newFormatter(opts *RootOptions, cfg *config.Config, cmd *cobra.Command) *OutputFormatter {
	format := opts.Format
	if format == "" && cfg != nil {
		format = cfg.Output
	}
	if format == "" {
		format = config.OutputText
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openSession loads the configuration and manifests of dir and analyzes
// the package. Errors are written to the command output and returned as
// an ExitError.
func openSession(opts *RootOptions, dir string, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		formatter := newFormatter(opts, nil, cmd)
		return nil, outputCommandError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("loading configuration: %v", err))
	}
	formatter := newFormatter(opts, cfg, cmd)

	res, loadErrors := loader.Load(dir, cfg.LoaderOptions(loader.ModeCollectAll))
	if len(loadErrors) > 0 {
		return nil, outputLoadErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d manifest file(s) in %s", len(res.Files), dir)

	result := compiler.Analyze(res.Package, compiler.Options{Catalog: cfg.CatalogOptions()})
	formatter.VerboseLog("Analyzed %d query pipeline(s): %d accepted, %d skipped, %d diagnostic(s)",
		result.Pipelines, len(result.Accepted), len(result.Skips), len(result.Diagnostics))

	return &session{
		dir:       dir,
		config:    cfg,
		load:      res,
		result:    result,
		formatter: formatter,
	}, nil
}

// queryAt returns the accepted query whose pipeline starts at loc. A zero
// column matches any column of the line.
func (s *session) queryAt(loc syntax.Location) (*compiler.Query, bool) {
	for _, e := range s.load.Package.Documents() {
		for _, p := range e.Doc.Pipelines() {
			q, ok := s.result.Query(p)
			if !ok {
				continue
			}
			if q.Location().Matches(loc) {
				return q, true
			}
		}
	}
	return nil, false
}

// outputCommandError outputs a single command-level error.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Command errors are exit code 2
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadErrors outputs manifest load errors.
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	if len(errs) == 1 {
		code, message := parseLoadError(errs[0])
		return outputCommandError(formatter, code, message)
	}

	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := parseLoadError(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}
	if err := formatter.Errors(fmt.Sprintf("Loading failed with %d error(s)", len(errs)), cliErrors); err != nil {
		return err
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
}

// parseLoadError extracts the code and positioned message of a load error.
func parseLoadError(err error) (code, message string) {
	var loadErr *loader.Error
	if errors.As(err, &loadErr) {
		message = loadErr.Message
		if loadErr.Pos.IsValid() {
			message = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), message)
		}
		return loadErr.Code, message
	}
	return loader.ErrCodeGeneric, err.Error()
}

// printDiagnostics writes diagnostics one per line in compiler format.
func printDiagnostics(formatter *OutputFormatter, diags []compiler.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(formatter.Writer, d.Error())
	}
}
