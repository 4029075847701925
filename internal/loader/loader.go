// Package loader reads CUE manifests that describe a package of documents
// and builds the syntax tree the analyzer works on.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/persistsql/internal/syntax"
)

// Mode controls how errors are handled during loading.
type Mode int

const (
	// ModeFailFast stops on the first error encountered.
	ModeFailFast Mode = iota
	// ModeCollectAll collects all errors before returning.
	ModeCollectAll
)

// DefaultPattern selects every manifest below the load directory.
const DefaultPattern = "**/*.cue"

// Options configures a load.
type Options struct {
	// Patterns are doublestar globs relative to the load directory.
	// Empty means DefaultPattern.
	Patterns []string
	Mode     Mode
}

// Result contains the results of loading manifests from a directory.
type Result struct {
	Package *syntax.Package
	Value   cue.Value // unified manifest value
	Files   []string  // manifest paths, relative to the load directory
}

// Error code constants shared by every command.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No manifest files found
	ErrCodeLoadFailed  = "E004" // Manifest file could not be read or compiled
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Manifests do not unify
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeParse  = "E101" // Statement or query does not parse
	ErrCodeSchema = "E102" // Manifest violates the schema
)

// Error represents an error that occurred while loading manifests.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load finds the manifests in dir, unifies them and compiles the package
// they declare.
// If opts.Mode is ModeFailFast, returns on the first file error.
// If opts.Mode is ModeCollectAll, every file is compiled and all errors
// are returned.
func Load(dir string, opts Options) (*Result, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindManifests(dir, opts.Patterns)
	if err != nil {
		return nil, []error{&Error{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&Error{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no manifest files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	var errs []error
	var values []cue.Value
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", name, err)})
		} else {
			v := ctx.CompileBytes(data, cue.Filename(path))
			if err := v.Err(); err != nil {
				errs = append(errs, convertError(err, ErrCodeLoadFailed))
			} else {
				values = append(values, v)
			}
		}
		if len(errs) > 0 && opts.Mode == ModeFailFast {
			return nil, errs
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	value := values[0]
	for _, v := range values[1:] {
		value = value.Unify(v)
	}
	if err := value.Validate(); err != nil {
		return nil, []error{convertError(err, ErrCodeBuildFailed)}
	}

	result := &Result{Value: value, Files: files}
	pkg, err := CompilePackage(value)
	if err != nil {
		return result, []error{convertError(err, ErrCodeGeneric)}
	}
	result.Package = pkg

	slog.Debug("manifests loaded",
		"dir", dir,
		"files", len(files),
		"package", pkg.Name,
		"documents", len(pkg.Documents()))
	return result, nil
}

// FindManifests returns the files below dir matching any of patterns,
// sorted and without duplicates.
func FindManifests(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// convertError converts a compile error to an Error with position info.
func convertError(err error, fallback string) *Error {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &Error{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	if ce, ok := formatCUEError(err).(*CompileError); ok {
		return &Error{Code: fallback, Message: ce.Message, Pos: ce.Pos}
	}
	return &Error{Code: fallback, Message: err.Error()}
}

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "statements", "queries":
		return ErrCodeParse
	case "cue", "project", "name", "type", "source":
		return ErrCodeSchema
	default:
		return ErrCodeGeneric
	}
}
