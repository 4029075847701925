package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/persistsql/internal/ir"
	"github.com/roach88/persistsql/internal/loader"
	"github.com/roach88/persistsql/internal/querysql"
	"github.com/roach88/persistsql/internal/store"
	"github.com/roach88/persistsql/internal/syntax"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Database string   // SQLite path; empty uses persistsql.yaml database or memory
	Bindings []string // name=value pairs for clause parameters
	Seed     string   // YAML file of rows keyed by table
}

// PreviewResult holds the statement and rows of a preview.
type PreviewResult struct {
	Location    syntax.Location `json:"location"`
	SQL         string          `json:"sql"`
	Normalized  string          `json:"normalized"`
	Parameters  []string        `json:"parameters,omitempty"`
	BindingHash string          `json:"binding_hash"`
	Rows        []ir.IRObject   `json:"rows"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview <manifest-dir> <file:line[:col]>",
		Short: "Run the statement of an accepted query against SQLite",
		Long: `Compile the accepted query at <file:line[:col]> into the SELECT statement
its rewritten client call stands for, bind its parameters and run it
against a SQLite database.

Entity tables are created from the record types of the entity file.
Parameters are bound by source text, e.g. --bind value=3 or
--bind 'getName()="x"'. Values are JSON; anything else is a string.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (default: persistsql.yaml database, else in-memory)")
	cmd.Flags().StringArrayVarP(&opts.Bindings, "bind", "b", nil, "parameter binding name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML file of rows to insert, keyed by table")

	return cmd
}

func runPreview(opts *PreviewOptions, dir, at string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, dir, cmd)
	if err != nil {
		return err
	}
	formatter := s.formatter

	loc, err := syntax.ParseLocation(at)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
	}
	q, ok := s.queryAt(loc)
	if !ok {
		return outputCommandError(formatter, loader.ErrCodeNotFound, fmt.Sprintf("no accepted query at %s", at))
	}

	compiled, err := querysql.CompilePipeline(q.Pipeline, q.Table)
	if err != nil {
		_ = formatter.Error(loader.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "query cannot be compiled", err)
	}

	sc := querysql.NewSQLCompiler()
	bindings := ir.IRObject{}
	for _, b := range opts.Bindings {
		name, value, err := ir.ParseBinding(b)
		if err != nil {
			return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
		}
		sc.BoundValues[name] = value
		bindings[name] = value
	}
	stmt, params, err := sc.Compile(compiled)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
	}
	normalized, err := querysql.Check(stmt)
	if err != nil {
		_ = formatter.Error(loader.ErrCodeGeneric, err.Error(), stmt)
		return WrapExitError(ExitFailure, "statement rejected", err)
	}
	hash, err := ir.BindingHash(bindings)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Statement: %s", normalized)

	rows, err := previewRows(cmd.Context(), opts, s, stmt, params)
	if err != nil {
		return outputCommandError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("preview: %v", err))
	}

	result := PreviewResult{
		Location:    q.Location(),
		SQL:         stmt,
		Normalized:  normalized,
		BindingHash: hash,
		Rows:        rows,
	}
	for _, slot := range querysql.Placeholders(compiled) {
		result.Parameters = append(result.Parameters, slot.Source())
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputPreviewText(formatter, result)
}

// previewRows opens the database, creates the entity tables, inserts the
// seed rows and runs the statement.
func previewRows(ctx context.Context, opts *PreviewOptions, s *session, stmt string, params []any) ([]ir.IRObject, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path := opts.Database
	if path == "" {
		path = s.config.Database
	}
	if path == "" {
		path = store.MemoryPath
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	for _, td := range entityTypes(s) {
		if err := st.CreateTable(ctx, store.TableFor(td)); err != nil {
			return nil, err
		}
	}

	if opts.Seed != "" {
		seed, err := readSeed(opts.Seed)
		if err != nil {
			return nil, err
		}
		tables := make([]string, 0, len(seed))
		for table := range seed {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			n, err := st.InsertRows(ctx, table, seed[table])
			if err != nil {
				return nil, err
			}
			s.formatter.VerboseLog("Seeded %d row(s) into %s", n, table)
		}
	}

	return st.Preview(ctx, stmt, params)
}

// entityTypes returns the closed record types of the entity documents.
func entityTypes(s *session) []*syntax.TypeDef {
	var out []*syntax.TypeDef
	for _, e := range s.load.Package.Documents() {
		if e.Doc.Name != s.config.EntityFile {
			continue
		}
		for _, m := range e.Doc.Members {
			if td, ok := m.(*syntax.TypeDef); ok && td.Closed && len(td.Fields) > 0 {
				out = append(out, td)
			}
		}
	}
	return out
}

// readSeed reads a YAML document mapping table names to lists of rows.
func readSeed(path string) (map[string][]ir.IRObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	seed := make(map[string][]ir.IRObject, len(raw))
	for table, rows := range raw {
		for i, row := range rows {
			obj := make(ir.IRObject, len(row))
			for col, raw := range row {
				v, err := ir.FromGo(raw)
				if err != nil {
					return nil, fmt.Errorf("seed %s row %d column %s: %w", table, i, col, err)
				}
				obj[col] = v
			}
			seed[table] = append(seed[table], obj)
		}
	}
	return seed, nil
}

// outputPreviewText outputs a preview in text form.
func outputPreviewText(formatter *OutputFormatter, result PreviewResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "%s\n", result.SQL)
	if len(result.Parameters) > 0 {
		fmt.Fprintf(w, "parameters: %v\n", result.Parameters)
	}
	fmt.Fprintf(w, "\n%d row(s)\n", len(result.Rows))
	for _, row := range result.Rows {
		data, err := ir.MarshalCanonical(row)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s\n", data)
	}
	return nil
}
