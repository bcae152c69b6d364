package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/docq/internal/bsonwire"
	"github.com/roach88/docq/internal/catalog"
	"github.com/roach88/docq/internal/querysql"
)

// Compile targets.
const (
	TargetMongo = "mongo"
	TargetSQL   = "sql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Target string // "mongo" | "sql"
	Output string // output file path
}

// CompiledEntry is one entry translated for a target.
type CompiledEntry struct {
	Name        string       `json:"name"`
	Kind        catalog.Kind `json:"kind"`
	Collection  string       `json:"collection"`
	Fingerprint string       `json:"fingerprint"`
	Command     string       `json:"command,omitempty"`
	SQL         string       `json:"sql,omitempty"`
	Params      []any        `json:"params,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog> [entry...]",
		Short: "Translate catalog entries without running them",
		Long: `Translate catalog entries to MongoDB shell commands or to SQLite SQL.

Nothing is executed and no backend is opened. With no entry names every
entry of the catalog is compiled.

Example:
  docq compile bookstore.cue
  docq compile --target sql bookstore.cue top_author`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", TargetMongo, "translation target (mongo|sql)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "also write the JSON result to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, names []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Target != TargetMongo && opts.Target != TargetSQL {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid target %q: must be mongo or sql", opts.Target), nil)
	}

	cat, err := loadCatalog(f, path)
	if err != nil {
		return err
	}
	entries, err := selectEntries(f, cat, names, catalog.Kinds...)
	if err != nil {
		return err
	}

	compiled := make([]CompiledEntry, 0, len(entries))
	for _, e := range entries {
		f.VerboseLog("Compiling %s %s", e.Kind, e.Name)
		c, err := compileEntry(e, opts.Target)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("%s: %v", e.Name, err), err)
		}
		compiled = append(compiled, c)
	}

	if opts.Output != "" {
		if err := writeCompiledToFile(compiled, opts.Output); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), err)
		}
	}

	return f.Success(compiled, func(w io.Writer) {
		for i, c := range compiled {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeCompiledText(w, c)
		}
	})
}

func compileEntry(e catalog.Entry, target string) (CompiledEntry, error) {
	fp, err := e.Fingerprint()
	if err != nil {
		return CompiledEntry{}, err
	}
	c := CompiledEntry{Name: e.Name, Kind: e.Kind, Collection: e.Collection, Fingerprint: fp}

	if target == TargetMongo {
		switch e.Kind {
		case catalog.KindFind:
			if e.Explain {
				c.Command = bsonwire.ShellExplain(e.Collection, e.Query)
			} else {
				c.Command = bsonwire.ShellFind(e.Collection, e.Query)
			}
		case catalog.KindAggregate:
			c.Command = bsonwire.ShellAggregate(e.Collection, e.Pipeline)
		case catalog.KindIndex:
			c.Command = bsonwire.ShellCreateIndex(e.Collection, e.Index)
		case catalog.KindUpdate:
			c.Command = bsonwire.ShellUpdateOne(e.Collection, e.Update)
		case catalog.KindDelete:
			c.Command = bsonwire.ShellDeleteOne(e.Collection, e.Filter)
		}
		return c, nil
	}

	compiler := querysql.NewSQLCompiler()
	switch e.Kind {
	case catalog.KindFind:
		if e.Explain {
			c.SQL, c.Params, err = compiler.CompileExplain(e.Collection, e.Query)
		} else {
			c.SQL, c.Params, err = compiler.CompileFind(e.Collection, e.Query)
		}
	case catalog.KindAggregate:
		c.SQL, c.Params, err = compiler.CompileAggregate(e.Collection, e.Pipeline)
	case catalog.KindIndex:
		c.SQL, err = compiler.CompileCreateIndex(e.Collection, e.Index)
	case catalog.KindUpdate:
		c.SQL, c.Params, err = compiler.CompileUpdateOne(e.Collection, e.Update)
	case catalog.KindDelete:
		c.SQL, c.Params, err = compiler.CompileDeleteOne(e.Collection, e.Filter)
	}
	return c, err
}

func writeCompiledText(w io.Writer, c CompiledEntry) {
	if c.Command != "" {
		fmt.Fprintf(w, "// %s\n%s\n", c.Name, c.Command)
		return
	}
	fmt.Fprintf(w, "-- %s\n%s;\n", c.Name, c.SQL)
	if len(c.Params) > 0 {
		params, err := json.Marshal(c.Params)
		if err != nil {
			params = []byte(fmt.Sprint(c.Params))
		}
		fmt.Fprintf(w, "-- params: %s\n", params)
	}
}

// writeCompiledToFile writes the compiled entries as indented JSON.
func writeCompiledToFile(compiled []CompiledEntry, filename string) error {
	data, err := json.MarshalIndent(compiled, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
