package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/docq/internal/catalog"
)

// ValidatedEntry summarizes one entry of a valid catalog.
type ValidatedEntry struct {
	Name        string       `json:"name"`
	Kind        catalog.Kind `json:"kind"`
	Collection  string       `json:"collection"`
	Fingerprint string       `json:"fingerprint"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool             `json:"valid"`
	Entries []ValidatedEntry `json:"entries,omitempty"`
	Error   *CLIError        `json:"error,omitempty"`
	Line    int              `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Check a catalog without touching a backend",
		Long: `Load a catalog and build every entry through the descriptor builders.

Reports the first invalid entry with its source position, or lists every
entry with its fingerprint. No backend is opened.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	cat, err := catalog.Load(path)
	if err != nil {
		var loadErr *catalog.LoadError
		if !errors.As(err, &loadErr) {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
		}
		switch loadErr.Code {
		case catalog.ErrCodeNotFound, catalog.ErrCodeUnsupported:
			return f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, err)
		}
		return outputValidationError(f, loadErr)
	}

	f.VerboseLog("Loaded %d entries from %s", len(cat.Entries), path)

	entries := make([]ValidatedEntry, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		fp, err := e.Fingerprint()
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, fmt.Sprintf("%s: %v", e.Name, err), err)
		}
		entries = append(entries, ValidatedEntry{Name: e.Name, Kind: e.Kind, Collection: e.Collection, Fingerprint: fp})
	}

	return f.Success(ValidationResult{Valid: true, Entries: entries}, func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "  %-10s %-24s %s\n", e.Kind, e.Name, e.Fingerprint[:12])
		}
		fmt.Fprintf(w, "✓ %d entries valid\n", len(entries))
	})
}

// outputValidationError reports an invalid catalog. Invalid content is a
// validation failure (exit 1), not a command error.
func outputValidationError(f *OutputFormatter, loadErr *catalog.LoadError) error {
	line := loadErr.Line
	if loadErr.Pos.IsValid() {
		line = loadErr.Pos.Line()
	}
	cliErr := &CLIError{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Err != nil {
		cliErr.Details = loadErr.Err.Error()
	}

	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Error: cliErr, Line: line},
			Error:  cliErr,
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "validation failed", loadErr)
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	if loc := loadErr.Location(); loc != "" {
		fmt.Fprintln(f.Writer, loc)
	}
	fmt.Fprintf(f.Writer, "  %s: %s\n", loadErr.Code, loadErr.Message)
	return WrapExitError(ExitFailure, "validation failed", loadErr)
}
