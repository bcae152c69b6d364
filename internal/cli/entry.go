package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/docq/internal/catalog"
	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/value"
)

// EntryResult is the outcome of executing one catalog entry.
type EntryResult struct {
	Name       string                  `json:"name"`
	Kind       catalog.Kind            `json:"kind"`
	Collection string                  `json:"collection"`
	Documents  []docstore.Document     `json:"documents,omitempty"`
	Plan       *docstore.ExplainReport `json:"plan,omitempty"`
	Index      string                  `json:"index,omitempty"`
	Matched    *int64                  `json:"matched,omitempty"`
	Deleted    *int64                  `json:"deleted,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// Failed reports whether the backend rejected the entry.
func (r EntryResult) Failed() bool {
	return r.Error != ""
}

// executeEntry runs e once. Find entries marked Explain return their plan.
func executeEntry(ctx context.Context, exec docstore.Executor, e catalog.Entry) EntryResult {
	r := EntryResult{Name: e.Name, Kind: e.Kind, Collection: e.Collection}
	var err error

	switch e.Kind {
	case catalog.KindFind:
		if e.Explain {
			var plan docstore.ExplainReport
			if plan, err = exec.Explain(ctx, e.Collection, e.Query); err == nil {
				r.Plan = &plan
			}
		} else {
			r.Documents, err = exec.Find(ctx, e.Collection, e.Query)
		}
	case catalog.KindAggregate:
		r.Documents, err = exec.Aggregate(ctx, e.Collection, e.Pipeline)
	case catalog.KindIndex:
		r.Index, err = exec.CreateIndex(ctx, e.Collection, e.Index)
	case catalog.KindUpdate:
		var n int64
		if n, err = exec.UpdateOne(ctx, e.Collection, e.Update); err == nil {
			r.Matched = &n
		}
	case catalog.KindDelete:
		var n int64
		if n, err = exec.DeleteOne(ctx, e.Collection, e.Filter); err == nil {
			r.Deleted = &n
		}
	default:
		err = fmt.Errorf("unknown entry kind %q", e.Kind)
	}

	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// writeResultText prints one result for humans.
func writeResultText(w io.Writer, r EntryResult) {
	fmt.Fprintf(w, "== %s (%s %s)\n", r.Name, r.Kind, r.Collection)
	switch {
	case r.Failed():
		fmt.Fprintf(w, "✗ %s\n", r.Error)
	case r.Plan != nil:
		writePlanText(w, *r.Plan)
	case r.Index != "":
		fmt.Fprintf(w, "✓ index %s\n", r.Index)
	case r.Matched != nil:
		fmt.Fprintf(w, "✓ matched %d document(s)\n", *r.Matched)
	case r.Deleted != nil:
		fmt.Fprintf(w, "✓ deleted %d document(s)\n", *r.Deleted)
	default:
		for _, doc := range r.Documents {
			data, err := value.Marshal(doc)
			if err != nil {
				fmt.Fprintf(w, "  <unprintable: %v>\n", err)
				continue
			}
			fmt.Fprintf(w, "  %s\n", data)
		}
		fmt.Fprintf(w, "✓ %d document(s)\n", len(r.Documents))
	}
}

func writePlanText(w io.Writer, plan docstore.ExplainReport) {
	fmt.Fprintf(w, "plan (%s):\n", plan.Backend)
	for _, s := range plan.Steps {
		fmt.Fprintf(w, "  [%d<-%d] %s\n", s.ID, s.Parent, s.Detail)
	}
	if len(plan.Steps) == 0 && plan.Raw != nil {
		data, err := value.Marshal(plan.Raw)
		if err == nil {
			fmt.Fprintf(w, "  %s\n", data)
		}
	}
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return newEntryCommand(rootOpts, "find", "Run a find entry",
		`Run one find entry of a catalog and print the matching documents.

Entries marked explain print their query plan instead.

Example:
  docq find --db ./books.db bookstore.cue fiction`,
		false, catalog.KindFind)
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	return newEntryCommand(rootOpts, "aggregate", "Run an aggregate entry",
		`Run one aggregation pipeline of a catalog and print its output documents.

Example:
  docq aggregate --db ./books.db bookstore.cue top_author`,
		false, catalog.KindAggregate)
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return newEntryCommand(rootOpts, "explain", "Show the query plan of a find entry",
		`Ask the backend how it would run a find entry, without running it.

SQLite reports EXPLAIN QUERY PLAN rows; MongoDB reports the executionStats
explain document.

Example:
  docq explain --db ./books.db bookstore.cue hobbit_plan`,
		true, catalog.KindFind)
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return newEntryCommand(rootOpts, "update", "Run an update entry",
		`Apply one update entry to the first matching document.

Example:
  docq update --db ./books.db bookstore.cue hobbit_price`,
		false, catalog.KindUpdate)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return newEntryCommand(rootOpts, "delete", "Run a delete entry",
		`Delete the first document matching one delete entry.

Example:
  docq delete --db ./books.db bookstore.cue animal_farm`,
		false, catalog.KindDelete)
}

func newEntryCommand(rootOpts *RootOptions, use, short, long string, explain bool, kind catalog.Kind) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <catalog> <entry>",
		Short:         short,
		Long:          long,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntries(rootOpts, cmd, args[0], args[1:], explain, kind)
		},
	}
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index <catalog> [entry...]",
		Short: "Create the index entries of a catalog",
		Long: `Create the named index entries, or every index entry of the catalog.
Creating an index that already exists is not an error.

Example:
  docq index --db ./books.db bookstore.cue
  docq index --db ./books.db bookstore.cue author_year`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntries(rootOpts, cmd, args[0], args[1:], false, catalog.KindIndex)
		},
	}
}

// runEntries executes the selected entries in catalog order and stops at
// the first failure.
func runEntries(opts *RootOptions, cmd *cobra.Command, path string, names []string, explain bool, kind catalog.Kind) error {
	f := newFormatter(opts, cmd)

	cat, err := loadCatalog(f, path)
	if err != nil {
		return err
	}
	entries, err := selectEntries(f, cat, names, kind)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	sess, err := openSession(ctx, opts, cmd, f)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	results := make([]EntryResult, 0, len(entries))
	for _, e := range entries {
		if explain {
			e.Explain = true
		}
		sess.logger.Debug("executing entry", "entry", e.Name, "kind", e.Kind, "collection", e.Collection)
		r := executeEntry(ctx, sess.exec, e)
		if r.Failed() {
			return f.Fail(ExitFailure, ErrCodeExecFailed, fmt.Sprintf("%s: %s", r.Name, r.Error), nil)
		}
		results = append(results, r)
	}

	var data any = results
	if len(names) == 1 {
		data = results[0]
	}
	return f.Success(data, func(w io.Writer) {
		for _, r := range results {
			writeResultText(w, r)
		}
	})
}
