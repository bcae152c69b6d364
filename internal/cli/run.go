package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/docq/internal/catalog"
	"github.com/roach88/docq/internal/docstore"
)

// RunResult is the outcome of running a whole catalog.
type RunResult struct {
	Entries []EntryResult `json:"entries"`
	Failed  int           `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <catalog> [entry...]",
		Short: "Run every entry of a catalog",
		Long: `Run catalog entries against the configured backend.

Index entries run first, one at a time. Find and aggregate entries then run
concurrently on a pool of --workers goroutines. Update and delete entries
run last, one at a time, in catalog order. Results are reported in catalog
order and a failing entry does not stop the others.

Example:
  docq run --db ./books.db bookstore.cue
  docq run --backend mongo --mongo-db shop bookstore.yaml fiction top_author`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd, args[0], args[1:])
		},
	}

	cmd.Flags().IntVarP(&rootOpts.Workers, "workers", "w", 0, "concurrent read entries (default from config)")

	return cmd
}

func runCatalog(opts *RootOptions, cmd *cobra.Command, path string, names []string) error {
	f := newFormatter(opts, cmd)

	cat, err := loadCatalog(f, path)
	if err != nil {
		return err
	}
	entries, err := selectEntries(f, cat, names, catalog.Kinds...)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	sess, err := openSession(ctx, opts, cmd, f)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	results, err := executeCatalog(ctx, sess.exec, entries, sess.cfg.Workers, sess.logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}

	res := RunResult{Entries: results}
	for _, r := range results {
		if r.Failed() {
			res.Failed++
		}
	}

	if err := f.Success(res, func(w io.Writer) {
		for _, r := range results {
			writeResultText(w, r)
		}
		if res.Failed > 0 {
			fmt.Fprintf(w, "\n✗ %d of %d entries failed\n", res.Failed, len(results))
		} else {
			fmt.Fprintf(w, "\n✓ %d entries ran\n", len(results))
		}
	}); err != nil {
		return err
	}

	if res.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d of %d entries failed", ErrCodeExecFailed, res.Failed, len(results)))
	}
	return nil
}

// executeCatalog runs entries in three phases and returns their results in
// input order: indexes sequentially, reads on a pool of workers, then
// writes sequentially.
func executeCatalog(ctx context.Context, exec docstore.Executor, entries []catalog.Entry, workers int, logger *slog.Logger) ([]EntryResult, error) {
	results := make([]EntryResult, len(entries))

	var reads, writes []int
	for i, e := range entries {
		switch e.Kind {
		case catalog.KindIndex:
			logger.Debug("creating index", "entry", e.Name, "collection", e.Collection)
			results[i] = executeEntry(ctx, exec, e)
		case catalog.KindFind, catalog.KindAggregate:
			reads = append(reads, i)
		default:
			writes = append(writes, i)
		}
	}

	if len(reads) > 0 {
		if err := executeReads(ctx, exec, entries, reads, results, workers, logger); err != nil {
			return nil, err
		}
	}

	for _, i := range writes {
		logger.Debug("executing write", "entry", entries[i].Name, "kind", entries[i].Kind)
		results[i] = executeEntry(ctx, exec, entries[i])
	}
	return results, nil
}

func executeReads(ctx context.Context, exec docstore.Executor, entries []catalog.Entry, reads []int, results []EntryResult, workers int, logger *slog.Logger) error {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		logger.Error("entry panic", "panic", v)
	}))
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer func() {
		_ = pool.ReleaseTimeout(3 * time.Second)
	}()

	var wg sync.WaitGroup
	for _, i := range reads {
		e := entries[i]
		results[i] = EntryResult{Name: e.Name, Kind: e.Kind, Collection: e.Collection, Error: "entry did not complete"}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			logger.Debug("executing read", "entry", e.Name, "kind", e.Kind)
			results[i] = executeEntry(ctx, exec, e)
		})
		if err != nil {
			wg.Done()
			results[i].Error = fmt.Sprintf("submitting entry: %v", err)
		}
	}
	wg.Wait()
	return nil
}
