package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docq/internal/catalog"
	"github.com/roach88/docq/internal/config"
	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/mongostore"
	"github.com/roach88/docq/internal/store"
)

// session is an open backend plus the settings it was opened with.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	exec   docstore.Executor
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandContext uses the command's context if set (tests), otherwise
// a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openSession resolves configuration and opens the configured backend.
// Failures are reported through f.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*session, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	logger.Debug("opening backend", "backend", cfg.Backend)
	exec, err := openExecutor(ctx, cfg, logger)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeBackend, fmt.Sprintf("opening %s backend: %v", cfg.Backend, err), err)
	}
	return &session{cfg: cfg, logger: logger, exec: exec}, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.exec.Close(ctx); err != nil {
		s.logger.Error("error closing backend", "error", err)
	}
}

func openExecutor(ctx context.Context, cfg config.Config, logger *slog.Logger) (docstore.Executor, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
		defer cancel()
		ms, err := mongostore.Open(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.Timeout,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return ms, nil
	case config.BackendSQLite:
		st, err := store.Open(cfg.SQLite.Path, store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// loadCatalog loads path and reports failures through f.
func loadCatalog(f *OutputFormatter, path string) (*catalog.Catalog, error) {
	cat, err := catalog.Load(path)
	if err == nil {
		f.VerboseLog("Loaded %d entries from %s", len(cat.Entries), path)
		return cat, nil
	}
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loc := loadErr.Location(); loc != "" {
			msg = loc + ": " + msg
		}
		return nil, f.Fail(ExitCommandError, loadErr.Code, msg, err)
	}
	return nil, f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
}

// selectEntries returns the named entries, or every entry of kinds when
// names is empty. Named entries must be of one of kinds.
func selectEntries(f *OutputFormatter, cat *catalog.Catalog, names []string, kinds ...catalog.Kind) ([]catalog.Entry, error) {
	if len(names) == 0 {
		var out []catalog.Entry
		for _, e := range cat.Entries {
			if slices.Contains(kinds, e.Kind) {
				out = append(out, e)
			}
		}
		return out, nil
	}

	out := make([]catalog.Entry, 0, len(names))
	for _, name := range names {
		e, ok := cat.Lookup(name)
		if !ok {
			return nil, f.Fail(ExitCommandError, ErrCodeUnknownEntry,
				fmt.Sprintf("no entry %q in %s", name, cat.Source), nil)
		}
		if !slices.Contains(kinds, e.Kind) {
			want := make([]string, len(kinds))
			for i, k := range kinds {
				want[i] = string(k)
			}
			return nil, f.Fail(ExitCommandError, ErrCodeWrongKind,
				fmt.Sprintf("entry %q is a %s entry, want %s", name, e.Kind, strings.Join(want, " or ")), nil)
		}
		out = append(out, e)
	}
	return out, nil
}
