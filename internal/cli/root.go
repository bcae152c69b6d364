package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/docq/internal/config"
)

// RootOptions holds global flags for all commands.
//
// Backend settings left at their zero value fall through to the config
// file, then DOCQ_ environment variables, then defaults.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigFile    string
	Backend       string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	Workers       int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the docq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docq",
		Short: "docq - typed query descriptors for document stores",
		Long: `Build, translate and execute validated document-store queries.

Queries live in catalogs (CUE or YAML files of named find, aggregate, index,
update and delete entries). docq translates them to MongoDB commands or to
SQLite SQL over a JSON document table, and runs them against either backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.Backend, "backend", "", "executor backend (sqlite|mongo)")
	flags.StringVar(&opts.SQLitePath, "db", "", "path to SQLite database")
	flags.StringVar(&opts.MongoURI, "mongo-uri", "", "MongoDB connection URI")
	flags.StringVar(&opts.MongoDatabase, "mongo-db", "", "MongoDB database name")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Config resolves the effective configuration. Flags set on the command
// line win over every other source.
func (o *RootOptions) Config() (config.Config, error) {
	v := config.New()
	overrides := map[string]string{
		config.KeyBackend:       o.Backend,
		config.KeySQLitePath:    o.SQLitePath,
		config.KeyMongoURI:      o.MongoURI,
		config.KeyMongoDatabase: o.MongoDatabase,
	}
	for key, val := range overrides {
		if val != "" {
			v.Set(key, val)
		}
	}
	if o.Workers > 0 {
		v.Set(config.KeyWorkers, o.Workers)
	}
	if o.Verbose {
		v.Set(config.KeyLogLevel, "debug")
	}
	return config.Load(v, o.ConfigFile)
}

// newLogger builds the process logger on w. Diagnostics always go to
// stderr so JSON output on stdout stays parseable.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
