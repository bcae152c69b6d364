package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/docq/internal/docstore"
	"github.com/roach88/docq/internal/value"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Collection string
}

// LoadResult reports the documents a seed file inserted.
type LoadResult struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <seed-file>",
		Short: "Insert seed documents into a collection",
		Long: `Insert the documents of a YAML or JSON seed file into a collection.

The file holds a list of objects. Documents without "_id" get a generated
identity; reusing an identity already in the collection is an error.

Example:
  docq load --db ./books.db --collection books books.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Collection, "collection", "c", "books", "target collection")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Collection == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "collection must not be empty", nil)
	}

	docs, err := readSeed(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeSeedFailed, err.Error(), err)
	}
	f.VerboseLog("Read %d documents from %s", len(docs), path)

	ctx := commandContext(cmd)
	sess, err := openSession(ctx, opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	ids, err := sess.exec.Insert(ctx, opts.Collection, docs...)
	if err != nil {
		msg := fmt.Sprintf("inserting into %s: %v", opts.Collection, err)
		if errors.Is(err, docstore.ErrDuplicateID) {
			msg = fmt.Sprintf("inserting into %s: a document reuses an existing _id", opts.Collection)
		}
		return f.Fail(ExitFailure, ErrCodeExecFailed, msg, err)
	}
	sess.logger.Debug("seeded collection", "collection", opts.Collection, "count", len(ids))

	return f.Success(LoadResult{Collection: opts.Collection, IDs: ids}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ inserted %d document(s) into %s\n", len(ids), opts.Collection)
	})
}

// readSeed reads a list of documents from a .yaml, .yml or .json file.
func readSeed(path string) ([]docstore.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var items []any
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		raw = items
	case ".json":
		v, err := value.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		raw = v
	default:
		return nil, fmt.Errorf("unsupported seed file %s: want .yaml, .yml or .json", path)
	}

	v, err := value.Of(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	arr, ok := v.(value.Array)
	if !ok {
		return nil, fmt.Errorf("%s: want a list of documents", path)
	}

	docs := make([]docstore.Document, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(value.Object)
		if !ok {
			return nil, fmt.Errorf("%s: document %d is not an object", path, i)
		}
		docs = append(docs, obj)
	}
	return docs, nil
}
