package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	bookstoreCatalog = "../catalog/testdata/catalog/bookstore.cue"
	bookstoreYAML    = "../catalog/testdata/catalog/bookstore.yaml"
	booksSeed        = "testdata/books.yaml"
)

// envelope is CLIResponse with Data left raw for typed decoding.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// testResult mirrors EntryResult with decodable documents.
type testResult struct {
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	Collection string           `json:"collection"`
	Documents  []map[string]any `json:"documents"`
	Plan       *struct {
		Backend string `json:"backend"`
		Steps   []struct {
			Detail string `json:"detail"`
		} `json:"steps"`
	} `json:"plan"`
	Index   string `json:"index"`
	Matched *int64 `json:"matched"`
	Deleted *int64 `json:"deleted"`
	Error   string `json:"error"`
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decode parses a JSON envelope and unmarshals its data into v.
func decode(t *testing.T, out string, v any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	if v != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
	}
	return env
}

// seededDB returns the path of a fresh SQLite database holding the books
// collection.
func seededDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "books.db")
	_, err := execute(t, "--db", db, "load", booksSeed)
	require.NoError(t, err)
	return db
}
