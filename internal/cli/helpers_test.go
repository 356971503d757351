package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/library"
)

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// seedLibrary creates a library holding the given albums, in order.
func seedLibrary(t *testing.T, albums ...map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	lib, err := library.Open(path)
	require.NoError(t, err)
	defer lib.Close()

	for _, fields := range albums {
		m, err := library.ModelFromFields(ir.Album, fields)
		require.NoError(t, err)
		require.NoError(t, lib.Add(context.Background(), m))
	}
	return path
}

// readField returns a stored field of one record, formatted.
func readField(t *testing.T, dbPath string, entity ir.EntityType, id int64, field string) (string, bool) {
	t.Helper()
	lib, err := library.Open(dbPath)
	require.NoError(t, err)
	defer lib.Close()

	m, err := lib.Get(context.Background(), entity, id)
	require.NoError(t, err)
	v, ok := m.Get(field)
	return ir.Format(v), ok
}

// execute runs cmd with args and stdin, returning stdout, stderr and the error.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
