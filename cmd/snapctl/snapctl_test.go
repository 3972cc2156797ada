package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliverypulse/engine/internal/services"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportThenIndicators(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	dsn := "sqlite:" + filepath.Join(dir, "snapshots.db")
	t.Setenv("DATABASE_URL", dsn)

	w10 := filepath.Join(dir, "w10.csv")
	w11 := filepath.Join(dir, "w11.csv")
	header := "Project Code,Project Name,Ordered N,Progress W,Real Hours\n"
	require.NoError(t, os.WriteFile(w10, []byte(header+"P1,Alpha,100,50,60\n"), 0o600))
	require.NoError(t, os.WriteFile(w11, []byte(header+"P1,Alpha,100,60,75\n"), 0o600))

	out, err := run(t, "import", "--database-url", dsn, "--migrate", "--file", w10, "--year", "2024", "--week", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "imported: 1")

	out, err = run(t, "import", "--database-url", dsn, "--file", w11, "--year", "2024", "--week", "11", "--dry-run", "--json")
	require.NoError(t, err)
	var res services.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Imported)

	out, err = run(t, "series", "--database-url", dsn, "--code", "P1")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-W10")
	assert.NotContains(t, out, "2024-W11")

	_, err = run(t, "import", "--database-url", dsn, "--file", w11, "--year", "2024", "--week", "11")
	require.NoError(t, err)

	out, err = run(t, "indicators", "--database-url", dsn, "--code", "P1")
	require.NoError(t, err)
	assert.Contains(t, out, "deviation:    red")
}

func TestImportRejectsBadMode(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "snapshots.db")
	t.Setenv("DATABASE_URL", dsn)
	_, err := run(t, "import", "--database-url", dsn, "--migrate", "--file", "x.csv", "--year", "2024", "--week", "1", "--mode", "partial")
	require.Error(t, err)
}
