package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-treeselect"
)

func TestStoreRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "overrides.db")

	out, err := execute(t, "--db", db, "store", "set", "--scope", "user", "--id", "u42", "selectionStrategy.limit=7")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "user/u42/treeselect snapshot="), out)

	out, err = execute(t, "--db", db, "--user", "u42", "get", "selectionStrategy.limit")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	out, err = execute(t, "--db", db, "get", "selectionStrategy.limit")
	require.NoError(t, err)
	assert.Equal(t, "500\n", out)

	out, err = execute(t, "--db", db, "--user", "u42", "trace", "selectionStrategy.limit")
	require.NoError(t, err)
	assert.Equal(t, "user", decodeJSON(t, out)["winner"])

	out, err = execute(t, "--db", db, "--user", "u42", "--set", "selectionStrategy.limit=3", "get", "selectionStrategy.limit")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = execute(t, "--db", db, "store", "list")
	require.NoError(t, err)
	assert.Equal(t, "user/u42/treeselect\n", out)

	out, err = execute(t, "--db", db, "store", "show", "--scope", "user", "--id", "u42")
	require.NoError(t, err)
	shown := decodeJSON(t, out)
	assert.NotEmpty(t, shown["etag"])
	assert.Equal(t, map[string]any{"selectionStrategy": map[string]any{"limit": float64(7)}}, shown["tree"])

	_, err = execute(t, "--db", db, "store", "unset", "--scope", "user", "--id", "u42", "selectionStrategy.limit")
	require.NoError(t, err)
	out, err = execute(t, "--db", db, "--user", "u42", "get", "selectionStrategy.limit")
	require.NoError(t, err)
	assert.Equal(t, "500\n", out)

	out, err = execute(t, "--db", db, "store", "delete", "--scope", "user", "--id", "u42")
	require.NoError(t, err)
	assert.Equal(t, "user/u42/treeselect deleted\n", out)

	out, err = execute(t, "--db", db, "store", "delete", "--scope", "user", "--id", "u42")
	require.NoError(t, err)
	assert.Equal(t, "user/u42/treeselect not found\n", out)
}

func TestStoreSystemScopeFromEnvironment(t *testing.T) {
	db := filepath.Join(t.TempDir(), "overrides.db")
	t.Setenv("TREESELECT_DB", db)

	_, err := execute(t, "store", "set", "--scope", "system", "Root.strings.btnApply=Save")
	require.NoError(t, err)

	out, err := execute(t, "get", "Root.strings.btnApply")
	require.NoError(t, err)
	assert.Equal(t, "\"Save\"\n", out)

	out, err = execute(t, "store", "list")
	require.NoError(t, err)
	assert.Equal(t, "system/treeselect\n", out)
}

func TestStoreRejectsInvalidTrees(t *testing.T) {
	db := filepath.Join(t.TempDir(), "overrides.db")

	_, err := execute(t, "--db", db, "store", "set", "--scope", "dashboard", "--id", "sales", "selectionStrategy.type=Nope")
	require.ErrorIs(t, err, treeselect.ErrInvalidConfig)

	out, err := execute(t, "--db", db, "store", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStoreErrors(t *testing.T) {
	_, err := execute(t, "store", "list")
	require.ErrorIs(t, err, errDatabaseRequired)

	db := filepath.Join(t.TempDir(), "overrides.db")
	_, err = execute(t, "--db", db, "store", "set", "--scope", "dashboard", "logLevel=2")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "store", "set", "--scope", "user", "--id", "u1", "logLevel")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "store", "set", "--scope", "user", "--id", "u1", "--etag", "stale", "logLevel=2")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "store", "set", "--scope", "user", "--id", "u1", "--etag", "stale", "logLevel=3")
	require.Error(t, err)
}
