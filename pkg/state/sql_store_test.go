package state

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelectOverrideQuery(t *testing.T) {
	query, args, err := buildSelectOverrideQuery("user/u42/treeselect")
	require.NoError(t, err)
	require.Equal(t, []any{"user/u42/treeselect"}, args)

	q := strings.ToLower(query)
	require.Contains(t, q, "from treeselect_overrides")
	require.Contains(t, q, "where storage_key = ?")
	for _, column := range overrideColumns {
		require.Contains(t, q, column)
	}
}

func TestBuildUpsertOverrideQuery(t *testing.T) {
	query, args, err := buildUpsertOverrideQuery(overrideRow{
		key:        "system/treeselect",
		domain:     "treeselect",
		scope:      "system",
		payload:    "{}",
		snapshotID: "snap",
		etag:       "etag",
		extra:      "{}",
		updatedAt:  42,
	})
	require.NoError(t, err)
	require.Len(t, args, 8)
	assert.Equal(t, "system/treeselect", args[0])
	assert.Equal(t, int64(42), args[7])

	q := strings.ToLower(query)
	assert.Contains(t, q, "insert into treeselect_overrides")
	assert.Contains(t, q, "on conflict(storage_key) do update set")
	assert.Equal(t, 8, strings.Count(query, "?"))
}

func TestBuildConditionalOverrideQueries(t *testing.T) {
	row := overrideRow{
		key:        "user/u42/treeselect",
		domain:     "treeselect",
		scope:      "user",
		payload:    "{}",
		snapshotID: "snap",
		etag:       "next",
		extra:      "{}",
		updatedAt:  42,
	}

	query, args, err := buildInsertOverrideQuery(row)
	require.NoError(t, err)
	require.Len(t, args, 8)
	assert.Contains(t, strings.ToLower(query), "on conflict(storage_key) do nothing")

	query, args, err = buildUpdateOverrideQuery(row, "prev")
	require.NoError(t, err)
	q := strings.ToLower(query)
	assert.Contains(t, q, "update treeselect_overrides set")
	assert.Contains(t, q, "etag = ?")
	assert.Contains(t, args, "prev")
	assert.Contains(t, args, "user/u42/treeselect")
	assert.Len(t, args, 7)

	query, args, err = buildDeleteOverrideIfQuery(row.key, "prev")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(query), "delete from treeselect_overrides")
	assert.ElementsMatch(t, []any{"user/u42/treeselect", "prev"}, args)
}

func TestBuildDeleteAndListQueries(t *testing.T) {
	query, args, err := buildDeleteOverrideQuery("system/treeselect")
	require.NoError(t, err)
	assert.Equal(t, []any{"system/treeselect"}, args)
	assert.Contains(t, strings.ToLower(query), "delete from treeselect_overrides")

	query, args, err = buildListOverridesQuery("")
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.NotContains(t, strings.ToLower(query), "where")

	query, args, err = buildListOverridesQuery("treeselect")
	require.NoError(t, err)
	assert.Equal(t, []any{"treeselect"}, args)
	assert.Contains(t, strings.ToLower(query), "order by storage_key")
}

func TestOpenSQLiteMigrates(t *testing.T) {
	store, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var name string
	err = store.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", overridesTable).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, overridesTable, name)

	// migrating twice is a no-op
	require.NoError(t, Migrate(context.Background(), store.db))
}
