package state_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/pkg/state"
)

type listingStore interface {
	state.Store
	state.Lister
}

// runStoreContract exercises the behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) listingStore) {
	t.Helper()
	ctx := context.Background()
	userRef := state.NewRef("treeselect", state.ScopeUser, "u42")
	dashRef := state.NewRef("treeselect", state.ScopeDashboard, "sales")
	otherRef := state.NewRef("countries", state.ScopeSystem, "")

	t.Run("missing ref", func(t *testing.T) {
		store := newStore(t)
		snapshot, meta, ok, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, snapshot)
		assert.Equal(t, state.Meta{}, meta)
	})

	t.Run("save fills meta and round trips", func(t *testing.T) {
		store := newStore(t)
		tree := treeselect.Tree{
			"pagination": map[string]any{"pageSize": math.Inf(1)},
			"Root":       map[string]any{"strings": map[string]any{"btnApply": "OK"}},
			"search":     map[string]any{"matcher": nil},
		}
		saved, err := store.Save(ctx, userRef, tree, state.Meta{Extra: map[string]string{"actor_id": "admin"}})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.SnapshotID)
		assert.NotEmpty(t, saved.ETag)
		assert.False(t, saved.UpdatedAt.IsZero())

		loaded, meta, ok, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, loaded.Equal(tree), "diff: %v", loaded.Diff(tree))
		assert.True(t, loaded.Has("search.matcher"))
		assert.Equal(t, saved.SnapshotID, meta.SnapshotID)
		assert.Equal(t, saved.ETag, meta.ETag)
		assert.True(t, saved.UpdatedAt.Equal(meta.UpdatedAt))
		assert.Equal(t, "admin", meta.Extra["actor_id"])
	})

	t.Run("explicit meta is kept", func(t *testing.T) {
		store := newStore(t)
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		saved, err := store.Save(ctx, dashRef, treeselect.Tree{"logLevel": 2}, state.Meta{SnapshotID: "snap-1", ETag: "v1", UpdatedAt: at})
		require.NoError(t, err)
		assert.Equal(t, "snap-1", saved.SnapshotID)
		assert.Equal(t, "v1", saved.ETag)
		assert.True(t, at.Equal(saved.UpdatedAt))
	})

	t.Run("etag follows content", func(t *testing.T) {
		store := newStore(t)
		first, err := store.Save(ctx, userRef, treeselect.Tree{"logLevel": 2}, state.Meta{})
		require.NoError(t, err)
		same, err := store.Save(ctx, userRef, treeselect.Tree{"logLevel": 2}, state.Meta{})
		require.NoError(t, err)
		changed, err := store.Save(ctx, userRef, treeselect.Tree{"logLevel": 3}, state.Meta{})
		require.NoError(t, err)
		assert.Equal(t, first.ETag, same.ETag)
		assert.NotEqual(t, first.ETag, changed.ETag)
		assert.NotEqual(t, first.SnapshotID, same.SnapshotID)
	})

	t.Run("loaded trees are detached", func(t *testing.T) {
		store := newStore(t)
		tree := treeselect.Tree{"Item": map[string]any{"strings": map[string]any{"btnOnlyThis": "Only"}}}
		_, err := store.Save(ctx, userRef, tree, state.Meta{})
		require.NoError(t, err)
		tree["Item"].(map[string]any)["strings"].(map[string]any)["btnOnlyThis"] = "mutated"

		loaded, _, _, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		got, _ := loaded.Get("Item.strings.btnOnlyThis")
		assert.Equal(t, "Only", got)
	})

	t.Run("delete and keys", func(t *testing.T) {
		store := newStore(t)
		for _, ref := range []state.Ref{userRef, dashRef, otherRef} {
			_, err := store.Save(ctx, ref, treeselect.Tree{"logLevel": 1}, state.Meta{})
			require.NoError(t, err)
		}
		keys, err := store.Keys(ctx, "treeselect")
		require.NoError(t, err)
		assert.Equal(t, []string{"dashboard/sales/treeselect", "user/u42/treeselect"}, keys)

		all, err := store.Keys(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		deleted, err := store.Delete(ctx, userRef)
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = store.Delete(ctx, userRef)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, _, ok, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("conditional save", func(t *testing.T) {
		store := newStore(t)
		created, err := store.SaveIf(ctx, userRef, treeselect.Tree{"logLevel": 2}, state.Meta{}, "")
		require.NoError(t, err)

		_, err = store.SaveIf(ctx, userRef, treeselect.Tree{"logLevel": 5}, state.Meta{}, "")
		require.ErrorIs(t, err, state.ErrETagMismatch)
		_, err = store.SaveIf(ctx, userRef, treeselect.Tree{"logLevel": 5}, state.Meta{}, "stale")
		require.ErrorIs(t, err, state.ErrETagMismatch)
		_, err = store.SaveIf(ctx, dashRef, treeselect.Tree{"logLevel": 5}, state.Meta{}, created.ETag)
		require.ErrorIs(t, err, state.ErrETagMismatch, "a missing tree never matches an etag")

		loaded, _, ok, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		require.True(t, ok)
		level, _ := loaded.Get("logLevel")
		assert.Equal(t, 2, level, "rejected saves leave the stored tree alone")
		_, _, ok, err = store.Load(ctx, dashRef)
		require.NoError(t, err)
		assert.False(t, ok)

		updated, err := store.SaveIf(ctx, userRef, treeselect.Tree{"logLevel": 3}, state.Meta{}, created.ETag)
		require.NoError(t, err)
		assert.NotEqual(t, created.ETag, updated.ETag)
		_, meta, _, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		assert.Equal(t, updated.ETag, meta.ETag)
	})

	t.Run("conditional delete", func(t *testing.T) {
		store := newStore(t)
		saved, err := store.Save(ctx, userRef, treeselect.Tree{"logLevel": 2}, state.Meta{})
		require.NoError(t, err)

		_, err = store.DeleteIf(ctx, userRef, "stale")
		require.ErrorIs(t, err, state.ErrETagMismatch)
		_, _, ok, err := store.Load(ctx, userRef)
		require.NoError(t, err)
		assert.True(t, ok)

		deleted, err := store.DeleteIf(ctx, userRef, saved.ETag)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.DeleteIf(ctx, userRef, saved.ETag)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("invalid ref", func(t *testing.T) {
		store := newStore(t)
		bad := state.Ref{Domain: "treeselect", Scope: treeselect.NewScope(state.ScopeUser, 10)}
		_, _, _, err := store.Load(ctx, bad)
		assert.Error(t, err)
		_, err = store.Save(ctx, bad, treeselect.Tree{}, state.Meta{})
		assert.Error(t, err)
		_, err = store.Delete(ctx, bad)
		assert.Error(t, err)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(*testing.T) listingStore {
		return state.NewMemoryStore()
	})
}

func TestComputeETagIsStable(t *testing.T) {
	a := treeselect.Tree{"b": 1, "a": map[string]any{"y": true, "x": "z"}}
	b := treeselect.Tree{"a": map[string]any{"x": "z", "y": true}, "b": 1}
	ea, err := state.ComputeETag(a)
	require.NoError(t, err)
	eb, err := state.ComputeETag(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)
	assert.Len(t, ea, 32)
}
