package state

import (
	"context"
	"fmt"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/pkg/activity"
)

// Resolver orchestrates scoped loads and merges them into a single Settings
// wrapper. Hooks receive layer, save and delete events, limited to Verbs
// when set. Options are applied to every merged Settings.
type Resolver struct {
	Store   Store
	Hooks   activity.Hooks
	Channel string
	Verbs   []string
	Options []treeselect.Option
}

// Resolve merges the stored trees of scopes. Scopes without a stored tree
// are skipped; at least one must exist.
func (r Resolver) Resolve(ctx context.Context, domain string, scopes ...treeselect.Scope) (*treeselect.Settings, error) {
	if r.Store == nil {
		return nil, ErrStoreRequired
	}
	if domain == "" {
		return nil, ErrDomainRequired
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("state: at least one scope is required")
	}

	layers, err := r.loadLayers(ctx, domain, scopes)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w for domain %q", ErrNoLayers, domain)
	}
	return r.merge(layers)
}

// ResolveWithDefaults merges the stored trees of scopes on top of the private
// and public defaults. The defaults scope names are reserved.
func (r Resolver) ResolveWithDefaults(ctx context.Context, domain string, scopes ...treeselect.Scope) (*treeselect.Settings, error) {
	if r.Store == nil {
		return nil, ErrStoreRequired
	}
	if domain == "" {
		return nil, ErrDomainRequired
	}
	for _, scope := range scopes {
		if scope.Name == treeselect.ScopePrivate || scope.Name == treeselect.ScopePublic {
			return nil, fmt.Errorf("%w: %q", ErrReservedScope, scope.Name)
		}
	}

	layers, err := r.loadLayers(ctx, domain, scopes)
	if err != nil {
		return nil, err
	}
	return r.merge(append(defaultLayers(), layers...))
}

// Mutate loads one override tree, applies fn, validates the tree layered on
// the defaults, then saves it. The caller's ETag, when set, must match the
// stored one, and the save only lands if the stored tree is still the one
// loaded. Each save is a new revision: SnapshotID and ETag are left for the
// store to assign unless meta.SnapshotID is set. The returned settings
// hold the defaults plus the saved layer.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (*treeselect.Settings, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, ErrStoreRequired
	}
	if ref.Domain == "" {
		return nil, Meta{}, ErrDomainRequired
	}
	if ref.Scope.Name == "" {
		return nil, Meta{}, treeselect.ErrScopeNameRequired
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok || snapshot == nil {
		snapshot = treeselect.Tree{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	previous := snapshot.Clone()
	if err := fn(&snapshot); err != nil {
		return nil, loadedMeta, err
	}
	if snapshot == nil {
		snapshot = treeselect.Tree{}
	}

	if _, err := treeselect.Load(treeselect.Overlay(treeselect.Defaults(), snapshot)); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	saveMeta.SnapshotID = meta.SnapshotID
	saveMeta.ETag = ""
	saveMeta.UpdatedAt = meta.UpdatedAt
	savedMeta, err := r.Store.SaveIf(ctx, ref, snapshot, saveMeta, loadedMeta.ETag)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}

	layer := treeselect.NewLayer(ref.Scope, snapshot, treeselect.WithSnapshotID(savedMeta.SnapshotID))
	settings, err := r.merge(append(defaultLayers(), layer))
	if err != nil {
		return nil, savedMeta, err
	}

	key, _ := ref.Identifier()
	notifyErr := r.emit(ctx, activity.BuildOverrideSavedEvent(activity.EventInput{
		ActorID:  savedMeta.Extra["actor_id"],
		UserID:   userID(ref),
		TenantID: savedMeta.Extra["tenant_id"],
		ObjectID: key,
		Domain:   ref.Domain,
		Scope:    scopeContext(ref.Scope, savedMeta.SnapshotID),
		Metadata: map[string]any{
			"etag":  savedMeta.ETag,
			"paths": snapshot.Diff(previous),
		},
		OccurredAt: savedMeta.UpdatedAt,
	}))
	return settings, savedMeta, notifyErr
}

// Delete removes the override tree behind ref, only while it still carries
// meta.ETag when one is given. It reports whether a tree existed.
func (r Resolver) Delete(ctx context.Context, ref Ref, meta Meta) (bool, error) {
	if r.Store == nil {
		return false, ErrStoreRequired
	}
	deleted, err := r.Store.DeleteIf(ctx, ref, meta.ETag)
	if err != nil {
		return false, fmt.Errorf("state: delete %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !deleted {
		return false, nil
	}
	key, _ := ref.Identifier()
	return true, r.emit(ctx, activity.BuildOverrideDeletedEvent(activity.EventInput{
		ActorID:  meta.Extra["actor_id"],
		UserID:   userID(ref),
		TenantID: meta.Extra["tenant_id"],
		ObjectID: key,
		Domain:   ref.Domain,
		Scope:    scopeContext(ref.Scope, ""),
	}))
}

func (r Resolver) loadLayers(ctx context.Context, domain string, scopes []treeselect.Scope) ([]treeselect.Layer, error) {
	layers := make([]treeselect.Layer, 0, len(scopes))
	for _, scope := range scopes {
		snapshot, meta, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, treeselect.NewLayer(scope, snapshot, treeselect.WithSnapshotID(meta.SnapshotID)))
	}
	return layers, nil
}

func (r Resolver) merge(layers []treeselect.Layer) (*treeselect.Settings, error) {
	stack, err := treeselect.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	opts := []treeselect.Option{treeselect.WithScopeSchema(true)}
	opts = append(opts, r.Options...)
	if len(r.Hooks) > 0 {
		opts = append(opts,
			treeselect.WithActivityHooks(r.Hooks),
			treeselect.WithActivityChannel(r.Channel),
			treeselect.WithActivityVerbs(r.Verbs...),
		)
	}
	return stack.Merge(opts...)
}

func (r Resolver) emit(ctx context.Context, event activity.Event) error {
	emitter := activity.NewEmitter(r.Hooks, activity.Config{Enabled: true, Channel: r.Channel, Verbs: r.Verbs})
	if err := emitter.Emit(ctx, event); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotify, event.Verb, err)
	}
	return nil
}

func defaultLayers() []treeselect.Layer {
	scopes := treeselect.DefaultScopes()
	layers := make([]treeselect.Layer, 0, len(scopes))
	for _, scope := range scopes {
		switch scope.Name {
		case treeselect.ScopePublic:
			layers = append(layers, treeselect.NewLayer(scope, treeselect.PublicDefaults()))
		case treeselect.ScopePrivate:
			layers = append(layers, treeselect.NewLayer(scope, treeselect.PrivateDefaults()))
		}
	}
	return layers
}

func scopeContext(scope treeselect.Scope, snapshotID string) activity.ScopeContext {
	return activity.ScopeContext{
		Name:       scope.Name,
		Label:      scope.Label,
		Priority:   scope.Priority,
		Metadata:   scope.Metadata,
		SnapshotID: snapshotID,
	}
}

func userID(ref Ref) string {
	if ref.Scope.Name != ScopeUser {
		return ""
	}
	id, _ := ref.Scope.Metadata["user_id"].(string)
	return id
}
