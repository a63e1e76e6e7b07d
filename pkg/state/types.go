package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-treeselect"
)

var (
	// ErrETagMismatch is returned by Mutate when the caller's ETag no longer
	// matches the stored one.
	ErrETagMismatch = errors.New("state: etag mismatch")
	// ErrStoreRequired is returned when a Resolver has no Store.
	ErrStoreRequired = errors.New("state: store is required")
	// ErrDomainRequired is returned for refs without a domain.
	ErrDomainRequired = errors.New("state: domain is required")
	// ErrNoLayers is returned by Resolve when no scope has a stored tree.
	ErrNoLayers = errors.New("state: no layers found")
	// ErrReservedScope is returned when a stored scope reuses a defaults
	// scope name.
	ErrReservedScope = errors.New("state: scope name is reserved")
	// ErrNotify wraps activity hook failures. The store operation that
	// triggered the event has already succeeded.
	ErrNotify = errors.New("state: notify")
	// ErrUnsupportedScope is returned by Identifier for unknown scope names.
	ErrUnsupportedScope = errors.New("state: unsupported scope")
)

// Scope names that can be persisted.
const (
	ScopeSystem    = "system"
	ScopeDashboard = "dashboard"
	ScopeComponent = "component"
	ScopeUser      = "user"
)

// ScopePrioritySystem places system-wide overrides between the public
// defaults and dashboards.
const ScopePrioritySystem = treeselect.ScopePriorityPublic + 50

// Ref identifies one persisted override tree for one settings domain.
type Ref struct {
	Domain string
	Scope  treeselect.Scope
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads, saves and deletes one override tree for a single scope
// reference. Save fills SnapshotID, ETag and UpdatedAt when they are empty.
//
// SaveIf and DeleteIf compare the stored ETag with expect in the same step
// as the write and return ErrETagMismatch without touching the stored tree
// when they differ. For SaveIf an empty expect means nothing may be stored
// yet. DeleteIf with an empty expect deletes unconditionally, and it reports
// false with no error when nothing is stored.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot treeselect.Tree, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot treeselect.Tree, meta Meta) (Meta, error)
	SaveIf(ctx context.Context, ref Ref, snapshot treeselect.Tree, meta Meta, expect string) (Meta, error)
	Delete(ctx context.Context, ref Ref) (bool, error)
	DeleteIf(ctx context.Context, ref Ref, expect string) (bool, error)
}

// Lister is implemented by stores that can enumerate their identifiers.
type Lister interface {
	Keys(ctx context.Context, domain string) ([]string, error)
}

// Mutator edits an override tree in place.
type Mutator func(*treeselect.Tree) error

// Identifier returns the deterministic storage key for r.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", ErrDomainRequired
	}
	switch r.Scope.Name {
	case ScopeSystem:
		return fmt.Sprintf("%s/%s", ScopeSystem, r.Domain), nil
	case ScopeDashboard, ScopeComponent, ScopeUser:
		metadataKey := r.Scope.Name + "_id"
		id, ok := r.Scope.Metadata[metadataKey]
		if !ok {
			return "", fmt.Errorf("state: missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		idString, ok := id.(string)
		if !ok || idString == "" {
			return "", fmt.Errorf("state: missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, idString, r.Domain), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScope, r.Scope.Name)
	}
}

// NewRef builds a Ref for one of the persisted scope names using the
// standard priorities. id is ignored for the system scope.
func NewRef(domain, scope, id string) Ref {
	priority := treeselect.ScopePriorityDashboard
	label := "Dashboard"
	switch scope {
	case ScopeSystem:
		return Ref{Domain: domain, Scope: treeselect.NewScope(ScopeSystem, ScopePrioritySystem, treeselect.WithScopeLabel("System"))}
	case ScopeComponent:
		priority, label = treeselect.ScopePriorityComponent, "Component"
	case ScopeUser:
		priority, label = treeselect.ScopePriorityUser, "User"
	}
	return Ref{
		Domain: domain,
		Scope: treeselect.NewScope(scope, priority,
			treeselect.WithScopeLabel(label),
			treeselect.WithScopeMetadata(map[string]any{scope + "_id": id}),
		),
	}
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

func mergeMeta(base, override Meta) Meta {
	out := cloneMeta(base)
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = cloneMeta(override).Extra
	}
	return out
}

// checkETag compares a stored record against the ETag a conditional write
// expects.
func checkETag(key string, stored Meta, exists bool, expect string) error {
	switch {
	case expect == "" && exists:
		return fmt.Errorf("%w: %s already exists", ErrETagMismatch, key)
	case expect != "" && !exists:
		return fmt.Errorf("%w: %s no longer exists", ErrETagMismatch, key)
	case exists && stored.ETag != expect:
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expect, stored.ETag)
	}
	return nil
}
