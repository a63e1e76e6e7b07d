package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the settings resolver and the override store.
const (
	VerbResolved        = "treeselect.defaults.resolved"
	VerbLayerApplied    = "treeselect.layer.applied"
	VerbOverridden      = "treeselect.overridden"
	VerbOverrideSaved   = "treeselect.override.saved"
	VerbOverrideDeleted = "treeselect.override.deleted"
)

// Object types attached to events.
const (
	ObjectSettings = "treeselect.settings"
	ObjectLayer    = "treeselect.layer"
	ObjectOverride = "treeselect.override"
)

// ScopeContext captures the scope a settings event relates to.
type ScopeContext struct {
	Name       string
	Label      string
	Priority   int
	Metadata   map[string]any
	SnapshotID string
}

// EventInput describes the common fields for settings lifecycle events.
type EventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	ObjectID   string
	Channel    string
	Domain     string
	Path       string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	Scope      ScopeContext
	OccurredAt time.Time
}

// BuildResolvedEvent describes a completed resolution of a settings domain.
func BuildResolvedEvent(input EventInput) Event {
	return buildEvent(VerbResolved, ObjectSettings, input)
}

// BuildLayerAppliedEvent describes one layer taking part in a merge.
func BuildLayerAppliedEvent(input EventInput) Event {
	return buildEvent(VerbLayerApplied, ObjectLayer, input)
}

// BuildOverriddenEvent describes an in-memory overlay on resolved settings.
func BuildOverriddenEvent(input EventInput) Event {
	return buildEvent(VerbOverridden, ObjectSettings, input)
}

// BuildOverrideSavedEvent describes a persisted override snapshot.
func BuildOverrideSavedEvent(input EventInput) Event {
	return buildEvent(VerbOverrideSaved, ObjectOverride, input)
}

// BuildOverrideDeletedEvent describes a removed override snapshot.
func BuildOverrideDeletedEvent(input EventInput) Event {
	return buildEvent(VerbOverrideDeleted, ObjectOverride, input)
}

func buildEvent(verb, objectType string, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Domain != "" {
		set("domain", input.Domain)
	}
	if input.Path != "" {
		set("path", input.Path)
	}
	if input.Scope.Name != "" {
		set("scope_name", input.Scope.Name)
		set("scope_priority", input.Scope.Priority)
		if input.Scope.Label != "" {
			set("scope_label", input.Scope.Label)
		}
		if len(input.Scope.Metadata) > 0 {
			set("scope_metadata", cloneMap(input.Scope.Metadata))
		}
	}
	if input.Scope.SnapshotID != "" {
		set("snapshot_id", input.Scope.SnapshotID)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	objectID := firstNonEmpty(input.ObjectID, input.Scope.SnapshotID, input.Path, input.Domain, input.Scope.Name, objectType)

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
