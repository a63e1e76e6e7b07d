package usersink

import (
	"context"
	"strings"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-treeselect/pkg/activity"
)

// Hook records settings activity in a go-users ActivitySink. Identifiers
// that are not UUIDs are recorded as uuid.Nil.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord. When the event carries no
// user or tenant id, the user_id and tenant_id of the scope metadata are
// used instead, so overrides saved for a user scope land on that user.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	scopeMeta, _ := normalized.Metadata["scope_metadata"].(map[string]any)
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(firstID(normalized.UserID, scopeMeta["user_id"])),
		TenantID:   parseUUID(firstID(normalized.TenantID, scopeMeta["tenant_id"])),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if record.Channel == "" {
		record.Channel = activity.DefaultChannel
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return h.Sink.Log(ctx, record)
}

func firstID(explicit string, fallback any) string {
	if explicit != "" {
		return explicit
	}
	id, _ := fallback.(string)
	return id
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
