package state

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/internal/codec"
)

// ComputeETag returns a content hash of snapshot. encoding/json sorts map
// keys, so equal trees hash equally.
func ComputeETag(snapshot treeselect.Tree) (string, error) {
	payload, err := codec.Marshal(map[string]any(snapshot), codec.FormatJSON)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16]), nil
}

// completeMeta fills the storage-owned fields a caller left empty.
func completeMeta(snapshot treeselect.Tree, meta Meta, now time.Time) (Meta, error) {
	out := cloneMeta(meta)
	if out.SnapshotID == "" {
		out.SnapshotID = uuid.NewString()
	}
	if out.ETag == "" {
		etag, err := ComputeETag(snapshot)
		if err != nil {
			return Meta{}, err
		}
		out.ETag = etag
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now.UTC()
	}
	return out, nil
}
