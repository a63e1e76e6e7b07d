package state

import (
	sq "github.com/Masterminds/squirrel"
)

const overridesTable = "treeselect_overrides"

var overrideColumns = []string{
	"payload",
	"snapshot_id",
	"etag",
	"extra",
	"updated_at",
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type overrideRow struct {
	key        string
	domain     string
	scope      string
	payload    string
	snapshotID string
	etag       string
	extra      string
	updatedAt  int64
}

func buildSelectOverrideQuery(key string) (string, []any, error) {
	return builder.
		Select(overrideColumns...).
		From(overridesTable).
		Where(sq.Eq{"storage_key": key}).
		ToSql()
}

func buildUpsertOverrideQuery(row overrideRow) (string, []any, error) {
	return builder.
		Insert(overridesTable).
		Columns("storage_key", "domain", "scope", "payload", "snapshot_id", "etag", "extra", "updated_at").
		Values(row.key, row.domain, row.scope, row.payload, row.snapshotID, row.etag, row.extra, row.updatedAt).
		Suffix("ON CONFLICT(storage_key) DO UPDATE SET " +
			"payload = excluded.payload, " +
			"snapshot_id = excluded.snapshot_id, " +
			"etag = excluded.etag, " +
			"extra = excluded.extra, " +
			"updated_at = excluded.updated_at").
		ToSql()
}

// buildInsertOverrideQuery inserts a row only when the key is free.
func buildInsertOverrideQuery(row overrideRow) (string, []any, error) {
	return builder.
		Insert(overridesTable).
		Columns("storage_key", "domain", "scope", "payload", "snapshot_id", "etag", "extra", "updated_at").
		Values(row.key, row.domain, row.scope, row.payload, row.snapshotID, row.etag, row.extra, row.updatedAt).
		Suffix("ON CONFLICT(storage_key) DO NOTHING").
		ToSql()
}

// buildUpdateOverrideQuery rewrites a row only while its etag still equals
// expect.
func buildUpdateOverrideQuery(row overrideRow, expect string) (string, []any, error) {
	return builder.
		Update(overridesTable).
		Set("payload", row.payload).
		Set("snapshot_id", row.snapshotID).
		Set("etag", row.etag).
		Set("extra", row.extra).
		Set("updated_at", row.updatedAt).
		Where(sq.Eq{"storage_key": row.key, "etag": expect}).
		ToSql()
}

func buildDeleteOverrideIfQuery(key, expect string) (string, []any, error) {
	return builder.
		Delete(overridesTable).
		Where(sq.Eq{"storage_key": key, "etag": expect}).
		ToSql()
}

func buildDeleteOverrideQuery(key string) (string, []any, error) {
	return builder.
		Delete(overridesTable).
		Where(sq.Eq{"storage_key": key}).
		ToSql()
}

func buildListOverridesQuery(domain string) (string, []any, error) {
	query := builder.
		Select("storage_key").
		From(overridesTable).
		OrderBy("storage_key")
	if domain != "" {
		query = query.Where(sq.Eq{"domain": domain})
	}
	return query.ToSql()
}
