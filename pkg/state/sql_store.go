package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/internal/codec"
)

// SQLStore persists override trees in SQLite. Payloads are stored as JSON
// with unbounded values encoded as "Infinity".
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens dsn with the sqlite3 driver, applies migrations and
// returns a store owning the connection.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: ping sqlite: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db), nil
}

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Close releases the underlying database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Load(ctx context.Context, ref Ref) (treeselect.Tree, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	query, args, err := buildSelectOverrideQuery(key)
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: build select: %w", err)
	}

	var row overrideRow
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&row.payload,
		&row.snapshotID,
		&row.etag,
		&row.extra,
		&row.updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: select %s: %w", key, err)
	}

	snapshot, err := codec.Unmarshal([]byte(row.payload), codec.FormatJSON)
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	meta := Meta{
		SnapshotID: row.snapshotID,
		ETag:       row.etag,
		UpdatedAt:  time.Unix(0, row.updatedAt).UTC(),
	}
	if row.extra != "" && row.extra != "{}" {
		if err := json.Unmarshal([]byte(row.extra), &meta.Extra); err != nil {
			return nil, Meta{}, false, fmt.Errorf("state: decode extra %s: %w", key, err)
		}
	}
	return treeselect.Tree(snapshot), meta, true, nil
}

func (s *SQLStore) Save(ctx context.Context, ref Ref, snapshot treeselect.Tree, meta Meta) (Meta, error) {
	row, meta, err := s.row(ref, snapshot, meta)
	if err != nil {
		return Meta{}, err
	}
	query, args, err := buildUpsertOverrideQuery(row)
	if err != nil {
		return Meta{}, fmt.Errorf("state: build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return Meta{}, fmt.Errorf("state: upsert %s: %w", row.key, err)
	}
	return cloneMeta(meta), nil
}

// SaveIf inserts when expect is empty and updates the row holding expect
// otherwise. A statement that touches no row means another writer got there
// first.
func (s *SQLStore) SaveIf(ctx context.Context, ref Ref, snapshot treeselect.Tree, meta Meta, expect string) (Meta, error) {
	row, meta, err := s.row(ref, snapshot, meta)
	if err != nil {
		return Meta{}, err
	}
	var query string
	var args []any
	if expect == "" {
		query, args, err = buildInsertOverrideQuery(row)
	} else {
		query, args, err = buildUpdateOverrideQuery(row, expect)
	}
	if err != nil {
		return Meta{}, fmt.Errorf("state: build conditional save: %w", err)
	}
	affected, err := s.exec(ctx, query, args...)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", row.key, err)
	}
	if affected == 0 {
		return Meta{}, s.mismatch(ctx, ref, row.key, expect)
	}
	return cloneMeta(meta), nil
}

func (s *SQLStore) Delete(ctx context.Context, ref Ref) (bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return false, err
	}
	query, args, err := buildDeleteOverrideQuery(key)
	if err != nil {
		return false, fmt.Errorf("state: build delete: %w", err)
	}
	affected, err := s.exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("state: delete %s: %w", key, err)
	}
	return affected > 0, nil
}

func (s *SQLStore) DeleteIf(ctx context.Context, ref Ref, expect string) (bool, error) {
	if expect == "" {
		return s.Delete(ctx, ref)
	}
	key, err := ref.Identifier()
	if err != nil {
		return false, err
	}
	query, args, err := buildDeleteOverrideIfQuery(key, expect)
	if err != nil {
		return false, fmt.Errorf("state: build delete: %w", err)
	}
	affected, err := s.exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("state: delete %s: %w", key, err)
	}
	if affected > 0 {
		return true, nil
	}
	_, stored, ok, err := s.Load(ctx, ref)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return false, checkETag(key, stored, true, expect)
}

func (s *SQLStore) row(ref Ref, snapshot treeselect.Tree, meta Meta) (overrideRow, Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return overrideRow{}, Meta{}, err
	}
	meta, err = completeMeta(snapshot, meta, s.now())
	if err != nil {
		return overrideRow{}, Meta{}, err
	}
	payload, err := codec.Marshal(map[string]any(snapshot), codec.FormatJSON)
	if err != nil {
		return overrideRow{}, Meta{}, fmt.Errorf("state: encode %s: %w", key, err)
	}
	extra := []byte("{}")
	if len(meta.Extra) > 0 {
		if extra, err = json.Marshal(meta.Extra); err != nil {
			return overrideRow{}, Meta{}, fmt.Errorf("state: encode extra %s: %w", key, err)
		}
	}
	return overrideRow{
		key:        key,
		domain:     ref.Domain,
		scope:      ref.Scope.Name,
		payload:    string(payload),
		snapshotID: meta.SnapshotID,
		etag:       meta.ETag,
		extra:      string(extra),
		updatedAt:  meta.UpdatedAt.UnixNano(),
	}, meta, nil
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// mismatch describes why a conditional save touched no row.
func (s *SQLStore) mismatch(ctx context.Context, ref Ref, key, expect string) error {
	_, stored, ok, err := s.Load(ctx, ref)
	if err != nil {
		return err
	}
	if err := checkETag(key, stored, ok, expect); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s changed concurrently", ErrETagMismatch, key)
}

// Keys lists stored identifiers, optionally restricted to domain, in sorted
// order.
func (s *SQLStore) Keys(ctx context.Context, domain string) ([]string, error) {
	query, args, err := buildListOverridesQuery(domain)
	if err != nil {
		return nil, fmt.Errorf("state: build list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("state: list: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("state: scan: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
