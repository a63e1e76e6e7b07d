package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-treeselect"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. It uses Ref.Identifier() as its deterministic key and makes no
// persistence assumptions beyond that.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	domain   string
	snapshot treeselect.Tree
	meta     Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (treeselect.Tree, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return record.snapshot.Clone(), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot treeselect.Tree, meta Meta) (Meta, error) {
	return s.save(ref, snapshot, meta, nil)
}

func (s *MemoryStore) SaveIf(_ context.Context, ref Ref, snapshot treeselect.Tree, meta Meta, expect string) (Meta, error) {
	return s.save(ref, snapshot, meta, &expect)
}

func (s *MemoryStore) save(ref Ref, snapshot treeselect.Tree, meta Meta, expect *string) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	meta, err = completeMeta(snapshot, meta, s.now())
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if expect != nil {
		current, exists := s.records[key]
		if err := checkETag(key, current.meta, exists, *expect); err != nil {
			return Meta{}, err
		}
	}
	s.records[key] = memoryRecord{domain: ref.Domain, snapshot: snapshot.Clone(), meta: cloneMeta(meta)}
	return cloneMeta(meta), nil
}

func (s *MemoryStore) Delete(_ context.Context, ref Ref) (bool, error) {
	return s.delete(ref, nil)
}

func (s *MemoryStore) DeleteIf(_ context.Context, ref Ref, expect string) (bool, error) {
	return s.delete(ref, &expect)
}

func (s *MemoryStore) delete(ref Ref, expect *string) (bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[key]
	if !ok {
		return false, nil
	}
	if expect != nil && *expect != "" {
		if err := checkETag(key, current.meta, true, *expect); err != nil {
			return false, err
		}
	}
	delete(s.records, key)
	return true, nil
}

// Keys lists stored identifiers, optionally restricted to domain, in sorted
// order.
func (s *MemoryStore) Keys(_ context.Context, domain string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key, record := range s.records {
		if domain != "" && record.domain != domain {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
