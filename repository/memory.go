package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mailio/go-vault-server/types"
)

// InMemoryRepository keeps JSON documents in a map. Used in development mode and tests.
// Like CouchDB it assigns a _rev on every save and rejects updates carrying a stale one.
type InMemoryRepository struct {
	mu     sync.RWMutex
	dbName string
	docs   map[string][]byte
	revs   map[string]string
}

func NewInMemoryRepository(dbName string) *InMemoryRepository {
	return &InMemoryRepository{
		dbName: dbName,
		docs:   make(map[string][]byte),
		revs:   make(map[string]string),
	}
}

func (m *InMemoryRepository) GetByID(ctx context.Context, id string) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *InMemoryRepository) Save(ctx context.Context, docID string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("document must be a JSON object: %w", err)
	}
	var incoming string
	if raw, ok := fields["_rev"]; ok {
		if err := json.Unmarshal(raw, &incoming); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.revs[docID]
	if exists && incoming != current {
		return types.ErrConflict
	}
	rev := nextRev(current)
	fields["_id"], _ = json.Marshal(docID)
	fields["_rev"], _ = json.Marshal(rev)
	stored, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	m.docs[docID] = stored
	m.revs[docID] = rev
	return nil
}

func (m *InMemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return types.ErrNotFound
	}
	delete(m.docs, id)
	delete(m.revs, id)
	return nil
}

func (m *InMemoryRepository) GetDBName() string {
	return m.dbName
}

// revisions look like CouchDB's: "<generation>-<tag>"
func nextRev(current string) string {
	gen := 0
	if prefix, _, ok := strings.Cut(current, "-"); ok {
		gen, _ = strconv.Atoi(prefix)
	}
	return fmt.Sprintf("%d-mem", gen+1)
}
