package mocks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	noteDomain "github.com/davicafu/notelab/internal/notes/domain"
	sharedCache "github.com/davicafu/notelab/internal/shared/infra/platform/cache"
	"github.com/google/uuid"
)

// InMemoryNoteRepo simula NoteRepository con registro de idempotencia incluido.
type InMemoryNoteRepo struct {
	Notes   map[uuid.UUID]*noteDomain.Note
	Applied map[string]bool // userID + "|" + idemKey

	// FailWith fuerza que toda mutación falle con este error; simula un
	// backend remoto caído para ejercitar el camino de retry.
	FailWith error

	mu sync.Mutex
}

func NewInMemoryNoteRepo() *InMemoryNoteRepo {
	return &InMemoryNoteRepo{
		Notes:   make(map[uuid.UUID]*noteDomain.Note),
		Applied: make(map[string]bool),
	}
}

func appliedKey(userID, idemKey string) string {
	return userID + "|" + idemKey
}

func (r *InMemoryNoteRepo) Create(ctx context.Context, n *noteDomain.Note, idemKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.Notes[n.ID]; ok {
		return noteDomain.ErrNoteAlreadyExists
	}
	copied := *n
	r.Notes[n.ID] = &copied
	r.Applied[appliedKey(n.UserID, idemKey)] = true
	return nil
}

func (r *InMemoryNoteRepo) GetByID(ctx context.Context, userID string, id uuid.UUID) (*noteDomain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.Notes[id]
	if !ok || n.UserID != userID {
		return nil, noteDomain.ErrNoteNotFound
	}
	copied := *n
	return &copied, nil
}

func (r *InMemoryNoteRepo) Update(ctx context.Context, n *noteDomain.Note, idemKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	existing, ok := r.Notes[n.ID]
	if !ok || existing.UserID != n.UserID {
		return noteDomain.ErrNoteNotFound
	}
	copied := *n
	r.Notes[n.ID] = &copied
	r.Applied[appliedKey(n.UserID, idemKey)] = true
	return nil
}

func (r *InMemoryNoteRepo) DeleteByID(ctx context.Context, userID string, id uuid.UUID, idemKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	existing, ok := r.Notes[id]
	if !ok || existing.UserID != userID {
		return noteDomain.ErrNoteNotFound
	}
	delete(r.Notes, id)
	r.Applied[appliedKey(userID, idemKey)] = true
	return nil
}

func (r *InMemoryNoteRepo) List(ctx context.Context, f noteDomain.NoteFilter) ([]*noteDomain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var notes []*noteDomain.Note
	for _, n := range r.Notes {
		if n.UserID != f.UserID {
			continue
		}
		copied := *n
		notes = append(notes, &copied)
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (r *InMemoryNoteRepo) WasApplied(ctx context.Context, userID, idemKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Applied[appliedKey(userID, idemKey)], nil
}

// Verificación estática.
var _ noteDomain.NoteRepository = (*InMemoryNoteRepo)(nil)

// DummyCache es un mock de caché en memoria, genérico y seguro para concurrencia.
type DummyCache struct {
	store map[string][]byte
	mu    sync.RWMutex
}

var _ sharedCache.Cache = (*DummyCache)(nil)

func NewDummyCache() *DummyCache {
	return &DummyCache{
		store: make(map[string][]byte),
	}
}

func (c *DummyCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.store[key]
	if !ok {
		return false, nil // Cache miss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil // Cache hit
}

func (c *DummyCache) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.store[key] = data
	return nil
}

func (c *DummyCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// DummyPublisher acumula los eventos publicados para inspeccionarlos en tests.
type DummyPublisher struct {
	Events []interface{}
	mu     sync.Mutex
}

func (p *DummyPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

func (p *DummyPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}
