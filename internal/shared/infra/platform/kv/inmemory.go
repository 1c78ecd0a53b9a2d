package kv

import (
	"context"
	"sync"
)

// InMemoryStore implementa la interfaz Store usando un mapa en memoria.
// Es el fallback cuando no hay backend de persistencia disponible (tests,
// entornos degradados): el estado no sobrevive al reinicio del proceso.
type InMemoryStore struct {
	store map[string]string
	mu    sync.RWMutex // RWMutex permite múltiples lectores o un solo escritor.
}

// Verificación estática: asegura en tiempo de compilación que InMemoryStore implementa la interfaz.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore crea un nuevo almacén en memoria.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		store: make(map[string]string),
	}
}

// GetItem recupera un valor. Es seguro para uso concurrente.
func (s *InMemoryStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.store[key]
	return val, ok, nil
}

// SetItem guarda un valor. Es seguro para uso concurrente.
func (s *InMemoryStore) SetItem(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[key] = value
	return nil
}

// RemoveItem elimina una key. Es seguro para uso concurrente.
func (s *InMemoryStore) RemoveItem(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.store, key)
	return nil
}
