package outbox

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	sharedKV "github.com/davicafu/notelab/internal/shared/infra/platform/kv"
	"github.com/davicafu/notelab/internal/sync/domain"
)

// Store implementa domain.OutboxStore sobre un almacén clave-valor. La cola
// completa de cada usuario se serializa como JSON bajo una sola clave y toda
// mutación es leer-lista, modificar, escribir-lista: tras cada paso el estado
// en disco es consistente.
type Store struct {
	kvs sharedKV.Store
	log *zap.Logger

	// usuarios que han encolado algo en este proceso; permite al loop de
	// sincronización periódica saber a quién atender sin enumerar el KV
	mu    sync.Mutex
	users map[string]struct{}
}

// Verificación estática.
var _ domain.OutboxStore = (*Store)(nil)

func NewStore(kvs sharedKV.Store, log *zap.Logger) *Store {
	return &Store{
		kvs:   kvs,
		log:   log,
		users: make(map[string]struct{}),
	}
}

func outboxKey(userID string) string {
	return "outbox:" + userID
}

// Load devuelve la cola del usuario en orden FIFO. Nunca propaga errores:
// backend caído o contenido que no parsea devuelven [].
func (s *Store) Load(ctx context.Context, userID string) []domain.OutboxItem {
	if userID == "" {
		return []domain.OutboxItem{}
	}

	raw, ok, err := s.kvs.GetItem(ctx, outboxKey(userID))
	if err != nil {
		s.log.Warn("⚠️ No se pudo leer la cola outbox", zap.String("user_id", userID), zap.Error(err))
		return []domain.OutboxItem{}
	}
	if !ok {
		return []domain.OutboxItem{}
	}

	var items []domain.OutboxItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("⚠️ Cola outbox corrupta, se descarta", zap.String("user_id", userID), zap.Error(err))
		return []domain.OutboxItem{}
	}
	return items
}

// Save sobrescribe la cola completa del usuario.
func (s *Store) Save(ctx context.Context, userID string, items []domain.OutboxItem) {
	if userID == "" {
		return
	}

	data, err := json.Marshal(items)
	if err != nil {
		s.log.Warn("⚠️ No se pudo serializar la cola outbox", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.kvs.SetItem(ctx, outboxKey(userID), string(data)); err != nil {
		s.log.Warn("⚠️ No se pudo persistir la cola outbox", zap.String("user_id", userID), zap.Error(err))
	}
}

// Enqueue añade al final de la cola.
func (s *Store) Enqueue(ctx context.Context, userID string, item domain.OutboxItem) {
	if userID == "" {
		return
	}

	items := s.Load(ctx, userID)
	items = append(items, item)
	s.Save(ctx, userID, items)

	s.mu.Lock()
	s.users[userID] = struct{}{}
	s.mu.Unlock()

	s.log.Debug("📥 Mutación encolada",
		zap.String("user_id", userID),
		zap.String("item_id", item.ID),
		zap.String("type", string(item.Type)),
	)
}

// Remove elimina un item por id; no-op si no está.
func (s *Store) Remove(ctx context.Context, userID, itemID string) {
	items := s.Load(ctx, userID)
	next := make([]domain.OutboxItem, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == itemID {
			found = true
			continue
		}
		next = append(next, it)
	}
	if found {
		s.Save(ctx, userID, next)
	}
}

// Update reemplaza un item in situ, emparejado por id; no-op si no existe.
func (s *Store) Update(ctx context.Context, userID string, item domain.OutboxItem) {
	items := s.Load(ctx, userID)
	for i, it := range items {
		if it.ID == item.ID {
			items[i] = item
			s.Save(ctx, userID, items)
			return
		}
	}
}

// Count devuelve el número de mutaciones pendientes del usuario.
func (s *Store) Count(ctx context.Context, userID string) int {
	return len(s.Load(ctx, userID))
}

// Clear vacía la cola del usuario.
func (s *Store) Clear(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := s.kvs.RemoveItem(ctx, outboxKey(userID)); err != nil {
		s.log.Warn("⚠️ No se pudo vaciar la cola outbox", zap.String("user_id", userID), zap.Error(err))
	}
}

// Users devuelve los usuarios que han encolado mutaciones en este proceso.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	return out
}
