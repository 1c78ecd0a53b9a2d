package draft

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	sharedKV "github.com/davicafu/notelab/internal/shared/infra/platform/kv"
	"github.com/davicafu/notelab/internal/sync/domain"
)

// Store implementa domain.DraftStore sobre un almacén clave-valor.
type Store struct {
	kvs sharedKV.Store
	log *zap.Logger
}

var _ domain.DraftStore = (*Store)(nil)

func NewStore(kvs sharedKV.Store, log *zap.Logger) *Store {
	return &Store{kvs: kvs, log: log}
}

func draftKey(userID string) string {
	return "draft:" + userID
}

// Save persiste el borrador del usuario. Si el JSON serializado supera
// DraftMaxBytes la escritura se omite sin error.
func (s *Store) Save(ctx context.Context, userID, content string) {
	if userID == "" {
		return
	}

	d := domain.Draft{
		Content:   content,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(d)
	if err != nil {
		s.log.Warn("⚠️ No se pudo serializar el borrador", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if len(data) > domain.DraftMaxBytes {
		s.log.Debug("Borrador demasiado grande, no se persiste",
			zap.String("user_id", userID),
			zap.Int("bytes", len(data)),
		)
		return
	}

	if err := s.kvs.SetItem(ctx, draftKey(userID), string(data)); err != nil {
		s.log.Warn("⚠️ No se pudo persistir el borrador", zap.String("user_id", userID), zap.Error(err))
	}
}

// Load devuelve el borrador persistido, o nil si no existe, está malformado
// o el backend no responde.
func (s *Store) Load(ctx context.Context, userID string) *domain.Draft {
	if userID == "" {
		return nil
	}

	raw, ok, err := s.kvs.GetItem(ctx, draftKey(userID))
	if err != nil {
		s.log.Warn("⚠️ No se pudo leer el borrador", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var d domain.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// Contenido con forma incorrecta se trata como ausente, no como error.
		return nil
	}
	return &d
}

// Clear elimina el borrador; no-op si no existe.
func (s *Store) Clear(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := s.kvs.RemoveItem(ctx, draftKey(userID)); err != nil {
		s.log.Warn("⚠️ No se pudo limpiar el borrador", zap.String("user_id", userID), zap.Error(err))
	}
}
