package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	noteDomain "github.com/davicafu/notelab/internal/notes/domain"
	sharedCache "github.com/davicafu/notelab/internal/shared/infra/platform/cache"
	sharedUtils "github.com/davicafu/notelab/internal/shared/infra/utils"
)

// NoteConsumer procesa eventos de notas publicados por otras instancias.
// Su único efecto es invalidar la caché local: la próxima lectura de la nota
// afectada pasará por el repositorio canónico. Los eventos son idempotentes;
// invalidar una entrada ya ausente no hace nada.
type NoteConsumer struct {
	cache sharedCache.Cache
	log   *zap.Logger
}

func NewNoteConsumer(cache sharedCache.Cache, logger *zap.Logger) *NoteConsumer {
	return &NoteConsumer{
		cache: cache,
		log:   logger,
	}
}

func (c *NoteConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	sharedUtils.UnmarshalAndHandle[noteDomain.NoteEvent](c.log, payload, func(evt noteDomain.NoteEvent) {
		switch evt.Type {
		case noteDomain.NoteUpdated, noteDomain.NoteDeleted, noteDomain.NoteSynced:
			id, err := uuid.Parse(evt.NoteID)
			if err != nil {
				c.log.Warn("Evento de nota con id inválido",
					zap.String("type", evt.Type),
					zap.String("note_id", evt.NoteID),
				)
				return
			}
			sharedCache.AsyncCacheDelete(ctx, c.cache, noteDomain.CacheKeyByID(evt.UserID, id), c.log)
			c.log.Debug("Caché de nota invalidada por evento",
				zap.String("type", evt.Type),
				zap.String("note_id", evt.NoteID),
			)

		case noteDomain.NoteCreated:
			// Una nota nueva no puede estar cacheada todavía.

		default:
			c.log.Warn("Unknown event type", zap.String("type", evt.Type))
		}
	})
}
