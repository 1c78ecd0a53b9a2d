package relayer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/davicafu/notelab/internal/sync/domain"
)

// DefaultMaxItemsPerRun limita los items procesados en una pasada de flush.
const DefaultMaxItemsPerRun = 50

// FlushOptions ajusta una pasada de flush.
type FlushOptions struct {
	// StopOnError corta la pasada al primer fallo terminal.
	StopOnError bool
	// MaxItemsPerRun limita los items procesados; <=0 usa el valor por defecto.
	MaxItemsPerRun int
}

// Flusher drena la cola outbox de un usuario contra un applier remoto,
// siempre desde la cabeza y de forma estrictamente secuencial: dos mutaciones
// de la misma nota nunca están en vuelo a la vez.
type Flusher struct {
	store domain.OutboxStore
	log   *zap.Logger
}

func NewFlusher(store domain.OutboxStore, log *zap.Logger) *Flusher {
	return &Flusher{store: store, log: log}
}

// Flush hace una pasada sobre la cola del usuario: cada item presente al
// empezar se intenta como mucho una vez, hasta el tope MaxItemsPerRun.
// Protocolo por item:
//   - success: se elimina de la cabeza y se anota en SuccessIDs (con el id
//     mapeado del servidor, si lo hay).
//   - retry: incrementa Retries; si supera MaxRetries pasa a fallo terminal
//     ("max retries exceeded"); si no, rota al final de la cola para que un
//     item atascado no bloquee al resto. El siguiente intento le toca en la
//     pasada siguiente, con el backoff del orquestador por medio.
//   - cualquier otro status: fallo terminal; con StopOnError la pasada
//     termina ahí.
//
// Un error (o panic) del applier se trata igual que retry: el motor nunca
// propaga fallos del applier al llamador. La cola se persiste tras cada
// operación, no en batch: un crash a mitad de flush deja los items ya
// procesados fuera de la cola.
func (f *Flusher) Flush(ctx context.Context, userID string, applier domain.RemoteApplier, opts FlushOptions) *domain.FlushResult {
	result := domain.NewFlushResult()

	maxItems := opts.MaxItemsPerRun
	if maxItems <= 0 {
		maxItems = DefaultMaxItemsPerRun
	}

	// El tope de la pasada se fija con la longitud inicial: los items rotados
	// al final no se reintentan dentro de la misma pasada.
	limit := f.store.Count(ctx, userID)
	if limit > maxItems {
		limit = maxItems
	}

	for processed := 0; processed < limit; processed++ {
		items := f.store.Load(ctx, userID)
		if len(items) == 0 {
			break
		}
		item := items[0]

		res := f.applyItem(ctx, applier, item)

		switch res.Status {
		case domain.ApplyStatusSuccess:
			f.store.Remove(ctx, userID, item.ID)
			result.SuccessIDs = append(result.SuccessIDs, item.ID)
			if res.MappedID != "" {
				key := item.TempID
				if key == "" {
					key = item.ID
				}
				result.MappedIDs[key] = res.MappedID
			}
			f.log.Debug("✅ Mutación aplicada",
				zap.String("user_id", userID),
				zap.String("item_id", item.ID),
			)

		case domain.ApplyStatusRetry:
			item.Retries++
			if item.Retries > domain.MaxRetries {
				// Reintentos agotados: se reclasifica como fallo terminal.
				f.store.Remove(ctx, userID, item.ID)
				msg := res.ErrorMessage
				if msg == "" {
					msg = "max retries exceeded"
				}
				result.FailedIDs = append(result.FailedIDs, item.ID)
				result.Errors[item.ID] = msg
				f.log.Warn("⚠️ Mutación descartada por agotar reintentos",
					zap.String("user_id", userID),
					zap.String("item_id", item.ID),
					zap.Int("retries", item.Retries),
				)
			} else {
				// Rotación: sale de la cabeza y vuelve a entrar por el final.
				f.store.Remove(ctx, userID, item.ID)
				f.store.Enqueue(ctx, userID, item)
				result.RetriedIDs = append(result.RetriedIDs, item.ID)
			}

		default:
			// Rechazo explícito del servidor o status desconocido: terminal.
			f.store.Remove(ctx, userID, item.ID)
			msg := res.ErrorMessage
			if msg == "" {
				msg = fmt.Sprintf("handler rejected mutation (status %q)", res.Status)
			}
			result.FailedIDs = append(result.FailedIDs, item.ID)
			result.Errors[item.ID] = msg
			f.log.Warn("⚠️ Mutación rechazada",
				zap.String("user_id", userID),
				zap.String("item_id", item.ID),
				zap.String("error", msg),
			)
			if opts.StopOnError {
				return result
			}
		}
	}

	return result
}

// applyItem invoca al applier absorbiendo errores y panics: ambos se mapean
// al camino de retry.
func (f *Flusher) applyItem(ctx context.Context, applier domain.RemoteApplier, item domain.OutboxItem) (res domain.ApplyResult) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("Panic en el applier remoto",
				zap.String("item_id", item.ID),
				zap.Any("panic", r),
			)
			res = domain.ApplyResult{
				Status:       domain.ApplyStatusRetry,
				ErrorMessage: fmt.Sprintf("handler panic: %v", r),
			}
		}
	}()

	out, err := applier.Apply(ctx, item)
	if err != nil {
		return domain.ApplyResult{
			Status:       domain.ApplyStatusRetry,
			ErrorMessage: err.Error(),
		}
	}
	return out
}
