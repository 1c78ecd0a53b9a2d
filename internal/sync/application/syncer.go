package application

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/notelab/internal/sync/domain"
	"github.com/davicafu/notelab/internal/sync/relayer"
)

// Syncer repite pasadas de flush con backoff exponencial y jitter hasta que
// la cola converge (ninguna mutación quedó en retry) o se agota el
// presupuesto de intentos.
type Syncer struct {
	flusher     *relayer.Flusher
	maxAttempts int
	baseDelay   time.Duration
	jitter      time.Duration
	itemsPerRun int
	log         *zap.Logger
}

// SyncerConfig agrupa los parámetros de backoff; los valores <=0 toman el
// defecto.
type SyncerConfig struct {
	MaxAttempts int           // defecto 5
	BaseDelay   time.Duration // defecto 500ms
	Jitter      time.Duration // defecto 200ms
	ItemsPerRun int           // defecto 100
}

func NewSyncer(flusher *relayer.Flusher, cfg SyncerConfig, log *zap.Logger) *Syncer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = 200 * time.Millisecond
	}
	if cfg.ItemsPerRun <= 0 {
		cfg.ItemsPerRun = 100
	}
	return &Syncer{
		flusher:     flusher,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		jitter:      cfg.Jitter,
		itemsPerRun: cfg.ItemsPerRun,
		log:         log,
	}
}

// SyncQueuedNotes drena la cola del usuario fusionando los resultados de
// cada pasada. Entre pasadas duerme base*2^intento más un jitter aleatorio,
// para que varias pestañas o dispositivos que reconectan a la vez no
// machaquen al servidor al unísono. La espera respeta la cancelación del
// contexto.
func (s *Syncer) SyncQueuedNotes(ctx context.Context, userID string, applier domain.RemoteApplier) *domain.FlushResult {
	merged := domain.NewFlushResult()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		res := s.flusher.Flush(ctx, userID, applier, relayer.FlushOptions{
			MaxItemsPerRun: s.itemsPerRun,
		})
		merged.Merge(res)

		// Sin retries pendientes la cola ha drenado o solo quedan fallos
		// terminales: hemos convergido.
		if len(res.RetriedIDs) == 0 {
			break
		}

		delay := s.backoffDelay(attempt + 1)
		s.log.Info("🔄 Reintentando flush con backoff",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Int("retried", len(res.RetriedIDs)),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return merged
		}
	}

	return merged
}

// backoffDelay calcula base*2^attempt + random(jitter).
func (s *Syncer) backoffDelay(attempt int) time.Duration {
	delay := s.baseDelay * time.Duration(1<<uint(attempt))
	if s.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	return delay
}
