package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sharedKV "github.com/davicafu/notelab/internal/shared/infra/platform/kv"
	"github.com/davicafu/notelab/internal/sync/domain"
	"github.com/davicafu/notelab/internal/sync/outbox"
	"github.com/davicafu/notelab/internal/sync/relayer"
	"github.com/davicafu/notelab/tests/mocks"
)

// Delays mínimos para que los tests con backoff no se eternicen.
var fastCfg = SyncerConfig{
	MaxAttempts: 5,
	BaseDelay:   time.Millisecond,
	Jitter:      time.Millisecond,
}

func newTestSyncer(cfg SyncerConfig) (*Syncer, *outbox.Store) {
	store := outbox.NewStore(sharedKV.NewInMemoryStore(), zap.NewNop())
	flusher := relayer.NewFlusher(store, zap.NewNop())
	return NewSyncer(flusher, cfg, zap.NewNop()), store
}

func enqueue(t *testing.T, store *outbox.Store, userID string, n int) []domain.OutboxItem {
	t.Helper()
	items := make([]domain.OutboxItem, 0, n)
	for i := 0; i < n; i++ {
		item, err := domain.NewOutboxItem(domain.MutationCreate, map[string]int{"n": i}, domain.ItemOptions{})
		assert.NoError(t, err)
		store.Enqueue(context.Background(), userID, item)
		items = append(items, item)
	}
	return items
}

func TestSync_ConvergesInOnePassWhenAllSucceed(t *testing.T) {
	syncer, store := newTestSyncer(fastCfg)
	ctx := context.Background()
	items := enqueue(t, store, "u1", 3)

	applier := mocks.NewScriptedApplier()

	result := syncer.SyncQueuedNotes(ctx, "u1", applier)

	assert.Len(t, result.SuccessIDs, 3)
	assert.Empty(t, result.RetriedIDs)
	assert.Equal(t, 0, store.Count(ctx, "u1"))

	// Converge en un solo intento: una llamada por item
	for _, it := range items {
		assert.Equal(t, 1, applier.CallCount(it.ID))
	}
}

func TestSync_RetriesAcrossAttemptsAndMergesResults(t *testing.T) {
	syncer, store := newTestSyncer(fastCfg)
	ctx := context.Background()
	items := enqueue(t, store, "u1", 2)

	// El primer item falla solo en su primer intento
	failedOnce := false
	applier := applierFunc(func(ctx context.Context, item domain.OutboxItem) (domain.ApplyResult, error) {
		if item.ID == items[0].ID && !failedOnce {
			failedOnce = true
			return domain.ApplyResult{}, errors.New("transient")
		}
		return domain.ApplyResult{Status: domain.ApplyStatusSuccess}, nil
	})

	result := syncer.SyncQueuedNotes(ctx, "u1", applier)

	// El resultado fusiona ambas pasadas: 2 éxitos y 1 retry intermedio
	assert.ElementsMatch(t, []string{items[0].ID, items[1].ID}, result.SuccessIDs)
	assert.Equal(t, []string{items[0].ID}, result.RetriedIDs)
	assert.Equal(t, 0, store.Count(ctx, "u1"))
}

func TestSync_StopsAtMaxAttempts(t *testing.T) {
	cfg := fastCfg
	cfg.MaxAttempts = 3
	syncer, store := newTestSyncer(cfg)
	ctx := context.Background()

	item, _ := domain.NewOutboxItem(domain.MutationUpdate, nil, domain.ItemOptions{})
	store.Enqueue(ctx, "u1", item)

	applier := mocks.NewScriptedApplier()
	applier.Errors[item.ID] = errors.New("still down")

	result := syncer.SyncQueuedNotes(ctx, "u1", applier)

	// Tres pasadas, tres rotaciones; el item sigue en cola para el próximo sync
	assert.Equal(t, 3, applier.CallCount(item.ID))
	assert.Len(t, result.RetriedIDs, 3)
	assert.Equal(t, 1, store.Count(ctx, "u1"))
	assert.Equal(t, 3, store.Load(ctx, "u1")[0].Retries)
}

func TestSync_ContextCancellationCutsBackoffWait(t *testing.T) {
	cfg := SyncerConfig{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Second, // la espera sería enorme sin cancelación
		Jitter:      time.Millisecond,
	}
	syncer, store := newTestSyncer(cfg)

	item, _ := domain.NewOutboxItem(domain.MutationCreate, nil, domain.ItemOptions{})
	store.Enqueue(context.Background(), "u1", item)

	applier := mocks.NewScriptedApplier()
	applier.Errors[item.ID] = errors.New("down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result := syncer.SyncQueuedNotes(ctx, "u1", applier)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, []string{item.ID}, result.RetriedIDs)
}

func TestSync_EmptyQueueReturnsEmptyResult(t *testing.T) {
	syncer, _ := newTestSyncer(fastCfg)

	result := syncer.SyncQueuedNotes(context.Background(), "u1", mocks.NewScriptedApplier())

	assert.Empty(t, result.SuccessIDs)
	assert.Empty(t, result.FailedIDs)
	assert.Empty(t, result.RetriedIDs)
}

func TestBackoffDelay_GrowsExponentially(t *testing.T) {
	syncer := NewSyncer(nil, SyncerConfig{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		Jitter:      50 * time.Millisecond,
	}, zap.NewNop())

	for attempt := 1; attempt <= 4; attempt++ {
		base := 100 * time.Millisecond * time.Duration(1<<uint(attempt))
		d := syncer.backoffDelay(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+50*time.Millisecond)
	}
}

type applierFunc func(ctx context.Context, item domain.OutboxItem) (domain.ApplyResult, error)

func (f applierFunc) Apply(ctx context.Context, item domain.OutboxItem) (domain.ApplyResult, error) {
	return f(ctx, item)
}
