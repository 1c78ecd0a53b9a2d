package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sharedKV "github.com/davicafu/notelab/internal/shared/infra/platform/kv"
	"github.com/davicafu/notelab/internal/sync/domain"
	"github.com/davicafu/notelab/tests/mocks"
)

func newTestStore() *Store {
	return NewStore(sharedKV.NewInMemoryStore(), zap.NewNop())
}

func mustItem(t *testing.T, typ domain.MutationType) domain.OutboxItem {
	t.Helper()
	item, err := domain.NewOutboxItem(typ, map[string]string{"title": "x"}, domain.ItemOptions{})
	assert.NoError(t, err)
	return item
}

func TestEnqueue_FIFOOrder(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	a := mustItem(t, domain.MutationCreate)
	b := mustItem(t, domain.MutationUpdate)
	c := mustItem(t, domain.MutationDelete)

	store.Enqueue(ctx, "u1", a)
	store.Enqueue(ctx, "u1", b)
	store.Enqueue(ctx, "u1", c)

	items := store.Load(ctx, "u1")
	assert.Len(t, items, 3)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, b.ID, items[1].ID)
	assert.Equal(t, c.ID, items[2].ID)
	assert.Equal(t, 3, store.Count(ctx, "u1"))
}

func TestLoad_PerUserIsolation(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.Enqueue(ctx, "u1", mustItem(t, domain.MutationCreate))
	store.Enqueue(ctx, "u2", mustItem(t, domain.MutationCreate))
	store.Enqueue(ctx, "u2", mustItem(t, domain.MutationUpdate))

	assert.Equal(t, 1, store.Count(ctx, "u1"))
	assert.Equal(t, 2, store.Count(ctx, "u2"))
	assert.ElementsMatch(t, []string{"u1", "u2"}, store.Users())
}

func TestLoad_CorruptQueueReturnsEmpty(t *testing.T) {
	kvs := sharedKV.NewInMemoryStore()
	store := NewStore(kvs, zap.NewNop())
	ctx := context.Background()

	// Contenido que no parsea como lista de items
	_ = kvs.SetItem(ctx, "outbox:u1", "{not json")

	items := store.Load(ctx, "u1")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestLoad_BackendDownDegradesToEmpty(t *testing.T) {
	store := NewStore(mocks.FailingKV{}, zap.NewNop())
	ctx := context.Background()

	// Ninguna operación debe propagar el error del backend
	store.Enqueue(ctx, "u1", mustItem(t, domain.MutationCreate))
	items := store.Load(ctx, "u1")
	assert.Empty(t, items)
	assert.Equal(t, 0, store.Count(ctx, "u1"))
	store.Clear(ctx, "u1")
}

func TestRemove_MiddleOfQueue(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	a := mustItem(t, domain.MutationCreate)
	b := mustItem(t, domain.MutationUpdate)
	c := mustItem(t, domain.MutationDelete)
	store.Enqueue(ctx, "u1", a)
	store.Enqueue(ctx, "u1", b)
	store.Enqueue(ctx, "u1", c)

	store.Remove(ctx, "u1", b.ID)

	items := store.Load(ctx, "u1")
	assert.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, c.ID, items[1].ID)

	// Eliminar un id inexistente es no-op
	store.Remove(ctx, "u1", "nope")
	assert.Equal(t, 2, store.Count(ctx, "u1"))
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	a := mustItem(t, domain.MutationCreate)
	b := mustItem(t, domain.MutationUpdate)
	store.Enqueue(ctx, "u1", a)
	store.Enqueue(ctx, "u1", b)

	a.Retries = 3
	store.Update(ctx, "u1", a)

	items := store.Load(ctx, "u1")
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, 3, items[0].Retries)
	assert.Equal(t, 0, items[1].Retries)
}

func TestClear_EmptiesQueue(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.Enqueue(ctx, "u1", mustItem(t, domain.MutationCreate))
	store.Clear(ctx, "u1")

	assert.Empty(t, store.Load(ctx, "u1"))
	assert.Equal(t, 0, store.Count(ctx, "u1"))
}

func TestEnqueue_EmptyUserIsNoOp(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.Enqueue(ctx, "", mustItem(t, domain.MutationCreate))
	assert.Empty(t, store.Load(ctx, ""))
	assert.Empty(t, store.Users())
}
