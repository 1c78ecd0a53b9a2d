package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/notelab/internal/notes/domain"
	"github.com/davicafu/notelab/internal/notes/infra/outbound/connectivity"
	sharedKV "github.com/davicafu/notelab/internal/shared/infra/platform/kv"
	syncApp "github.com/davicafu/notelab/internal/sync/application"
	syncDomain "github.com/davicafu/notelab/internal/sync/domain"
	"github.com/davicafu/notelab/internal/sync/draft"
	"github.com/davicafu/notelab/internal/sync/outbox"
	"github.com/davicafu/notelab/internal/sync/relayer"
	"github.com/davicafu/notelab/tests/mocks"
)

type serviceFixture struct {
	service *NoteService
	repo    *mocks.InMemoryNoteRepo
	events  *mocks.DummyPublisher
	outbox  *outbox.Store
	drafts  *draft.Store
	conn    *connectivity.Toggle
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	log := zap.NewNop()
	repo := mocks.NewInMemoryNoteRepo()
	events := &mocks.DummyPublisher{}
	outboxStore := outbox.NewStore(sharedKV.NewInMemoryStore(), log)
	draftStore := draft.NewStore(sharedKV.NewInMemoryStore(), log)
	flusher := relayer.NewFlusher(outboxStore, log)
	syncer := syncApp.NewSyncer(flusher, syncApp.SyncerConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Jitter:      time.Millisecond,
	}, log)
	conn := connectivity.NewToggle(true)

	service := NewNoteService(repo, mocks.NewDummyCache(), events, outboxStore, draftStore, syncer, conn, log)
	return &serviceFixture{
		service: service,
		repo:    repo,
		events:  events,
		outbox:  outboxStore,
		drafts:  draftStore,
		conn:    conn,
	}
}

func TestCreateNote_OnlineAppliesDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.service.CreateNote(ctx, "u1", "Compra", "leche")
	assert.NoError(t, err)
	assert.False(t, out.Queued)
	assert.NotNil(t, out.Note)
	assert.Equal(t, "Compra", out.Note.Title)

	// Aplicada en el repo, nada pendiente y evento publicado
	assert.Len(t, f.repo.Notes, 1)
	assert.Equal(t, 0, f.service.PendingCount(ctx, "u1"))
	assert.Equal(t, 1, f.events.Len())
}

func TestCreateNote_OfflineEnqueuesWithTempID(t *testing.T) {
	f := newFixture(t)
	f.conn.SetOnline(false)
	ctx := context.Background()

	out, err := f.service.CreateNote(ctx, "u1", "Sin red", "contenido")
	assert.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Nil(t, out.Note)
	assert.Contains(t, out.TempID, "temp-")

	// Nada llegó al repo; la mutación espera en la cola
	assert.Empty(t, f.repo.Notes)
	assert.Equal(t, 1, f.service.PendingCount(ctx, "u1"))

	items := f.outbox.Load(ctx, "u1")
	assert.Equal(t, syncDomain.MutationCreate, items[0].Type)
	assert.Equal(t, out.TempID, items[0].TempID)
}

func TestCreateNote_ClearsDraftInBothModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.SaveDraft(ctx, "u1", "borrador online")
	_, err := f.service.CreateNote(ctx, "u1", "a", "b")
	assert.NoError(t, err)
	assert.Nil(t, f.service.LoadDraft(ctx, "u1"))

	f.conn.SetOnline(false)
	f.service.SaveDraft(ctx, "u1", "borrador offline")
	_, err = f.service.CreateNote(ctx, "u1", "c", "d")
	assert.NoError(t, err)
	assert.Nil(t, f.service.LoadDraft(ctx, "u1"))
}

func TestUpdateNote_OfflineEnqueues(t *testing.T) {
	f := newFixture(t)
	f.conn.SetOnline(false)
	ctx := context.Background()

	title := "nuevo título"
	out, err := f.service.UpdateNote(ctx, "u1", uuid.New().String(), &title, nil)
	assert.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, 1, f.service.PendingCount(ctx, "u1"))
}

func TestUpdateNote_TempReferenceEnqueuesEvenOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Un id que no es UUID referencia una nota aún sin sincronizar
	title := "editada antes de sincronizar"
	out, err := f.service.UpdateNote(ctx, "u1", "temp-123", &title, nil)
	assert.NoError(t, err)
	assert.True(t, out.Queued)

	items := f.outbox.Load(ctx, "u1")
	assert.Len(t, items, 1)
	assert.Equal(t, syncDomain.MutationUpdate, items[0].Type)
}

func TestUpdateNote_OnlinePatchesRepo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, _ := f.service.CreateNote(ctx, "u1", "Original", "contenido")
	title := "Cambiada"

	out, err := f.service.UpdateNote(ctx, "u1", created.Note.ID.String(), &title, nil)
	assert.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Equal(t, "Cambiada", out.Note.Title)
	assert.Equal(t, "contenido", out.Note.Content)
}

func TestDeleteNote_OnlineRemovesFromRepo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, _ := f.service.CreateNote(ctx, "u1", "borrar", "")

	out, err := f.service.DeleteNote(ctx, "u1", created.Note.ID.String())
	assert.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Empty(t, f.repo.Notes)
}

func TestDeleteNote_OfflineEnqueues(t *testing.T) {
	f := newFixture(t)
	f.conn.SetOnline(false)
	ctx := context.Background()

	out, err := f.service.DeleteNote(ctx, "u1", uuid.New().String())
	assert.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, 1, f.service.PendingCount(ctx, "u1"))
}

func TestGetNote_CacheHitSkipsRepo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := uuid.New()
	cached := &domain.Note{ID: id, UserID: "u1", Title: "CacheNote"}
	cache := mocks.NewDummyCache()
	_ = cache.Set(ctx, domain.CacheKeyByID("u1", id), cached, 60)

	service := NewNoteService(f.repo, cache, nil, f.outbox, f.drafts, nil, f.conn, zap.NewNop())

	note, err := service.GetNote(ctx, "u1", id)
	assert.NoError(t, err)
	assert.Equal(t, "CacheNote", note.Title)

	// No está en el repo: la respuesta solo pudo venir de la caché
	_, repoErr := f.repo.GetByID(ctx, "u1", id)
	assert.ErrorIs(t, repoErr, domain.ErrNoteNotFound)
}

func TestGetNote_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetNote(context.Background(), "u1", uuid.New())
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestSync_DrainsOfflineQueueAndMapsTempIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.conn.SetOnline(false)
	created, _ := f.service.CreateNote(ctx, "u1", "Offline", "texto")
	assert.Equal(t, 1, f.service.PendingCount(ctx, "u1"))

	f.conn.SetOnline(true)
	result, err := f.service.Sync(ctx, "u1")
	assert.NoError(t, err)

	assert.Len(t, result.SuccessIDs, 1)
	assert.Equal(t, 0, f.service.PendingCount(ctx, "u1"))

	// El TempID quedó mapeado al id canónico asignado por el repo
	mapped, ok := result.MappedIDs[created.TempID]
	assert.True(t, ok)
	id, parseErr := uuid.Parse(mapped)
	assert.NoError(t, parseErr)
	note, getErr := f.repo.GetByID(ctx, "u1", id)
	assert.NoError(t, getErr)
	assert.Equal(t, "Offline", note.Title)

	// Se publicó note.synced con el mapeo
	assert.Equal(t, 1, f.events.Len())
	evt, isNoteEvent := f.events.Events[0].(domain.NoteEvent)
	assert.True(t, isNoteEvent)
	assert.Equal(t, domain.NoteSynced, evt.Type)
	assert.Equal(t, created.TempID, evt.TempID)
	assert.Equal(t, mapped, evt.NoteID)
}

func TestSync_EmptyUserIsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Sync(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidNote)
}

func TestMutations_EmptyUserIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateNote(ctx, "", "a", "b")
	assert.ErrorIs(t, err, domain.ErrInvalidNote)

	title := "x"
	_, err = f.service.UpdateNote(ctx, "", uuid.New().String(), &title, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidNote)

	_, err = f.service.DeleteNote(ctx, "", uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrInvalidNote)
}
