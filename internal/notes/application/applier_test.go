package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/notelab/internal/notes/domain"
	syncDomain "github.com/davicafu/notelab/internal/sync/domain"
	"github.com/davicafu/notelab/tests/mocks"
)

func newApplier(repo domain.NoteRepository) *RepoApplier {
	return NewRepoApplier(repo, "u1", zap.NewNop())
}

func createItem(t *testing.T, title, content, tempID string) syncDomain.OutboxItem {
	t.Helper()
	item, err := syncDomain.NewOutboxItem(syncDomain.MutationCreate, domain.CreateNotePayload{
		TempID:  tempID,
		Title:   title,
		Content: content,
	}, syncDomain.ItemOptions{TempID: tempID})
	assert.NoError(t, err)
	return item
}

func TestApply_CreateNoteReturnsMappedID(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	applier := newApplier(repo)
	ctx := context.Background()

	res, err := applier.Apply(ctx, createItem(t, "Compra", "leche, pan", "temp-1"))
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusSuccess, res.Status)
	assert.NotEmpty(t, res.MappedID)

	// La nota quedó en el repo con el id canónico del MappedID
	id, parseErr := uuid.Parse(res.MappedID)
	assert.NoError(t, parseErr)
	note, getErr := repo.GetByID(ctx, "u1", id)
	assert.NoError(t, getErr)
	assert.Equal(t, "Compra", note.Title)
	assert.Equal(t, "u1", note.UserID)
}

func TestApply_IdempotentRedeliveryIsNoOp(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	applier := newApplier(repo)
	ctx := context.Background()

	item := createItem(t, "Única", "", "temp-1")

	first, _ := applier.Apply(ctx, item)
	assert.Equal(t, syncDomain.ApplyStatusSuccess, first.Status)

	// La misma mutación entregada dos veces no duplica la nota
	second, err := applier.Apply(ctx, item)
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusSuccess, second.Status)
	assert.Empty(t, second.MappedID)
	assert.Len(t, repo.Notes, 1)
}

func TestApply_UpdatePatchesOnlyProvidedFields(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	ctx := context.Background()

	note := &domain.Note{
		ID:      uuid.New(),
		UserID:  "u1",
		Title:   "Original",
		Content: "contenido",
	}
	assert.NoError(t, repo.Create(ctx, note, "seed"))

	newTitle := "Renombrada"
	item, _ := syncDomain.NewOutboxItem(syncDomain.MutationUpdate, domain.UpdateNotePayload{
		NoteID: note.ID.String(),
		Title:  &newTitle,
	}, syncDomain.ItemOptions{})

	applier := newApplier(repo)
	res, err := applier.Apply(ctx, item)
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusSuccess, res.Status)

	updated, _ := repo.GetByID(ctx, "u1", note.ID)
	assert.Equal(t, "Renombrada", updated.Title)
	// El contenido no venía en el payload y se conserva
	assert.Equal(t, "contenido", updated.Content)
}

func TestApply_UpdateMissingNoteIsTerminal(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	applier := newApplier(repo)

	title := "da igual"
	item, _ := syncDomain.NewOutboxItem(syncDomain.MutationUpdate, domain.UpdateNotePayload{
		NoteID: uuid.New().String(),
		Title:  &title,
	}, syncDomain.ItemOptions{})

	res, err := applier.Apply(context.Background(), item)
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusFail, res.Status)
	assert.Contains(t, res.ErrorMessage, "not found")
}

func TestApply_DeleteExistingNote(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	ctx := context.Background()

	note := &domain.Note{ID: uuid.New(), UserID: "u1", Title: "borrar"}
	assert.NoError(t, repo.Create(ctx, note, "seed"))

	item, _ := syncDomain.NewOutboxItem(syncDomain.MutationDelete, domain.DeleteNotePayload{
		NoteID: note.ID.String(),
	}, syncDomain.ItemOptions{})

	applier := newApplier(repo)
	res, _ := applier.Apply(ctx, item)
	assert.Equal(t, syncDomain.ApplyStatusSuccess, res.Status)
	assert.Empty(t, repo.Notes)
}

func TestApply_DeleteMissingNoteIsSuccess(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	applier := newApplier(repo)

	item, _ := syncDomain.NewOutboxItem(syncDomain.MutationDelete, domain.DeleteNotePayload{
		NoteID: uuid.New().String(),
	}, syncDomain.ItemOptions{})

	// El estado deseado (la nota no existe) ya se cumple
	res, err := applier.Apply(context.Background(), item)
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusSuccess, res.Status)
}

func TestApply_UnknownMutationTypeIsTerminal(t *testing.T) {
	applier := newApplier(mocks.NewInMemoryNoteRepo())

	item := syncDomain.OutboxItem{
		ID:             uuid.New().String(),
		Type:           "archive",
		Payload:        []byte(`{}`),
		IdempotencyKey: uuid.New().String(),
		CreatedAt:      time.Now(),
	}

	res, err := applier.Apply(context.Background(), item)
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusFail, res.Status)
	assert.Contains(t, res.ErrorMessage, "unknown mutation type")
}

func TestApply_MalformedPayloadIsTerminal(t *testing.T) {
	applier := newApplier(mocks.NewInMemoryNoteRepo())

	item := syncDomain.OutboxItem{
		ID:             uuid.New().String(),
		Type:           syncDomain.MutationCreate,
		Payload:        []byte(`"not an object"`),
		IdempotencyKey: uuid.New().String(),
		CreatedAt:      time.Now(),
	}

	res, _ := applier.Apply(context.Background(), item)
	assert.Equal(t, syncDomain.ApplyStatusFail, res.Status)
	assert.Contains(t, res.ErrorMessage, "malformed payload")
}

func TestApply_InvalidNoteIDIsTerminal(t *testing.T) {
	applier := newApplier(mocks.NewInMemoryNoteRepo())

	item, _ := syncDomain.NewOutboxItem(syncDomain.MutationDelete, domain.DeleteNotePayload{
		NoteID: "no-es-un-uuid",
	}, syncDomain.ItemOptions{})

	res, _ := applier.Apply(context.Background(), item)
	assert.Equal(t, syncDomain.ApplyStatusFail, res.Status)
	assert.Contains(t, res.ErrorMessage, "invalid note id")
}

func TestApply_BackendErrorIsRetry(t *testing.T) {
	repo := mocks.NewInMemoryNoteRepo()
	repo.FailWith = errors.New("connection refused")
	applier := newApplier(repo)

	res, err := applier.Apply(context.Background(), createItem(t, "x", "", ""))
	assert.NoError(t, err)
	assert.Equal(t, syncDomain.ApplyStatusRetry, res.Status)
	assert.Contains(t, res.ErrorMessage, "connection refused")
}
