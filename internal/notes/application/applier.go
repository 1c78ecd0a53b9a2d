package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/notelab/internal/notes/domain"
	syncDomain "github.com/davicafu/notelab/internal/sync/domain"
	"github.com/google/uuid"
)

// RepoApplier aplica mutaciones encoladas contra el repositorio canónico de
// notas. Se construye atado a un usuario (la cola ya es por usuario) y usa
// el registro de mutaciones para decodificar el payload al tipo correcto.
type RepoApplier struct {
	repo     domain.NoteRepository
	userID   string
	registry map[syncDomain.MutationType]reflect.Type
	log      *zap.Logger
}

var _ syncDomain.RemoteApplier = (*RepoApplier)(nil)

func NewRepoApplier(repo domain.NoteRepository, userID string, log *zap.Logger) *RepoApplier {
	return &RepoApplier{
		repo:     repo,
		userID:   userID,
		registry: domain.NewMutationRegistry(),
		log:      log,
	}
}

// Apply decodifica y ejecuta una mutación. El desenlace es siempre un
// ApplyResult explícito; el error de retorno queda reservado a fallos
// inesperados (el motor de flush los mapea a retry de todas formas).
func (a *RepoApplier) Apply(ctx context.Context, item syncDomain.OutboxItem) (syncDomain.ApplyResult, error) {
	// 1. Idempotencia: una redelivery de la misma mutación lógica no debe
	// duplicar efectos.
	applied, err := a.repo.WasApplied(ctx, a.userID, item.IdempotencyKey)
	if err != nil {
		return retryResult(err), nil
	}
	if applied {
		a.log.Debug("Mutación ya aplicada, se confirma sin efectos",
			zap.String("item_id", item.ID),
			zap.String("idempotency_key", item.IdempotencyKey),
		)
		return syncDomain.ApplyResult{Status: syncDomain.ApplyStatusSuccess}, nil
	}

	// 2. Usar el registro para decodificar el payload al tipo de mutación correcto
	typ, ok := a.registry[item.Type]
	if !ok {
		return failResult(fmt.Sprintf("unknown mutation type %q", item.Type)), nil
	}

	payload := reflect.New(typ).Interface()
	if err := json.Unmarshal(item.Payload, payload); err != nil {
		// Payload malformado no mejora reintentando: terminal.
		return failResult(fmt.Sprintf("malformed payload: %v", err)), nil
	}

	switch p := payload.(type) {
	case *domain.CreateNotePayload:
		return a.applyCreate(ctx, item, p), nil
	case *domain.UpdateNotePayload:
		return a.applyUpdate(ctx, item, p), nil
	case *domain.DeleteNotePayload:
		return a.applyDelete(ctx, item, p), nil
	default:
		return failResult(fmt.Sprintf("unhandled payload type %T", payload)), nil
	}
}

// applyCreate inserta la nota con un id canónico recién asignado y lo
// devuelve como MappedID para que el llamador reconcilie el TempID.
func (a *RepoApplier) applyCreate(ctx context.Context, item syncDomain.OutboxItem, p *domain.CreateNotePayload) syncDomain.ApplyResult {
	now := time.Now().UTC()
	note := &domain.Note{
		ID:        uuid.New(),
		UserID:    a.userID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.repo.Create(ctx, note, item.IdempotencyKey); err != nil {
		return a.classify(err)
	}

	return syncDomain.ApplyResult{
		Status:   syncDomain.ApplyStatusSuccess,
		MappedID: note.ID.String(),
	}
}

func (a *RepoApplier) applyUpdate(ctx context.Context, item syncDomain.OutboxItem, p *domain.UpdateNotePayload) syncDomain.ApplyResult {
	id, err := uuid.Parse(p.NoteID)
	if err != nil {
		return failResult(fmt.Sprintf("invalid note id %q", p.NoteID))
	}

	note, err := a.repo.GetByID(ctx, a.userID, id)
	if err != nil {
		return a.classify(err)
	}

	if p.Title != nil {
		note.Title = *p.Title
	}
	if p.Content != nil {
		note.Content = *p.Content
	}
	note.UpdatedAt = time.Now().UTC()

	if err := a.repo.Update(ctx, note, item.IdempotencyKey); err != nil {
		return a.classify(err)
	}
	return syncDomain.ApplyResult{Status: syncDomain.ApplyStatusSuccess}
}

func (a *RepoApplier) applyDelete(ctx context.Context, item syncDomain.OutboxItem, p *domain.DeleteNotePayload) syncDomain.ApplyResult {
	id, err := uuid.Parse(p.NoteID)
	if err != nil {
		return failResult(fmt.Sprintf("invalid note id %q", p.NoteID))
	}

	if err := a.repo.DeleteByID(ctx, a.userID, id, item.IdempotencyKey); err != nil {
		// Borrar algo ya borrado es un éxito: el estado deseado ya se cumple.
		if errors.Is(err, domain.ErrNoteNotFound) {
			return syncDomain.ApplyResult{Status: syncDomain.ApplyStatusSuccess}
		}
		return a.classify(err)
	}
	return syncDomain.ApplyResult{Status: syncDomain.ApplyStatusSuccess}
}

// classify separa fallos terminales (rechazo del dominio) de transitorios
// (backend caído, timeouts): los primeros se descartan, los segundos se
// reintentan.
func (a *RepoApplier) classify(err error) syncDomain.ApplyResult {
	switch {
	case errors.Is(err, domain.ErrNoteNotFound),
		errors.Is(err, domain.ErrNoteAlreadyExists),
		errors.Is(err, domain.ErrInvalidNote):
		return failResult(err.Error())
	default:
		return retryResult(err)
	}
}

func failResult(msg string) syncDomain.ApplyResult {
	return syncDomain.ApplyResult{
		Status:       syncDomain.ApplyStatusFail,
		ErrorMessage: msg,
	}
}

func retryResult(err error) syncDomain.ApplyResult {
	return syncDomain.ApplyResult{
		Status:       syncDomain.ApplyStatusRetry,
		ErrorMessage: err.Error(),
	}
}
