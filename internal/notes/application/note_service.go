package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/notelab/internal/notes/domain"
	sharedBus "github.com/davicafu/notelab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/notelab/internal/shared/infra/platform/cache"
	syncApp "github.com/davicafu/notelab/internal/sync/application"
	syncDomain "github.com/davicafu/notelab/internal/sync/domain"
	"github.com/google/uuid"
)

// NoteService define los casos de uso relacionados con notas. Con
// conectividad aplica las mutaciones directamente contra el repositorio
// canónico; sin ella las encola en el outbox, que es la única fuente de
// verdad del estado "pendiente".
type NoteService struct {
	repo   domain.NoteRepository
	cache  sharedCache.Cache
	events sharedBus.EventPublisher
	outbox syncDomain.OutboxStore
	drafts syncDomain.DraftStore
	syncer *syncApp.Syncer
	conn   domain.Connectivity
	log    *zap.Logger
}

// NewNoteService constructor
func NewNoteService(
	repo domain.NoteRepository,
	cache sharedCache.Cache,
	events sharedBus.EventPublisher,
	outbox syncDomain.OutboxStore,
	drafts syncDomain.DraftStore,
	syncer *syncApp.Syncer,
	conn domain.Connectivity,
	log *zap.Logger,
) *NoteService {
	return &NoteService{
		repo:   repo,
		cache:  cache,
		events: events,
		outbox: outbox,
		drafts: drafts,
		syncer: syncer,
		conn:   conn,
		log:    log,
	}
}

// MutationOutcome describe el desenlace de una mutación de nota: aplicada ya
// (Note relleno) o encolada para sincronizar (Queued, con TempID si fue un
// create).
type MutationOutcome struct {
	Note   *domain.Note `json:"note,omitempty"`
	TempID string       `json:"temp_id,omitempty"`
	Queued bool         `json:"queued"`
}

// CreateNote crea una nota. Online: alta directa en el repositorio. Offline:
// se encola un create con un TempID placeholder que el sync sustituirá por
// el id canónico. En ambos casos el borrador del usuario se limpia, porque
// el contenido ya quedó capturado.
func (s *NoteService) CreateNote(ctx context.Context, userID, title, content string) (*MutationOutcome, error) {
	if userID == "" {
		return nil, domain.ErrInvalidNote
	}

	if !s.conn.Online(ctx) {
		tempID := "temp-" + uuid.New().String()
		payload := domain.CreateNotePayload{
			TempID:  tempID,
			Title:   title,
			Content: content,
		}
		item, err := syncDomain.NewOutboxItem(syncDomain.MutationCreate, payload, syncDomain.ItemOptions{TempID: tempID})
		if err != nil {
			return nil, err
		}
		s.outbox.Enqueue(ctx, userID, item)
		s.drafts.Clear(ctx, userID)
		return &MutationOutcome{TempID: tempID, Queued: true}, nil
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note, uuid.New().String()); err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(userID, note.ID), note, 60, s.log)
	s.publishEvent(ctx, domain.NoteCreated, userID, "", note.ID.String())
	s.drafts.Clear(ctx, userID)

	return &MutationOutcome{Note: note}, nil
}

// UpdateNote modifica título y/o contenido. Si el id no es un UUID canónico
// (referencia un TempID aún sin sincronizar) o no hay conectividad, la
// mutación se encola.
func (s *NoteService) UpdateNote(ctx context.Context, userID, noteID string, title, content *string) (*MutationOutcome, error) {
	if userID == "" {
		return nil, domain.ErrInvalidNote
	}

	id, parseErr := uuid.Parse(noteID)
	if parseErr != nil || !s.conn.Online(ctx) {
		payload := domain.UpdateNotePayload{NoteID: noteID, Title: title, Content: content}
		item, err := syncDomain.NewOutboxItem(syncDomain.MutationUpdate, payload, syncDomain.ItemOptions{})
		if err != nil {
			return nil, err
		}
		s.outbox.Enqueue(ctx, userID, item)
		return &MutationOutcome{Queued: true}, nil
	}

	note, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		note.Title = *title
	}
	if content != nil {
		note.Content = *content
	}
	note.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, note, uuid.New().String()); err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(userID, note.ID), note, 60, s.log)
	s.publishEvent(ctx, domain.NoteUpdated, userID, "", note.ID.String())

	return &MutationOutcome{Note: note}, nil
}

// DeleteNote elimina una nota, directa o encolada según conectividad.
func (s *NoteService) DeleteNote(ctx context.Context, userID, noteID string) (*MutationOutcome, error) {
	if userID == "" {
		return nil, domain.ErrInvalidNote
	}

	id, parseErr := uuid.Parse(noteID)
	if parseErr != nil || !s.conn.Online(ctx) {
		payload := domain.DeleteNotePayload{NoteID: noteID}
		item, err := syncDomain.NewOutboxItem(syncDomain.MutationDelete, payload, syncDomain.ItemOptions{})
		if err != nil {
			return nil, err
		}
		s.outbox.Enqueue(ctx, userID, item)
		return &MutationOutcome{Queued: true}, nil
	}

	if err := s.repo.DeleteByID(ctx, userID, id, uuid.New().String()); err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheDelete(ctx, s.cache, domain.CacheKeyByID(userID, id), s.log)
	s.publishEvent(ctx, domain.NoteDeleted, userID, "", id.String())

	return &MutationOutcome{Queued: false}, nil
}

// GetNote lee con cache read-through.
func (s *NoteService) GetNote(ctx context.Context, userID string, id uuid.UUID) (*domain.Note, error) {
	if s.cache != nil {
		var cached domain.Note
		hit, err := s.cache.Get(ctx, domain.CacheKeyByID(userID, id), &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	note, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(userID, id), note, 60, s.log)
	return note, nil
}

// ListNotes delega en el repositorio.
func (s *NoteService) ListNotes(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	return s.repo.List(ctx, f)
}

// ---------- Borradores ----------

func (s *NoteService) SaveDraft(ctx context.Context, userID, content string) {
	s.drafts.Save(ctx, userID, content)
}

func (s *NoteService) LoadDraft(ctx context.Context, userID string) *syncDomain.Draft {
	return s.drafts.Load(ctx, userID)
}

func (s *NoteService) ClearDraft(ctx context.Context, userID string) {
	s.drafts.Clear(ctx, userID)
}

// ---------- Sincronización ----------

// PendingCount devuelve el tamaño de la cola, para el badge de pendientes.
func (s *NoteService) PendingCount(ctx context.Context, userID string) int {
	return s.outbox.Count(ctx, userID)
}

// Sync drena la cola del usuario contra el repositorio canónico. Por cada
// create offline confirmado publica note.synced con el mapeo temp->canónico
// e invalida la caché de la nota nueva. La reescritura de payloads aún
// encolados que referencien un TempID queda fuera: es el punto de extensión
// documentado del motor.
func (s *NoteService) Sync(ctx context.Context, userID string) (*syncDomain.FlushResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidNote
	}

	applier := NewRepoApplier(s.repo, userID, s.log)
	result := s.syncer.SyncQueuedNotes(ctx, userID, applier)

	for tempID, noteID := range result.MappedIDs {
		s.publishEvent(ctx, domain.NoteSynced, userID, tempID, noteID)
		if id, err := uuid.Parse(noteID); err == nil {
			sharedCache.AsyncCacheDelete(ctx, s.cache, domain.CacheKeyByID(userID, id), s.log)
		}
	}

	s.log.Info("🔁 Sincronización terminada",
		zap.String("user_id", userID),
		zap.Int("success", len(result.SuccessIDs)),
		zap.Int("failed", len(result.FailedIDs)),
		zap.Int("retried", len(result.RetriedIDs)),
		zap.Int("pending", s.outbox.Count(ctx, userID)),
	)

	return result, nil
}

func (s *NoteService) publishEvent(ctx context.Context, eventType, userID, tempID, noteID string) {
	if s.events == nil {
		return
	}
	evt := domain.NoteEvent{
		Type:       eventType,
		UserID:     userID,
		TempID:     tempID,
		NoteID:     noteID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn("⚠️ No se pudo publicar evento de nota",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
