package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedBus "github.com/davicafu/notelab/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// Note representa una nota canónica, ya confirmada por el store remoto.
type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartitionKey particiona los eventos de notas por usuario: un consumidor ve
// en orden todas las notas de un mismo usuario.
func (n *Note) PartitionKey() string {
	return n.UserID
}

// Verificación estática para asegurar que Note implementa la interfaz
var _ sharedBus.Keyer = (*Note)(nil)

// ---------- Errores de dominio ----------
var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrNoteAlreadyExists = errors.New("note already exists")
	ErrInvalidNote       = errors.New("invalid note")
)

// ---------- Interfaces (Ports) ----------

// NoteRepository define las operaciones del store remoto canónico. Cada
// mutación lleva la clave de idempotencia del item que la originó: el repo
// la registra en la misma transacción, y una redelivery con la misma clave
// no debe duplicar efectos.
type NoteRepository interface {
	// Debe devolver ErrNoteAlreadyExists si la nota ya existe.
	Create(ctx context.Context, n *Note, idemKey string) error

	// Debe devolver ErrNoteNotFound si no existe.
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Note, error)

	// Debe devolver ErrNoteNotFound si la nota no existe.
	Update(ctx context.Context, n *Note, idemKey string) error

	// Debe devolver ErrNoteNotFound si la nota no existe.
	DeleteByID(ctx context.Context, userID string, id uuid.UUID, idemKey string) error

	// List devuelve las notas del usuario según el filtro.
	List(ctx context.Context, f NoteFilter) ([]*Note, error)

	// WasApplied indica si una clave de idempotencia ya fue registrada para
	// este usuario (la mutación ya se aplicó en una entrega anterior).
	WasApplied(ctx context.Context, userID, idemKey string) (bool, error)
}

// Connectivity es la señal de conectividad. La aporta el entorno (evento
// online del navegador, ping periódico, reintento manual); este core solo
// la consulta.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ---------- Tipos de filtrado / paginación ----------

type Pagination struct {
	Limit  int
	Offset int
}

// NoteFilter agrupa criterios de búsqueda que puede usar NoteRepository.List.
type NoteFilter struct {
	UserID string  // obligatorio: las notas nunca cruzan usuarios
	Title  *string // búsqueda por título (LIKE en el repo)

	// OldestFirst invierte el orden por defecto (última actualización primero).
	OldestFirst bool

	Pagination Pagination
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando usuario e ID.
func CacheKeyByID(userID string, id uuid.UUID) string {
	return fmt.Sprintf("note:%s:%s", userID, id.String())
}
