package domain

import (
	"time"

	sharedBus "github.com/davicafu/notelab/internal/shared/infra/platform/bus"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	NoteCreated = "note.created"
	NoteUpdated = "note.updated"
	NoteDeleted = "note.deleted"
	NoteSynced  = "note.synced"
)

const NoteTopic = "notes"

// NoteEvent anuncia un cambio confirmado en el store remoto. Para Type
// note.synced, TempID va vacío salvo en creates offline; la UI lo usa para
// sustituir el placeholder por el id canónico e invalidar cachés.
type NoteEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	TempID     string    `json:"temp_id,omitempty"`
	NoteID     string    `json:"note_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e NoteEvent) PartitionKey() string {
	return e.UserID
}

var _ sharedBus.Keyer = NoteEvent{}
