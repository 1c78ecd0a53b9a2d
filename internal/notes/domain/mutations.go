package domain

import (
	"reflect"

	syncDomain "github.com/davicafu/notelab/internal/sync/domain"
)

// Payloads de las mutaciones encolables. Unión etiquetada por
// OutboxItem.Type: cada variante lleva exactamente los campos que necesita
// y se decodifica en el applier a través del registro.

// CreateNotePayload es una creación hecha offline. TempID es el placeholder
// local que el servidor sustituirá por un id canónico.
type CreateNotePayload struct {
	TempID  string `json:"temp_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNotePayload actualiza campos de una nota existente; los punteros nil
// significan "sin cambio".
type UpdateNotePayload struct {
	NoteID  string  `json:"note_id"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// DeleteNotePayload borra una nota por id.
type DeleteNotePayload struct {
	NoteID string `json:"note_id"`
}

// NewMutationRegistry mapea cada tipo de mutación a su struct de payload,
// para que el applier decodifique al tipo correcto.
func NewMutationRegistry() map[syncDomain.MutationType]reflect.Type {
	return map[syncDomain.MutationType]reflect.Type{
		syncDomain.MutationCreate: reflect.TypeOf(CreateNotePayload{}),
		syncDomain.MutationUpdate: reflect.TypeOf(UpdateNotePayload{}),
		syncDomain.MutationDelete: reflect.TypeOf(DeleteNotePayload{}),
	}
}
