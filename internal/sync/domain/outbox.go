package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MutationType identifica la clase de mutación encolada.
type MutationType string

const (
	MutationCreate MutationType = "create"
	MutationUpdate MutationType = "update"
	MutationDelete MutationType = "delete"
)

// MaxRetries es el tope de reintentos transitorios por item. Un item que lo
// supera se reclasifica como fallo terminal y sale de la cola.
const MaxRetries = 5

// OutboxItem representa una mutación pendiente de aplicar contra el store
// remoto. El payload es una unión etiquetada por Type y se decodifica en la
// frontera (el applier), no aquí.
type OutboxItem struct {
	ID             string          `json:"id"`
	Type           MutationType    `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	TempID         string          `json:"temp_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Retries        int             `json:"retries"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ItemOptions son los campos opcionales del factory NewOutboxItem.
type ItemOptions struct {
	TempID         string
	IdempotencyKey string
}

// NewOutboxItem construye un item con id fresco. Si no se indica
// IdempotencyKey se usa el propio id: reenvíos del mismo item lógico llevan
// siempre la misma clave.
func NewOutboxItem(t MutationType, payload interface{}, opts ItemOptions) (OutboxItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxItem{}, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	id := uuid.New().String()
	key := opts.IdempotencyKey
	if key == "" {
		key = id
	}

	return OutboxItem{
		ID:             id,
		Type:           t,
		Payload:        data,
		TempID:         opts.TempID,
		IdempotencyKey: key,
		Retries:        0,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ---------- Protocolo de aplicación remota ----------

type ApplyStatus string

const (
	ApplyStatusSuccess ApplyStatus = "success"
	ApplyStatusRetry   ApplyStatus = "retry"
	ApplyStatusFail    ApplyStatus = "fail"
)

// ApplyResult es el resultado de aplicar un item contra el store remoto.
// El desenlace es un valor explícito: un error devuelto por el applier se
// trata como retry, nunca como canal principal de control.
type ApplyResult struct {
	Status       ApplyStatus
	MappedID     string // id canónico asignado por el servidor para un create offline
	ErrorMessage string
}

// RemoteApplier aplica una mutación contra el store remoto. Lo aporta el
// llamador; típicamente habla con la base de datos canónica.
type RemoteApplier interface {
	Apply(ctx context.Context, item OutboxItem) (ApplyResult, error)
}

// ---------- Resultado de un flush ----------

// FlushResult acumula el desenlace de cada item procesado en una pasada.
// Un id aparece como mucho en una de las tres listas.
type FlushResult struct {
	SuccessIDs []string          `json:"success_ids"`
	FailedIDs  []string          `json:"failed_ids"`
	RetriedIDs []string          `json:"retried_ids"`
	MappedIDs  map[string]string `json:"mapped_ids"` // tempID (o item id) -> id canónico
	Errors     map[string]string `json:"errors"`     // item id -> mensaje
}

func NewFlushResult() *FlushResult {
	return &FlushResult{
		SuccessIDs: []string{},
		FailedIDs:  []string{},
		RetriedIDs: []string{},
		MappedIDs:  map[string]string{},
		Errors:     map[string]string{},
	}
}

// Merge concatena listas y fusiona mapas de otro resultado en este.
func (r *FlushResult) Merge(other *FlushResult) {
	if other == nil {
		return
	}
	r.SuccessIDs = append(r.SuccessIDs, other.SuccessIDs...)
	r.FailedIDs = append(r.FailedIDs, other.FailedIDs...)
	r.RetriedIDs = append(r.RetriedIDs, other.RetriedIDs...)
	for k, v := range other.MappedIDs {
		r.MappedIDs[k] = v
	}
	for k, v := range other.Errors {
		r.Errors[k] = v
	}
}
