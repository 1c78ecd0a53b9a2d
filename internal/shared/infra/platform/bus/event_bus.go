package bus

import "context"

type Keyer interface {
	PartitionKey() string
}

// La semántica de topic/nombre y formato del payload la decides en los adapters.
// Los eventos de reconciliación (note.synced) se publican por aquí para que la
// capa de UI invalide sus cachés.
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}
