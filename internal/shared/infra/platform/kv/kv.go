package kv

import (
	"context"
)

// Store define la interfaz para un almacén clave-valor de strings.
// Es el análogo del storage por navegador del cliente: las colas y los
// borradores se guardan serializados bajo una clave por usuario.
type Store interface {
	// GetItem devuelve el valor asociado a la key.
	// Devuelve (valor, true, nil) si la key existe.
	// Devuelve ("", false, nil) si no existe.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem guarda el valor bajo la key, sobrescribiendo el anterior.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem elimina la key; no es un error si no existe.
	RemoveItem(ctx context.Context, key string) error
}
