package domain

import "context"

// ---------- Interfaces (Ports) ----------

// OutboxStore define la cola durable de mutaciones pendientes, por usuario y
// en orden FIFO. Ninguna operación devuelve error: si el backend de
// persistencia no está disponible, las implementaciones degradan a no-op
// (o lista vacía) para que la feature falle en blando.
type OutboxStore interface {
	// Load devuelve la cola en orden de encolado; [] si no hay nada o si el
	// contenido persistido no parsea.
	Load(ctx context.Context, userID string) []OutboxItem

	// Save sobrescribe atómicamente la cola completa del usuario.
	Save(ctx context.Context, userID string, items []OutboxItem)

	// Enqueue añade al final, preservando FIFO.
	Enqueue(ctx context.Context, userID string, item OutboxItem)

	// Remove elimina un item por id.
	Remove(ctx context.Context, userID, itemID string)

	// Update reemplaza un item in situ (por id); no-op si no existe.
	Update(ctx context.Context, userID string, item OutboxItem)

	// Count devuelve el tamaño de la cola (para el badge de pendientes).
	Count(ctx context.Context, userID string) int

	// Clear vacía la cola del usuario.
	Clear(ctx context.Context, userID string)
}

// DraftStore persiste el borrador en curso de cada usuario. Mismas
// garantías blandas que OutboxStore: userID vacío y backend caído son no-op.
type DraftStore interface {
	Save(ctx context.Context, userID, content string)

	// Load devuelve nil si no hay borrador, si está malformado o si el
	// backend no responde.
	Load(ctx context.Context, userID string) *Draft

	Clear(ctx context.Context, userID string)
}
