package domain

import "time"

// DraftMaxBytes es el techo del borrador serializado. Un borrador que lo
// supera no se persiste (política de degradar en silencio, no un error):
// protege al backend de pegados accidentales enormes.
const DraftMaxBytes = 20 * 1024

// Draft es el único borrador sin guardar de un usuario. Sobrevive recargas
// y se limpia tras un envío exitoso.
type Draft struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
