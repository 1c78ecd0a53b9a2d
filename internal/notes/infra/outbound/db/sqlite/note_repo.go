package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	"github.com/davicafu/notelab/internal/notes/domain"
	sharedUtils "github.com/davicafu/notelab/internal/shared/infra/utils"
)

// NoteRepoSQLite implementa domain.NoteRepository para SQLite. Cada mutación
// registra su clave de idempotencia en la misma transacción: una redelivery
// con la misma clave se detecta vía WasApplied y no vuelve a aplicar nada.
type NoteRepoSQLite struct {
	db *sql.DB
}

func NewNoteRepoSQLite(db *sql.DB) *NoteRepoSQLite {
	return &NoteRepoSQLite{db: db}
}

// InitSQLite crea las tablas notes e idempotency si no existen.
func InitSQLite(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id)`,
		`CREATE TABLE IF NOT EXISTS idempotency (
			user_id    TEXT NOT NULL,
			key        TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize notes schema: %w", err)
		}
	}
	return nil
}

// ------------------ Helper DRY para registrar idempotencia ------------------

func insertIdempotencyTx(ctx context.Context, tx *sql.Tx, userID, key string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO idempotency (user_id, key, applied_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		userID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

// ------------------ Métodos ------------------

// Create inserta nota y clave de idempotencia en transacción
func (r *NoteRepoSQLite) Create(ctx context.Context, n *domain.Note, idemKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		n.ID.String(), n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			err = domain.ErrNoteAlreadyExists
		}
		return err
	}

	if err = insertIdempotencyTx(ctx, tx, n.UserID, idemKey); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID devuelve la nota del usuario o ErrNoteNotFound.
func (r *NoteRepoSQLite) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Note, error) {
	var n domain.Note
	var idStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM notes WHERE id = ? AND user_id = ?`,
		id.String(), userID,
	).Scan(&idStr, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in notes row: %w", err)
	}
	n.ID = parsed
	return &n, nil
}

// Update actualiza la nota y registra la clave en transacción
func (r *NoteRepoSQLite) Update(ctx context.Context, n *domain.Note, idemKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		n.Title, n.Content, n.UpdatedAt, n.ID.String(), n.UserID,
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = domain.ErrNoteNotFound
		return err
	}

	if err = insertIdempotencyTx(ctx, tx, n.UserID, idemKey); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteByID elimina la nota y registra la clave en transacción
func (r *NoteRepoSQLite) DeleteByID(ctx context.Context, userID string, id uuid.UUID, idemKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = domain.ErrNoteNotFound
		return err
	}

	if err = insertIdempotencyTx(ctx, tx, userID, idemKey); err != nil {
		return err
	}

	return tx.Commit()
}

// List devuelve las notas del usuario, más recientes primero.
func (r *NoteRepoSQLite) List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	query := `SELECT id, user_id, title, content, created_at, updated_at
	          FROM notes WHERE user_id = ?`
	args := []interface{}{f.UserID}

	if f.Title != nil {
		query += ` AND title LIKE ?`
		args = append(args, "%"+*f.Title+"%")
	}

	query += ` ORDER BY updated_at ` + sharedUtils.Ternary(f.OldestFirst, "ASC", "DESC")

	if f.Pagination.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Pagination.Limit, f.Pagination.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		var n domain.Note
		var idStr string
		if err := rows.Scan(&idStr, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in notes row: %w", err)
		}
		n.ID = parsed
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// WasApplied indica si la clave de idempotencia ya quedó registrada.
func (r *NoteRepoSQLite) WasApplied(ctx context.Context, userID, idemKey string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM idempotency WHERE user_id = ? AND key = ?`, userID, idemKey,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verificación en tiempo de compilación.
var _ domain.NoteRepository = (*NoteRepoSQLite)(nil)
