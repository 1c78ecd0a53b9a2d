package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	"github.com/davicafu/notelab/internal/notes/domain"
	sharedUtils "github.com/davicafu/notelab/internal/shared/infra/utils"
)

// NoteRepoPostgres implementa la interfaz NoteRepository para PostgreSQL.
// Mismo contrato transaccional que la variante SQLite: mutación + clave de
// idempotencia en una sola transacción.
type NoteRepoPostgres struct {
	db *sql.DB
}

// NewNoteRepoPostgres es el constructor del repositorio.
func NewNoteRepoPostgres(db *sql.DB) *NoteRepoPostgres {
	return &NoteRepoPostgres{db: db}
}

func insertIdempotencyTx(ctx context.Context, tx *sql.Tx, userID, key string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO idempotency (user_id, key, applied_at) VALUES ($1, $2, NOW())`,
		userID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

// ------------------ CRUD + idempotencia ------------------

// Create inserta una nota y su clave en una transacción.
func (r *NoteRepoPostgres) Create(ctx context.Context, n *domain.Note, idemKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrNoteAlreadyExists
		}
		return err
	}

	if err := insertIdempotencyTx(ctx, tx, n.UserID, idemKey); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID devuelve la nota del usuario o ErrNoteNotFound.
func (r *NoteRepoPostgres) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Note, error) {
	var n domain.Note
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM notes WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Update actualiza una nota y registra la clave en una transacción.
func (r *NoteRepoPostgres) Update(ctx context.Context, n *domain.Note, idemKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE notes SET title = $1, content = $2, updated_at = $3 WHERE id = $4 AND user_id = $5`,
		n.Title, n.Content, n.UpdatedAt, n.ID, n.UserID,
	)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNoteNotFound
	}

	if err := insertIdempotencyTx(ctx, tx, n.UserID, idemKey); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteByID elimina una nota y registra la clave en una transacción.
func (r *NoteRepoPostgres) DeleteByID(ctx context.Context, userID string, id uuid.UUID, idemKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNoteNotFound
	}

	if err := insertIdempotencyTx(ctx, tx, userID, idemKey); err != nil {
		return err
	}

	return tx.Commit()
}

// List devuelve las notas del usuario, más recientes primero.
func (r *NoteRepoPostgres) List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	query := `SELECT id, user_id, title, content, created_at, updated_at
	          FROM notes WHERE user_id = $1`
	args := []interface{}{f.UserID}

	if f.Title != nil {
		args = append(args, "%"+*f.Title+"%")
		query += fmt.Sprintf(` AND title ILIKE $%d`, len(args))
	}

	query += ` ORDER BY updated_at ` + sharedUtils.Ternary(f.OldestFirst, "ASC", "DESC")

	if f.Pagination.Limit > 0 {
		args = append(args, f.Pagination.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
		args = append(args, f.Pagination.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// WasApplied indica si la clave de idempotencia ya quedó registrada.
func (r *NoteRepoPostgres) WasApplied(ctx context.Context, userID, idemKey string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM idempotency WHERE user_id = $1 AND key = $2`, userID, idemKey,
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
var _ domain.NoteRepository = (*NoteRepoPostgres)(nil)
