package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doruhan/vira/pkg"
)

// sqliteSessionRepo, SessionRepository interface'inin SQLite implementasyonu.
type sqliteSessionRepo struct {
	conn *sql.DB
}

// NewSQLiteSessionRepo, constructor — interface döner.
func NewSQLiteSessionRepo(conn *sql.DB) SessionRepository {
	return &sqliteSessionRepo{conn: conn}
}

// Save, şifrelenmiş token'ı singleton satıra yazar.
func (r *sqliteSessionRepo) Save(ctx context.Context, ciphertext string) error {
	query := `
		INSERT INTO session_cache (id, ciphertext, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id)
		DO UPDATE SET ciphertext = excluded.ciphertext,
		              updated_at = excluded.updated_at`

	if _, err := r.conn.ExecContext(ctx, query, ciphertext); err != nil {
		return fmt.Errorf("failed to save session cache: %w", err)
	}
	return nil
}

// Load, şifrelenmiş token'ı döner.
func (r *sqliteSessionRepo) Load(ctx context.Context) (string, error) {
	var ciphertext string
	err := r.conn.QueryRowContext(ctx,
		"SELECT ciphertext FROM session_cache WHERE id = 1").Scan(&ciphertext)

	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no cached session", pkg.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session cache: %w", err)
	}

	return ciphertext, nil
}

// Clear, cache'i siler.
func (r *sqliteSessionRepo) Clear(ctx context.Context) error {
	if _, err := r.conn.ExecContext(ctx, "DELETE FROM session_cache WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear session cache: %w", err)
	}
	return nil
}
