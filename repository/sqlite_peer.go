package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doruhan/vira/models"
	"github.com/doruhan/vira/pkg"
)

// sqlitePeerRepo, PeerRepository interface'inin SQLite implementasyonu.
type sqlitePeerRepo struct {
	conn *sql.DB
}

// NewSQLitePeerRepo, constructor — interface döner.
func NewSQLitePeerRepo(conn *sql.DB) PeerRepository {
	return &sqlitePeerRepo{conn: conn}
}

// Save, seçili peer'ı singleton satıra yazar.
// id=1 sabittir; ON CONFLICT ile önceki seçim güncellenir.
func (r *sqlitePeerRepo) Save(ctx context.Context, peer *models.User) error {
	query := `
		INSERT INTO selected_peer (id, user_id, username, display_name, selected_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id)
		DO UPDATE SET user_id = excluded.user_id,
		              username = excluded.username,
		              display_name = excluded.display_name,
		              selected_at = excluded.selected_at`

	_, err := r.conn.ExecContext(ctx, query, peer.ID, peer.Username, peer.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to save selected peer: %w", err)
	}
	return nil
}

// Load, persist edilmiş peer'ı döner.
func (r *sqlitePeerRepo) Load(ctx context.Context) (*models.User, error) {
	var peer models.User
	err := r.conn.QueryRowContext(ctx,
		"SELECT user_id, username, display_name FROM selected_peer WHERE id = 1",
	).Scan(&peer.ID, &peer.Username, &peer.DisplayName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no selected peer", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selected peer: %w", err)
	}

	return &peer, nil
}

// Clear, persist edilmiş seçimi siler.
func (r *sqlitePeerRepo) Clear(ctx context.Context) error {
	if _, err := r.conn.ExecContext(ctx, "DELETE FROM selected_peer WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear selected peer: %w", err)
	}
	return nil
}
