package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doruhan/vira/database"
)

// sqliteReadStateRepo, ReadStateRepository interface'inin SQLite implementasyonu.
type sqliteReadStateRepo struct {
	conn *sql.DB
}

// NewSQLiteReadStateRepo, constructor — interface döner.
func NewSQLiteReadStateRepo(conn *sql.DB) ReadStateRepository {
	return &sqliteReadStateRepo{conn: conn}
}

// MarkRead, mesaj id'lerini okunmuş set'e ekler.
//
// Tüm id'ler tek transaction içinde yazılır — yarım kalmış bir mark-read
// sonrası unread sayacı tutarsız görünmesin diye.
// INSERT OR IGNORE: aynı id ikinci kez işaretlenirse sessizce atlanır.
func (r *sqliteReadStateRepo) MarkRead(ctx context.Context, peerID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	return database.WithTx(ctx, r.conn, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR IGNORE INTO read_messages (message_id, peer_id) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare mark read statement: %w", err)
		}
		defer stmt.Close()

		for _, id := range messageIDs {
			if _, err := stmt.ExecContext(ctx, id, peerID); err != nil {
				return fmt.Errorf("failed to mark message %s read: %w", id, err)
			}
		}
		return nil
	})
}

// ReadSet, okunmuş tüm mesaj id'lerini döner.
func (r *sqliteReadStateRepo) ReadSet(ctx context.Context) (map[string]bool, error) {
	rows, err := r.conn.QueryContext(ctx, "SELECT message_id FROM read_messages")
	if err != nil {
		return nil, fmt.Errorf("failed to query read set: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan read message id: %w", err)
		}
		set[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating read set rows: %w", err)
	}

	return set, nil
}
