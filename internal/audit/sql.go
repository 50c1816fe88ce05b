package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore returns a Store backed by the audit_log table.
func NewSQLStore(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Save(ctx context.Context, e Entry) error {
	const stmt = `
		INSERT INTO audit_log (id, group_id, actor_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt,
		e.ID.String(), e.GroupID, e.ActorID, e.Action, e.Details, e.CreatedAt); err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *sqlStore) ListByGroup(ctx context.Context, groupID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, group_id, actor_id, action, details, created_at
		FROM audit_log
		WHERE group_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e  Entry
			id string
		)
		if err := rows.Scan(&id, &e.GroupID, &e.ActorID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return entries, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return entries, fmt.Errorf("parsing audit entry id %q: %w", id, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}
