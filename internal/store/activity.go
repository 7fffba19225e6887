package store

import (
	"context"
	"database/sql"
	"time"

	"exportal/internal/models"
)

// AppendActivity records one audit entry.
func (s *Store) AppendActivity(ctx context.Context, entry models.ActivityEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (actor, action, entity_type, entity_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.Actor,
		entry.Action,
		entry.EntityType,
		nullIfEmpty(entry.EntityID),
		nullIfEmpty(entry.Detail),
		formatTime(createdAt),
	)
	return err
}

// ListActivity returns audit entries newest first.
func (s *Store) ListActivity(ctx context.Context, limit, offset int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity_type, entity_id, detail, created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.ActivityEntry{}
	for rows.Next() {
		var entry models.ActivityEntry
		var entityID, detail sql.NullString
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.EntityType, &entityID, &detail, &createdAt); err != nil {
			return nil, err
		}
		entry.EntityID = entityID.String
		entry.Detail = detail.String
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
