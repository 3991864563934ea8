package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/sse"
)

const notificationColumns = `id, created_at, recipient_id, kind, title, body, payload, dedupe_key`

func scanNotification(scanner interface{ Scan(dest ...any) error }) (*domain.Notification, error) {
	var (
		n         domain.Notification
		createdAt string
		kind      string
		payload   sql.NullString
		dedupeKey sql.NullString
	)
	if err := scanner.Scan(&n.ID, &createdAt, &n.RecipientID, &kind, &n.Title, &n.Body, &payload, &dedupeKey); err != nil {
		return nil, err
	}

	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	n.Kind = domain.NotificationKind(kind)
	n.DedupeKey = dedupeKey.String

	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &n.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal notification payload: %w", err)
		}
	}
	return &n, nil
}

// CreateNotification inserts a notification unless one with the same dedupe key exists.
// It reports whether a row was written; only new rows emit a change event.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	var payload sql.NullString
	if len(n.Payload) > 0 {
		data, err := json.Marshal(n.Payload)
		if err != nil {
			return false, fmt.Errorf("marshal notification payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, created_at, recipient_id, kind, title, body, payload, dedupe_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		formatTime(n.CreatedAt),
		n.RecipientID,
		string(n.Kind),
		n.Title,
		n.Body,
		payload,
		nullString(n.DedupeKey),
	)
	if err != nil {
		return false, mapWriteError(err)
	}
	written, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if written == 0 {
		return false, nil
	}

	s.emit(sse.NewNotificationCreatedEvent(n))
	return true, nil
}

// ListNotifications returns a recipient's notifications, newest first.
// A non-positive limit returns all of them.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ? ORDER BY id DESC`
	args := []any{recipientID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
