package storage

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/shubham-shewale/fx-platform/pkg/models"
)

var notificationColumns = []string{"id", "user_id", "type", "title", "message", "is_read", "created_at"}

type NotificationStore struct {
	db *DB
}

// Create stores n as unread and returns the stored row.
func (s *NotificationStore) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	id, err := s.db.insert(ctx, "notifications",
		[]string{"user_id", "type", "title", "message", "is_read", "created_at"},
		[]interface{}{n.UserID, string(n.Type), n.Title, n.Message, false, s.db.now()})
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to insert notification: %w", err)
	}
	return s.findOne(ctx, squirrel.Eq{"id": id})
}

// ListByUser returns the newest notifications of the user first.
func (s *NotificationStore) ListByUser(ctx context.Context, userID int64, limit uint64) ([]models.Notification, error) {
	rows, err := s.db.query(ctx, s.db.sq.
		Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips is_read to true. Marking an already read notification is a no-op.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id int64) error {
	n, err := s.findOne(ctx, squirrel.Eq{"id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	return s.db.exec(ctx, s.db.sq.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"id": id}))
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	row, err := s.db.queryRow(ctx, s.db.sq.
		Select("COUNT(*)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "is_read": false}))
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) findOne(ctx context.Context, where squirrel.Sqlizer) (models.Notification, error) {
	row, err := s.db.queryRow(ctx, s.db.sq.Select(notificationColumns...).From("notifications").Where(where))
	if err != nil {
		return models.Notification{}, err
	}
	n, err := scanNotification(row)
	if err != nil {
		return models.Notification{}, notFound(err)
	}
	return n, nil
}

func scanNotification(r rowScanner) (models.Notification, error) {
	var (
		n     models.Notification
		ntype string
	)
	err := r.Scan(&n.ID, &n.UserID, &ntype, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	n.Type = models.NotificationType(ntype)
	return n, err
}
