package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts n and sets its id.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	n.ID = uuid.NewString()
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, type, title, message) VALUES (?,?,?,?,?)",
		n.ID, n.UserID, string(n.Type), n.Title, n.Message)
	return err
}

// ListForUser returns the newest notifications first, up to limit.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := "SELECT id, user_id, type, title, message, is_read, created_at FROM notifications WHERE user_id=?"
	if unreadOnly {
		q += " AND is_read=0"
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY created_at DESC LIMIT ?", userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one of the user's notifications as read.  Another
// user's notification is reported as ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	var owner string
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT user_id FROM notifications WHERE id=?", id).Scan(&owner)
	if err != nil {
		return notFound(err)
	}
	if owner != userID {
		return ErrNotFound
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx, "UPDATE notifications SET is_read=1 WHERE id=?", id)
	return err
}
