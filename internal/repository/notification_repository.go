package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// InsertBroadcastEvent records the idempotency marker for one logical
// broadcast. Returns false when the event id was already processed.
func (r *NotificationRepository) InsertBroadcastEvent(ctx context.Context, event *model.BroadcastEvent) (bool, error) {
	query := `
		INSERT INTO broadcast_events (id, kind, target_audience, course_id, recipients_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.Kind, event.TargetAudience, event.CourseID, event.RecipientsCount)
	if err != nil {
		r.logger.Error("failed to insert broadcast event", zap.Error(err), zap.String("eventID", event.ID.String()))
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateBroadcastRecipients records how many notifications a broadcast created
func (r *NotificationRepository) UpdateBroadcastRecipients(ctx context.Context, eventID uuid.UUID, count int) error {
	query := `UPDATE broadcast_events SET recipients_count = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, eventID, count); err != nil {
		r.logger.Error("failed to update broadcast recipients count", zap.Error(err), zap.String("eventID", eventID.String()))
		return err
	}
	return nil
}

// InsertBatch persists one notification per recipient in a single multi-row
// insert. Rows that collide on (recipient_id, event_id) are skipped, so a
// retried batch never duplicates already-inserted recipients. Returns the
// number of rows actually inserted.
func (r *NotificationRepository) InsertBatch(ctx context.Context, notifications []model.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO notifications
			(id, recipient_id, event_id, kind, title, message, payload,
			 priority, action_url, action_text, created_at, expires_at)
		VALUES
			(:id, :recipient_id, :event_id, :kind, :title, :message, :payload,
			 :priority, :action_url, :action_text, :created_at, :expires_at)
		ON CONFLICT (recipient_id, event_id) WHERE event_id IS NOT NULL DO NOTHING`

	res, err := r.db.NamedExecContext(ctx, query, notifications)
	if err != nil {
		r.logger.Error("failed to bulk insert notifications", zap.Error(err), zap.Int("batch", len(notifications)))
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// List retrieves a page of a recipient's notifications, newest first.
// Every query is scoped by recipient_id, so one user can never page into
// another user's records no matter what filters are passed.
func (r *NotificationRepository) List(
	ctx context.Context,
	recipientID uuid.UUID,
	filter model.NotificationFilter,
	limit, offset int,
) ([]model.Notification, error) {
	query := `SELECT * FROM notifications WHERE recipient_id = $1`
	args := []interface{}{recipientID}

	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		query += ` AND is_read = $2`
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		if filter.IsRead != nil {
			query += ` AND kind = $3`
		} else {
			query += ` AND kind = $2`
		}
	}

	query += ` ORDER BY created_at DESC`
	args = append(args, limit, offset)
	switch len(args) {
	case 3:
		query += ` LIMIT $2 OFFSET $3`
	case 4:
		query += ` LIMIT $3 OFFSET $4`
	default:
		query += ` LIMIT $4 OFFSET $5`
	}

	notifications := []model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		r.logger.Error("failed to list notifications", zap.Error(err), zap.String("recipientID", recipientID.String()))
		return nil, err
	}

	return notifications, nil
}

// Count returns the number of a recipient's notifications matching the filter
func (r *NotificationRepository) Count(ctx context.Context, recipientID uuid.UUID, filter model.NotificationFilter) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	args := []interface{}{recipientID}

	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		query += ` AND is_read = $2`
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		if filter.IsRead != nil {
			query += ` AND kind = $3`
		} else {
			query += ` AND kind = $2`
		}
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.Error("failed to count notifications", zap.Error(err), zap.String("recipientID", recipientID.String()))
		return 0, err
	}
	return count, nil
}

// UnreadCount returns the recipient's current unread count
func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`

	var count int
	if err := r.db.GetContext(ctx, &count, query, recipientID); err != nil {
		r.logger.Error("failed to count unread notifications", zap.Error(err), zap.String("recipientID", recipientID.String()))
		return 0, err
	}
	return count, nil
}

// MarkRead sets is_read on an unread notification owned by the recipient.
// Returns the number of rows updated: 0 either because the notification was
// already read or because it does not exist for this recipient.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND recipient_id = $2 AND NOT is_read`

	res, err := r.db.ExecContext(ctx, query, notificationID, recipientID)
	if err != nil {
		r.logger.Error("failed to mark notification as read", zap.Error(err), zap.String("notificationID", notificationID.String()))
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Exists reports whether a notification exists and belongs to the recipient
func (r *NotificationRepository) Exists(ctx context.Context, recipientID, notificationID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1 AND recipient_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, notificationID, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		r.logger.Error("failed to check notification existence", zap.Error(err), zap.String("notificationID", notificationID.String()))
		return false, err
	}
	return exists, nil
}

// MarkAllRead sets is_read on every unread notification of the recipient
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND NOT is_read`

	res, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		r.logger.Error("failed to mark all notifications as read", zap.Error(err), zap.String("recipientID", recipientID.String()))
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Delete removes a notification owned by the recipient. Returns false when
// nothing was deleted.
func (r *NotificationRepository) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) (bool, error) {
	query := `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`

	res, err := r.db.ExecContext(ctx, query, notificationID, recipientID)
	if err != nil {
		r.logger.Error("failed to delete notification", zap.Error(err), zap.String("notificationID", notificationID.String()))
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteExpired removes every notification whose expiry has passed
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		r.logger.Error("failed to delete expired notifications", zap.Error(err))
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
