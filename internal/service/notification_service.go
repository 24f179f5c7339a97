package service

import (
	"context"
	"strconv"
	"time"

	"github.com/yourorg/learning-platform/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	unreadCachePrefix = "notif:unread:"
	unreadCacheTTL    = time.Minute
)

type notificationStore interface {
	List(ctx context.Context, recipientID uuid.UUID, filter model.NotificationFilter, limit, offset int) ([]model.Notification, error)
	Count(ctx context.Context, recipientID uuid.UUID, filter model.NotificationFilter) (int, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (int, error)
	Exists(ctx context.Context, recipientID, notificationID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error)
	Delete(ctx context.Context, recipientID, notificationID uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// NotificationService is the durable read/mutate surface over a
// recipient's notifications. Every operation is scoped to the calling
// recipient; ownership is structural, not filter-based.
type NotificationService struct {
	store  notificationStore
	cache  *redis.Client
	logger *zap.Logger
}

// NewNotificationService creates a new notification service. cache may be
// nil; unread counts then always hit the database.
func NewNotificationService(store notificationStore, cache *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// List returns one page of the recipient's notifications, newest first,
// with the total matching count and current unread count.
func (s *NotificationService) List(
	ctx context.Context,
	recipientID uuid.UUID,
	filter model.NotificationFilter,
	page, limit int,
) (*model.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := (page - 1) * limit

	notifications, err := s.store.List(ctx, recipientID, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx, recipientID, filter)
	if err != nil {
		return nil, err
	}

	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
		Page:          page,
		Limit:         limit,
	}, nil
}

// UnreadCount returns the recipient's unread count, served from cache when
// one is configured.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, unreadCachePrefix+recipientID.String()).Result()
		if err == nil {
			if count, convErr := strconv.Atoi(cached); convErr == nil {
				return count, nil
			}
		} else if err != redis.Nil {
			s.logger.Debug("unread cache read failed", zap.Error(err))
		}
	}

	count, err := s.store.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, unreadCachePrefix+recipientID.String(), count, unreadCacheTTL).Err(); err != nil {
			s.logger.Debug("unread cache write failed", zap.Error(err))
		}
	}

	return count, nil
}

// MarkRead marks one notification read. Already-read notifications are an
// idempotent no-op; a missing or foreign notification is
// ErrNotificationNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (*model.NotificationMarkResponse, error) {
	updated, err := s.store.MarkRead(ctx, recipientID, notificationID)
	if err != nil {
		return nil, err
	}

	if updated == 0 {
		exists, err := s.store.Exists(ctx, recipientID, notificationID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotificationNotFound
		}
		// Already read: nothing changed, nothing to invalidate.
		return &model.NotificationMarkResponse{Success: true, MarkedCount: 0}, nil
	}

	s.invalidateUnread(ctx, recipientID)
	return &model.NotificationMarkResponse{Success: true, MarkedCount: updated}, nil
}

// MarkAllRead marks every unread notification of the recipient read.
// Calling it with nothing unread succeeds with a zero count.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (*model.NotificationMarkResponse, error) {
	marked, err := s.store.MarkAllRead(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	if marked > 0 {
		s.invalidateUnread(ctx, recipientID)
	}
	return &model.NotificationMarkResponse{Success: true, MarkedCount: marked}, nil
}

// Delete removes one notification owned by the recipient
func (s *NotificationService) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, recipientID, notificationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotificationNotFound
	}

	s.invalidateUnread(ctx, recipientID)
	return nil
}

// StartExpirySweep runs the periodic expiry sweep until ctx is cancelled.
// The sweep is best effort: a notification may outlive its expiry by up to
// one interval.
func (s *NotificationService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweep started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweep stopped")
			return
		case <-ticker.C:
			removed, err := s.store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("expired notifications removed", zap.Int("count", removed))
			}
		}
	}
}

func (s *NotificationService) invalidateUnread(ctx context.Context, recipientID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCachePrefix+recipientID.String()).Err(); err != nil {
		s.logger.Debug("unread cache invalidation failed", zap.Error(err))
	}
}
