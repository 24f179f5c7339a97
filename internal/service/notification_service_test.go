package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) List(ctx context.Context, recipientID uuid.UUID, filter model.NotificationFilter, limit, offset int) ([]model.Notification, error) {
	args := m.Called(ctx, recipientID, filter, limit, offset)
	return args.Get(0).([]model.Notification), args.Error(1)
}
func (m *mockNotificationStore) Count(ctx context.Context, recipientID uuid.UUID, filter model.NotificationFilter) (int, error) {
	args := m.Called(ctx, recipientID, filter)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationStore) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationStore) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (int, error) {
	args := m.Called(ctx, recipientID, notificationID)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationStore) Exists(ctx context.Context, recipientID, notificationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, recipientID, notificationID)
	return args.Bool(0), args.Error(1)
}
func (m *mockNotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationStore) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, recipientID, notificationID)
	return args.Bool(0), args.Error(1)
}
func (m *mockNotificationStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func TestListClampsPagination(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID := uuid.New()

	store.On("List", mock.Anything, recipientID, model.NotificationFilter{}, defaultPageLimit, 0).
		Return([]model.Notification{}, nil)
	store.On("Count", mock.Anything, recipientID, model.NotificationFilter{}).Return(0, nil)
	store.On("UnreadCount", mock.Anything, recipientID).Return(0, nil)

	resp, err := svc.List(context.Background(), recipientID, model.NotificationFilter{}, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, defaultPageLimit, resp.Limit)
	store.AssertExpectations(t)
}

func TestListPassesFilterThrough(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID := uuid.New()

	isRead := false
	filter := model.NotificationFilter{IsRead: &isRead, Kind: model.KindPaymentSuccess}
	notifications := []model.Notification{{ID: uuid.New(), RecipientID: recipientID}}

	store.On("List", mock.Anything, recipientID, filter, 10, 10).Return(notifications, nil)
	store.On("Count", mock.Anything, recipientID, filter).Return(11, nil)
	store.On("UnreadCount", mock.Anything, recipientID).Return(4, nil)

	resp, err := svc.List(context.Background(), recipientID, filter, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, notifications, resp.Notifications)
	assert.Equal(t, 11, resp.Total)
	assert.Equal(t, 4, resp.Unread)
}

func TestMarkReadTransitions(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID, notificationID := uuid.New(), uuid.New()

	store.On("MarkRead", mock.Anything, recipientID, notificationID).Return(1, nil)

	resp, err := svc.MarkRead(context.Background(), recipientID, notificationID)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.MarkedCount)
}

func TestMarkReadAlreadyReadIsIdempotent(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID, notificationID := uuid.New(), uuid.New()

	store.On("MarkRead", mock.Anything, recipientID, notificationID).Return(0, nil)
	store.On("Exists", mock.Anything, recipientID, notificationID).Return(true, nil)

	resp, err := svc.MarkRead(context.Background(), recipientID, notificationID)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.MarkedCount)
}

// A missing notification and one owned by someone else produce the same
// error, so callers cannot tell the difference.
func TestMarkReadCollapsesMissingAndForeign(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID, notificationID := uuid.New(), uuid.New()

	store.On("MarkRead", mock.Anything, recipientID, notificationID).Return(0, nil)
	store.On("Exists", mock.Anything, recipientID, notificationID).Return(false, nil)

	_, err := svc.MarkRead(context.Background(), recipientID, notificationID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMarkAllReadTwiceNeverErrors(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID := uuid.New()

	store.On("MarkAllRead", mock.Anything, recipientID).Return(5, nil).Once()
	store.On("MarkAllRead", mock.Anything, recipientID).Return(0, nil).Once()

	first, err := svc.MarkAllRead(context.Background(), recipientID)
	require.NoError(t, err)
	assert.Equal(t, 5, first.MarkedCount)

	second, err := svc.MarkAllRead(context.Background(), recipientID)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.MarkedCount)
}

func TestDeleteCollapsesMissingAndForeign(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID, notificationID := uuid.New(), uuid.New()

	store.On("Delete", mock.Anything, recipientID, notificationID).Return(false, nil)

	err := svc.Delete(context.Background(), recipientID, notificationID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestDeleteRemovesOwnNotification(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID, notificationID := uuid.New(), uuid.New()

	store.On("Delete", mock.Anything, recipientID, notificationID).Return(true, nil)

	assert.NoError(t, svc.Delete(context.Background(), recipientID, notificationID))
}

func TestUnreadCountWithoutCacheHitsStore(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, nil, zap.NewNop())
	recipientID := uuid.New()

	store.On("UnreadCount", mock.Anything, recipientID).Return(7, nil)

	count, err := svc.UnreadCount(context.Background(), recipientID)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
