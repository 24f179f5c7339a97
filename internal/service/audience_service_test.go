package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) ListAllUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
func (m *mockDirectory) ListEnrolledUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
func (m *mockDirectory) ListUserIDsEnrolledIn(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func TestResolveAllAudience(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	dir.On("ListAllUserIDs", mock.Anything).Return(ids, nil)

	got, err := svc.Resolve(context.Background(), "all", nil)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
	dir.AssertExpectations(t)
}

func TestResolveEnrolledCollapsesDuplicates(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	a, b := uuid.New(), uuid.New()
	dir.On("ListEnrolledUserIDs", mock.Anything).Return([]uuid.UUID{a, b, a, b, a}, nil)

	got, err := svc.Resolve(context.Background(), "enrolled", nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, got)
}

func TestResolveSpecificCourse(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	courseID := uuid.New()
	enrollees := []uuid.UUID{uuid.New(), uuid.New()}
	dir.On("ListUserIDsEnrolledIn", mock.Anything, courseID).Return(enrollees, nil)

	got, err := svc.Resolve(context.Background(), "specific", &courseID)
	require.NoError(t, err)
	assert.Equal(t, enrollees, got)
}

func TestResolveSpecificRequiresCourse(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "specific", nil)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "course_id", ve.Field)
	dir.AssertNotCalled(t, "ListUserIDsEnrolledIn", mock.Anything, mock.Anything)
}

func TestResolveSpecificRejectsNilCourseID(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	nilID := uuid.Nil
	_, err := svc.Resolve(context.Background(), "specific", &nilID)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestResolveUnknownAudience(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "everyone", nil)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "target_audience", ve.Field)
}

func TestResolveEmptyAudienceIsNotAnError(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	dir.On("ListEnrolledUserIDs", mock.Anything).Return([]uuid.UUID{}, nil)

	got, err := svc.Resolve(context.Background(), "enrolled", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolvePropagatesDirectoryError(t *testing.T) {
	dir := &mockDirectory{}
	svc := NewAudienceService(dir, zap.NewNop())

	dir.On("ListAllUserIDs", mock.Anything).Return([]uuid.UUID{}, errors.New("db down"))

	_, err := svc.Resolve(context.Background(), "all", nil)
	assert.Error(t, err)
}
