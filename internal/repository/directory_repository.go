package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DirectoryRepository reads the user and enrollment directories backing
// audience resolution. All queries are read-only: the notification service
// never mutates accounts or enrollments.
type DirectoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sqlx.DB, logger *zap.Logger) *DirectoryRepository {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

// ListAllUserIDs returns every active user id
func (r *DirectoryRepository) ListAllUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE is_active ORDER BY id`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		r.logger.Error("failed to list user ids", zap.Error(err))
		return nil, err
	}
	return ids, nil
}

// ListEnrolledUserIDs returns the distinct active user ids holding at
// least one enrollment, across all courses.
func (r *DirectoryRepository) ListEnrolledUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT e.user_id
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE u.is_active
		ORDER BY e.user_id`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		r.logger.Error("failed to list enrolled user ids", zap.Error(err))
		return nil, err
	}
	return ids, nil
}

// ListUserIDsEnrolledIn returns the distinct active user ids enrolled in
// one course.
func (r *DirectoryRepository) ListUserIDsEnrolledIn(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT e.user_id
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE e.course_id = $1 AND u.is_active
		ORDER BY e.user_id`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		r.logger.Error("failed to list course enrollee ids", zap.Error(err), zap.String("courseID", courseID.String()))
		return nil, err
	}
	return ids, nil
}

// FilterActiveUserIDs returns the subset of candidates that are active
// users. The fan-out writer drops (and counts) whatever this filters out
// rather than failing the whole batch.
func (r *DirectoryRepository) FilterActiveUserIDs(ctx context.Context, candidates []uuid.UUID) ([]uuid.UUID, error) {
	if len(candidates) == 0 {
		return []uuid.UUID{}, nil
	}

	raw := make([]string, len(candidates))
	for i, id := range candidates {
		raw[i] = id.String()
	}

	query := `SELECT id FROM users WHERE id = ANY($1::uuid[]) AND is_active`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(raw)); err != nil {
		r.logger.Error("failed to filter recipient ids", zap.Error(err), zap.Int("candidates", len(candidates)))
		return nil, err
	}
	return ids, nil
}
