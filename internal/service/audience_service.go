package service

import (
	"context"

	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type directoryStore interface {
	ListAllUserIDs(ctx context.Context) ([]uuid.UUID, error)
	ListEnrolledUserIDs(ctx context.Context) ([]uuid.UUID, error)
	ListUserIDsEnrolledIn(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

// AudienceService translates an audience selector into a concrete,
// duplicate-free recipient set. It has no side effects; the caller owns
// the result.
type AudienceService struct {
	directory directoryStore
	logger    *zap.Logger
}

// NewAudienceService creates a new audience service
func NewAudienceService(directory directoryStore, logger *zap.Logger) *AudienceService {
	return &AudienceService{
		directory: directory,
		logger:    logger,
	}
}

// Resolve computes the recipient ids for a broadcast. A "specific" audience
// without a course id is a caller error; an audience resolving to zero
// recipients is not, the caller short-circuits on the empty result.
func (s *AudienceService) Resolve(ctx context.Context, audience string, courseID *uuid.UUID) ([]uuid.UUID, error) {
	var (
		ids []uuid.UUID
		err error
	)

	switch audience {
	case model.AudienceAll:
		ids, err = s.directory.ListAllUserIDs(ctx)
	case model.AudienceEnrolled:
		ids, err = s.directory.ListEnrolledUserIDs(ctx)
	case model.AudienceSpecific:
		if courseID == nil || *courseID == uuid.Nil {
			return nil, &ValidationError{Field: "course_id", Reason: "required for specific audience"}
		}
		ids, err = s.directory.ListUserIDsEnrolledIn(ctx, *courseID)
	default:
		return nil, &ValidationError{Field: "target_audience", Reason: "must be all, enrolled or specific"}
	}

	if err != nil {
		return nil, err
	}

	return dedupe(ids), nil
}

// dedupe collapses duplicate ids while preserving order. The directory
// queries are already distinct; this keeps the no-duplicates contract even
// if a future backing store is not.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
