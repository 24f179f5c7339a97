package service

import (
	"context"
	"strings"
	"time"

	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifications created by a broadcast fall out of the store after this
// horizon unless the admin sets an explicit expiry.
const defaultExpiry = 30 * 24 * time.Hour

const dispatchTimeout = 30 * time.Second

type broadcastStore interface {
	InsertBroadcastEvent(ctx context.Context, event *model.BroadcastEvent) (bool, error)
	UpdateBroadcastRecipients(ctx context.Context, eventID uuid.UUID, count int) error
	InsertBatch(ctx context.Context, notifications []model.Notification) (int, error)
}

type recipientFilter interface {
	FilterActiveUserIDs(ctx context.Context, candidates []uuid.UUID) ([]uuid.UUID, error)
}

type audienceResolver interface {
	Resolve(ctx context.Context, audience string, courseID *uuid.UUID) ([]uuid.UUID, error)
}

// LivePusher delivers a best-effort real-time copy of a newly written
// notification to a recipient's live connections.
type LivePusher interface {
	Push(recipientID uuid.UUID, view model.NotificationView)
}

// EventPublisher emits the broadcast event to downstream consumers.
type EventPublisher interface {
	PublishBroadcast(ctx context.Context, event *model.BroadcastEvent) error
}

// BroadcastService is the fan-out writer: it resolves the audience,
// persists one notification per recipient in a single batch, then hands
// the batch to the live push gateway off the request path. The store is
// authoritative; push and the Kafka event are best effort.
type BroadcastService struct {
	store     broadcastStore
	filter    recipientFilter
	audience  audienceResolver
	pusher    LivePusher
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBroadcastService creates a new broadcast service. pusher and publisher
// may be nil; the corresponding dispatch step is skipped.
func NewBroadcastService(
	store broadcastStore,
	filter recipientFilter,
	audience audienceResolver,
	pusher LivePusher,
	publisher EventPublisher,
	logger *zap.Logger,
) *BroadcastService {
	return &BroadcastService{
		store:     store,
		filter:    filter,
		audience:  audience,
		pusher:    pusher,
		publisher: publisher,
		logger:    logger,
	}
}

// Send validates and executes one broadcast. The returned result always
// reflects what was durably written: a duplicate event id or an empty
// audience yields a zero-count success, never an error.
func (s *BroadcastService) Send(ctx context.Context, req *model.BroadcastRequest) (*model.BroadcastResult, error) {
	if err := validateBroadcast(req); err != nil {
		return nil, err
	}

	recipients, err := s.audience.Resolve(ctx, req.TargetAudience, req.CourseID)
	if err != nil {
		return nil, err
	}

	result := &model.BroadcastResult{
		NotificationType: req.Kind,
		TargetAudience:   req.TargetAudience,
	}

	if len(recipients) == 0 {
		s.logger.Info("broadcast resolved to empty audience",
			zap.String("kind", req.Kind),
			zap.String("audience", req.TargetAudience))
		return result, nil
	}

	valid, err := s.filter.FilterActiveUserIDs(ctx, recipients)
	if err != nil {
		return nil, err
	}
	result.Dropped = len(recipients) - len(valid)
	if result.Dropped > 0 {
		s.logger.Warn("dropped invalid broadcast recipients",
			zap.Int("dropped", result.Dropped),
			zap.Int("resolved", len(recipients)))
	}
	if len(valid) == 0 {
		return result, nil
	}

	eventID := uuid.New()
	if req.EventID != nil && *req.EventID != uuid.Nil {
		eventID = *req.EventID
	}
	result.EventID = eventID

	event := &model.BroadcastEvent{
		ID:             eventID,
		Kind:           req.Kind,
		TargetAudience: req.TargetAudience,
		CourseID:       req.CourseID,
	}

	inserted, err := s.store.InsertBroadcastEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Same logical event already processed; retrying must not
		// double-notify.
		s.logger.Info("duplicate broadcast event ignored", zap.String("eventID", eventID.String()))
		result.Duplicate = true
		result.Dropped = 0
		return result, nil
	}

	notifications := s.buildBatch(req, eventID, valid)

	created, err := s.store.InsertBatch(ctx, notifications)
	if err != nil {
		return nil, err
	}
	result.RecipientsCount = created
	event.RecipientsCount = created

	if err := s.store.UpdateBroadcastRecipients(ctx, eventID, created); err != nil {
		s.logger.Warn("failed to record broadcast recipient count", zap.Error(err), zap.String("eventID", eventID.String()))
	}

	// Live delivery is detached from the response path: the admin gets the
	// definitive persisted count without waiting on per-recipient pushes.
	go s.dispatch(notifications, event)

	s.logger.Info("broadcast persisted",
		zap.String("eventID", eventID.String()),
		zap.String("kind", req.Kind),
		zap.String("audience", req.TargetAudience),
		zap.Int("recipients", created))

	return result, nil
}

func (s *BroadcastService) buildBatch(req *model.BroadcastRequest, eventID uuid.UUID, recipients []uuid.UUID) []model.Notification {
	now := time.Now().UTC()

	priority := req.Priority
	if priority == "" {
		priority = model.DefaultPriority(req.Kind)
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil {
		t := now.Add(defaultExpiry)
		expiresAt = &t
	}

	payload := req.Payload
	if payload == nil {
		payload = model.Payload{}
	}

	notifications := make([]model.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		eid := eventID
		notifications = append(notifications, model.Notification{
			ID:          uuid.New(),
			RecipientID: recipientID,
			EventID:     &eid,
			Kind:        req.Kind,
			Title:       req.Title,
			Message:     req.Message,
			Payload:     payload,
			Priority:    priority,
			ActionURL:   req.ActionURL,
			ActionText:  req.ActionText,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
		})
	}
	return notifications
}

// dispatch pushes the batch to live connections and publishes the
// broadcast event. Failures here never reach the admin caller.
func (s *BroadcastService) dispatch(notifications []model.Notification, event *model.BroadcastEvent) {
	if s.pusher != nil {
		for i := range notifications {
			s.pusher.Push(notifications[i].RecipientID, notifications[i].View())
		}
	}

	if s.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := s.publisher.PublishBroadcast(ctx, event); err != nil {
			s.logger.Warn("failed to publish broadcast event", zap.Error(err), zap.String("eventID", event.ID.String()))
		}
	}
}

func validateBroadcast(req *model.BroadcastRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return &ValidationError{Field: "message", Reason: "required"}
	}
	if !model.IsValidKind(req.Kind) {
		return &ValidationError{Field: "type", Reason: "unknown notification type"}
	}
	if req.Priority != "" && !model.IsValidPriority(req.Priority) {
		return &ValidationError{Field: "priority", Reason: "must be low, medium, high or urgent"}
	}
	if req.TargetAudience == model.AudienceSpecific && (req.CourseID == nil || *req.CourseID == uuid.Nil) {
		return &ValidationError{Field: "course_id", Reason: "required for specific audience"}
	}
	return nil
}
