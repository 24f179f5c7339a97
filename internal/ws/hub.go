package ws

import (
	"encoding/json"
	"sync"

	"github.com/yourorg/learning-platform/internal/config"
	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventNewNotification is the single event name delivered over the live
// channel. The payload matches the REST list-item shape so the widget can
// splice pushed events straight into a fetched list.
const EventNewNotification = "new_notification"

type envelope struct {
	Event string                 `json:"event"`
	Data  model.NotificationView `json:"data"`
}

// Hub is the live connection registry: recipient id to the set of that
// user's open connections, one entry per device or tab. It is never
// authoritative; a recipient with no entry simply gets nothing live and
// reconciles from the store. The registry is the only shared mutable state
// in the process and all access goes through the lock here.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[*Conn]struct{}
	cfg    config.WSConfig
	logger *zap.Logger
}

// NewHub creates a new live push hub
func NewHub(cfg config.WSConfig, logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]map[*Conn]struct{}),
		cfg:    cfg,
		logger: logger,
	}
}

// Push delivers a notification view to every live connection of the
// recipient. Fire-and-forget: slow or closed connections are skipped and
// no failure ever propagates to the caller.
func (h *Hub) Push(recipientID uuid.UUID, view model.NotificationView) {
	data, err := json.Marshal(envelope{Event: EventNewNotification, Data: view})
	if err != nil {
		h.logger.Warn("failed to encode live notification", zap.Error(err), zap.String("notificationID", view.ID.String()))
		return
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns[recipientID]))
	for c := range h.conns[recipientID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(data) {
			h.logger.Debug("dropped live notification for slow connection",
				zap.String("recipientID", recipientID.String()))
		}
	}
}

// ConnectionCount returns how many live connections a recipient holds
func (h *Hub) ConnectionCount(recipientID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[recipientID])
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	set, ok := h.conns[c.recipientID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[c.recipientID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("live connection registered", zap.String("recipientID", c.recipientID.String()))
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if set, ok := h.conns[c.recipientID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.recipientID)
		}
	}
	h.mu.Unlock()

	h.logger.Debug("live connection removed", zap.String("recipientID", c.recipientID.String()))
}
