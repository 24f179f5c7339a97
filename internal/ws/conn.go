package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is one live connection handle for one authenticated recipient.
// A user with several tabs or devices holds several Conns under the same
// recipient id.
type Conn struct {
	hub         *Hub
	ws          *websocket.Conn
	recipientID uuid.UUID
	send        chan []byte

	mu     sync.Mutex
	closed bool
}

func newConn(hub *Hub, ws *websocket.Conn, recipientID uuid.UUID) *Conn {
	return &Conn{
		hub:         hub,
		ws:          ws,
		recipientID: recipientID,
		send:        make(chan []byte, hub.cfg.SendBuffer),
	}
}

// trySend queues data without blocking. Returns false when the connection
// is closed or its send buffer is full; the event is dropped for this
// handle and the client recovers it from the store on its next fetch.
func (c *Conn) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.hub.unregister(c)
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings. Runs in its own goroutine per connection.
func (c *Conn) writePump() {
	pingPeriod := c.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("live write failed", zap.Error(err), zap.String("recipientID", c.recipientID.String()))
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump discards inbound frames and detects the close. The live channel
// is one-way; clients never send application messages.
func (c *Conn) readPump() {
	defer func() {
		c.close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
