package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/learning-platform/internal/config"
	"github.com/yourorg/learning-platform/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHub() *Hub {
	return NewHub(config.WSConfig{
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		MaxMessageSize: 512,
		SendBuffer:     4,
	}, zap.NewNop())
}

func view(title string) model.NotificationView {
	return model.NotificationView{
		ID:        uuid.New(),
		Kind:      model.KindSystemAnnouncement,
		Title:     title,
		Message:   "m",
		Priority:  model.PriorityHigh,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPushReachesEveryHandleOfRecipient(t *testing.T) {
	hub := testHub()
	recipientID := uuid.New()

	tab1 := newConn(hub, nil, recipientID)
	tab2 := newConn(hub, nil, recipientID)
	hub.register(tab1)
	hub.register(tab2)
	require.Equal(t, 2, hub.ConnectionCount(recipientID))

	hub.Push(recipientID, view("hello"))

	for _, c := range []*Conn{tab1, tab2} {
		select {
		case data := <-c.send:
			var env envelope
			require.NoError(t, json.Unmarshal(data, &env))
			assert.Equal(t, EventNewNotification, env.Event)
			assert.Equal(t, "hello", env.Data.Title)
		default:
			t.Fatal("handle did not receive the push")
		}
	}
}

func TestPushToDisconnectedRecipientIsSilent(t *testing.T) {
	hub := testHub()

	// No registered connections at all; must not panic or block.
	hub.Push(uuid.New(), view("nobody home"))
}

func TestPushDoesNotCrossRecipients(t *testing.T) {
	hub := testHub()
	alice, bob := uuid.New(), uuid.New()

	aliceConn := newConn(hub, nil, alice)
	bobConn := newConn(hub, nil, bob)
	hub.register(aliceConn)
	hub.register(bobConn)

	hub.Push(alice, view("for alice"))

	assert.Len(t, aliceConn.send, 1)
	assert.Len(t, bobConn.send, 0)
}

func TestSlowHandleDropsInsteadOfBlocking(t *testing.T) {
	hub := testHub()
	recipientID := uuid.New()

	c := newConn(hub, nil, recipientID)
	hub.register(c)

	// Fill the send buffer, then push once more.
	for i := 0; i < cap(c.send); i++ {
		require.True(t, c.trySend([]byte("x")))
	}

	done := make(chan struct{})
	go func() {
		hub.Push(recipientID, view("overflow"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a slow connection")
	}
	assert.Len(t, c.send, cap(c.send))
}

func TestCloseRemovesOnlyThatHandle(t *testing.T) {
	hub := testHub()
	recipientID := uuid.New()

	tab1 := newConn(hub, nil, recipientID)
	tab2 := newConn(hub, nil, recipientID)
	hub.register(tab1)
	hub.register(tab2)

	tab1.close()
	assert.Equal(t, 1, hub.ConnectionCount(recipientID))

	// Closing twice is safe.
	tab1.close()
	assert.Equal(t, 1, hub.ConnectionCount(recipientID))

	tab2.close()
	assert.Equal(t, 0, hub.ConnectionCount(recipientID))
}

func TestConcurrentConnectDisconnectAndPush(t *testing.T) {
	hub := testHub()
	recipients := make([]uuid.UUID, 8)
	for i := range recipients {
		recipients[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for _, id := range recipients {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c := newConn(hub, nil, id)
				hub.register(c)
				hub.Push(id, view("race"))
				c.close()
			}
		}()
	}
	wg.Wait()

	for _, id := range recipients {
		assert.Equal(t, 0, hub.ConnectionCount(id))
	}
}
