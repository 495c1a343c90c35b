package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpool/internal/domain"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	ts := httptest.NewServer(NewServer(Options{Hub: hub}).Routes())
	defer ts.Close()

	first := dialHub(t, ts)
	second := dialHub(t, ts)
	waitForSubscribers(t, hub, 2)

	sent := domain.Event{
		Kind:        domain.EventScanFinalized,
		Level:       3,
		Amount:      10_000,
		ScanID:      7,
		TimestampMs: 1_700_000_000_000,
	}
	hub.Publish(sent)

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got domain.Event
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, sent, got)
	}
}

func TestHubDropsDisconnectedSubscribers(t *testing.T) {
	hub := NewHub(nil, nil)
	ts := httptest.NewServer(NewServer(Options{Hub: hub}).Routes())
	defer ts.Close()

	conn := dialHub(t, ts)
	waitForSubscribers(t, hub, 1)

	conn.Close()
	waitForSubscribers(t, hub, 0)

	// Publishing to an empty hub is a no-op.
	hub.Publish(domain.Event{Kind: domain.EventSystemReset})
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(nil, nil)

	// A subscriber whose queue nobody drains. Once it is full, Publish
	// must drop it rather than block.
	sub := &subscriber{send: make(chan domain.Event, subscriberBuffer)}
	hub.mu.Lock()
	hub.subscribers[sub] = struct{}{}
	hub.mu.Unlock()

	for i := 0; i <= subscriberBuffer; i++ {
		hub.Publish(domain.Event{Kind: domain.EventStakeAdded, Amount: int64(i)})
	}

	assert.Equal(t, 0, hub.Subscribers())

	// The queue was closed on drop; drain proves it.
	n := 0
	for range sub.send {
		n++
	}
	assert.Equal(t, subscriberBuffer, n)
}
