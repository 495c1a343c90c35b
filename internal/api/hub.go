package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ghostpool/internal/domain"
	"ghostpool/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20

	// subscriberBuffer is the per-subscriber send queue. A subscriber that
	// falls this far behind is dropped rather than backpressuring the hub.
	subscriberBuffer = 64
)

var upgrader = websocket.Upgrader{
	// The API is identity-in-body, not cookie-authenticated, so cross-origin
	// reads leak nothing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans settlement events out to websocket subscribers. Publish never
// blocks on a slow subscriber.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	metrics     *observability.Metrics
	logger      *log.Logger
}

type subscriber struct {
	conn *websocket.Conn
	send chan domain.Event
}

// NewHub creates an empty hub. Metrics and logger are optional.
func NewHub(metrics *observability.Metrics, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		metrics:     metrics,
		logger:      logger,
	}
}

// Publish delivers an event to every subscriber. Safe to call from the
// engine's event sink; full subscribers are disconnected.
func (h *Hub) Publish(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.send <- ev:
		default:
			delete(h.subscribers, sub)
			close(sub.send)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan domain.Event, subscriberBuffer),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	h.gaugeSubscribers()

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// readLoop consumes control frames and detects disconnects. Inbound data
// frames are ignored; the stream is one-way.
func (h *Hub) readLoop(sub *subscriber) {
	defer func() {
		h.unsubscribe(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop pushes queued events and keepalive pings.
func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped by Publish for falling behind.
				_ = sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"))
				return
			}
			if err := sub.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	h.mu.Unlock()
	h.gaugeSubscribers()
}

func (h *Hub) gaugeSubscribers() {
	if h.metrics != nil {
		h.metrics.WSSubscribers.Set(float64(h.Subscribers()))
	}
}
