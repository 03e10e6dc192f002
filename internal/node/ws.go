package node

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/n0ko/message-feed/internal/ledger"
)

const (
	writeWait         = 10 * time.Second
	subscriberBacklog = 16
)

// hub fans block notifications out to websocket subscribers
type hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]chan ledger.Notification
	closed   bool
	upgrader websocket.Upgrader
	metrics  *Metrics
	logger   zerolog.Logger
}

func newHub(metrics *Metrics, logger zerolog.Logger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]chan ledger.Notification),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		metrics: metrics,
		logger:  logger,
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	ch := make(chan ledger.Notification, subscriberBacklog)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = ch
	h.metrics.Subscribers.Set(float64(len(h.clients)))
	h.mu.Unlock()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("subscriber connected")

	go h.writePump(conn, ch)
	h.readPump(conn)
}

// readPump discards client frames and unregisters the connection once it
// stops reading.
func (h *hub) readPump(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writePump(conn *websocket.Conn, ch <-chan ledger.Notification) {
	for n := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(n); err != nil {
			conn.Close()
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
		h.metrics.Subscribers.Set(float64(len(h.clients)))
	}
}

// broadcast queues n for every subscriber. Slow subscribers miss
// notifications rather than stall block production.
func (h *hub) broadcast(n ledger.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, ch := range h.clients {
		select {
		case ch <- n:
		default:
			h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("subscriber lagging, dropping notification")
		}
	}
}

// close disconnects every subscriber
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn, ch := range h.clients {
		delete(h.clients, conn)
		close(ch)
	}
	h.metrics.Subscribers.Set(0)
}
