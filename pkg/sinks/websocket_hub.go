package sinks

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/utils/syncutils"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const (
	wsSendBuffer   = 16
	wsWriteTimeout = 5 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once atomic.Bool
}

// WebsocketHub pushes every event as JSON to all connected websocket clients.
// A client whose send buffer is full or whose write fails is disconnected.
type WebsocketHub struct {
	upgrader websocket.Upgrader
	mu       syncutils.Mutex
	clients  map[*wsClient]struct{}
	closed   bool
}

var _ = Sink(&WebsocketHub{})

func NewWebsocketHub() *WebsocketHub {
	return &WebsocketHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *WebsocketHub) Name() string { return "websocket" }

func (h *WebsocketHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Debug().Str("remote", r.RemoteAddr).Msg("stats websocket connected")
	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *WebsocketHub) OnStatsEvent(ev commtypes.StatsEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return xerrors.Errorf("encode stats event: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return common_errors.ErrSinkClosed
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client too slow, dropping")
			h.removeLocked(c)
		}
	}
	return nil
}

func (h *WebsocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	return nil
}

func (h *WebsocketHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *WebsocketHub) removeLocked(c *wsClient) {
	if c.once.Swap(true) {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *WebsocketHub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// readLoop only notices the peer going away.
func (h *WebsocketHub) readLoop(c *wsClient) {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			h.remove(c)
			return
		}
	}
}
