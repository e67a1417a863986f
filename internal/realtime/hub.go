package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 32
)

// Snapshot returns the event a new stream starts with, or nil for none.
type Snapshot func(ctx context.Context) (*Event, error)

// Hub upgrades HTTP requests to websocket streams of broker events.
type Hub struct {
	broker   Broker
	upgrader websocket.Upgrader
	log      zerolog.Logger
	active   atomic.Int64
}

// NewHub returns a hub. allowedOrigins follows the CORS configuration; "*"
// or an empty list accepts any origin.
func NewHub(b Broker, allowedOrigins []string, log zerolog.Logger) *Hub {
	h := &Hub{broker: b, log: log.With().Str("component", "ws").Logger()}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	all := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			all = true
		}
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if all || origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}

// Active reports the number of open streams.
func (h *Hub) Active() int64 { return h.active.Load() }

// Serve upgrades the request and streams events of topic. The subscription
// is registered before snapshot runs, so no change between the two is
// lost. The stream ends when the client goes away or after an event for
// which until returns true.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string, snapshot Snapshot, until func(Event) bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("topic", topic).Msg("websocket upgrade failed")
		return
	}
	h.active.Add(1)
	defer h.active.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan Event, sendBuffer)
	unsub, err := h.broker.Subscribe(ctx, topic, func(ev Event) {
		select {
		case send <- ev:
		default:
			h.log.Warn().Str("topic", topic).Msg("slow websocket client, event dropped")
		}
	})
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("subscribe failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer unsub()

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, send, snapshot, until)
}

// readPump drains client frames so pongs and close frames are processed.
func (h *Hub) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, send <-chan Event, snapshot Snapshot, until func(Event) bool) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(ev Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			return false
		}
		if until != nil && until(ev) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return false
		}
		return true
	}

	if snapshot != nil {
		ev, err := snapshot(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("stream snapshot failed")
			return
		}
		if ev != nil && !write(*ev) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-send:
			if !write(ev) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
