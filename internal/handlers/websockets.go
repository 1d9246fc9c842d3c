package handlers

import (
	"net/http"
	"strconv"
	"time"

	"latemate_console/internal/display"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB; browsers only send control frames
	streamBuffer     = 256
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// Upgrader for HTTP -> WebSocket. The console is served to a local browser.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams display envelopes to the browser: a catch-up snapshot,
// then every update, plus a status envelope every ?interval.
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	updates, unsubscribe := h.stream.Subscribe(streamBuffer)
	defer unsubscribe()

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	for _, env := range h.stream.Snapshot() {
		if err := writeEnvelope(conn, env); err != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case <-ticker.C:
			env := display.Envelope{Type: display.TypeStatus, Data: h.services.StatusView()}
			if err := writeEnvelope(conn, env); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		case env, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEnvelope(conn, env); err != nil {
				h.log.Infow("ws_write_failed", "err", err, "type", env.Type)
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// startReader drains incoming frames to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func writeEnvelope(conn *websocket.Conn, env display.Envelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
