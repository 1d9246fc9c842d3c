package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 5 * time.Second
	maxMsgSize       = 4 << 20 // 4 MB; a 5s scenario yields ~10k samples
)

// ErrClosed is returned by Send while the channel is not open.
var ErrClosed = errors.New("device channel is closed")

// Client is the console end of the device websocket. It never reconnects on
// its own and never retries a send.
type Client struct {
	url    string
	dialer *websocket.Dialer
	log    *logger.Logger

	mu   sync.RWMutex
	conn *websocket.Conn

	writeMu sync.Mutex

	listenersMu    sync.RWMutex
	msgListeners   []func(models.Inbound)
	openListeners  []func()
	closeListeners []func(error)
}

func NewClient(url string, log *logger.Logger) *Client {
	return &Client{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		log:    logger.OrNop(log),
	}
}

// Subscribe registers a listener for every decoded inbound message.
// Listeners run on the reader goroutine, in arrival order.
func (c *Client) Subscribe(fn func(models.Inbound)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.msgListeners = append(c.msgListeners, fn)
}

// SubscribeToOpen registers a listener called each time the channel opens.
func (c *Client) SubscribeToOpen(fn func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.openListeners = append(c.openListeners, fn)
}

// SubscribeToClose registers a listener called when the channel closes.
func (c *Client) SubscribeToClose(fn func(error)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.closeListeners = append(c.closeListeners, fn)
}

func (c *Client) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Run dials the device and reads until the connection drops or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	conn.SetReadLimit(maxMsgSize)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Infow("ws_device_connected", "url", c.url)
	c.notifyOpen()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	err = c.readLoop(conn)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()

	if ctx.Err() != nil {
		err = nil
	}
	c.log.Infow("ws_device_closed", "err", err)
	c.notifyClose(err)
	return err
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if kind != websocket.TextMessage {
			c.log.Warnw("ws_unexpected_frame", "kind", kind, "len", len(data))
			continue
		}
		msg, err := models.DecodeInbound(data)
		if err != nil {
			c.log.Warnw("ws_decode_failed", "err", err)
			continue
		}
		c.notifyMessage(msg)
	}
}

// Send writes one JSON message. It fails with ErrClosed when the channel is not open.
func (c *Client) Send(ctx context.Context, msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		c.log.Errorw("ws_send_dropped", "err", ErrClosed)
		return ErrClosed
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(msg); err != nil {
		c.log.Errorw("ws_write_failed", "err", err)
		return fmt.Errorf("write message: %w", err)
	}
	c.log.Debugw("ws_sent", "msg", msg)
	return nil
}

func (c *Client) notifyMessage(msg models.Inbound) {
	c.listenersMu.RLock()
	listeners := append([]func(models.Inbound){}, c.msgListeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}
}

func (c *Client) notifyOpen() {
	c.listenersMu.RLock()
	listeners := append([]func(){}, c.openListeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

func (c *Client) notifyClose(err error) {
	c.listenersMu.RLock()
	listeners := append([]func(error){}, c.closeListeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(err)
	}
}
