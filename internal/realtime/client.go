package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
)

// Wire event names.
const (
	eventRoomAssigned   = "roomAssigned"
	eventPaymentRequest = "paymentRequest"
)

const (
	writeTimeout     = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingInterval     = 25 * time.Second
	reconnectMin     = time.Second
	reconnectMax     = 30 * time.Second
	handshakeTimeout = 10 * time.Second
)

// message is the channel's frame shape in both directions.
type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenFunc returns the current bearer credential, or "" when anonymous.
type TokenFunc func() string

// Client maintains the websocket channel to the backend's payment gateway.
// It reconnects with backoff while a session exists and retains the last
// room the backend assigned. A nil Client is valid and reports the channel
// as unavailable, so the gateway runs fine with realtime disabled.
type Client struct {
	url    string
	token  TokenFunc
	logger *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	lastRoom string
}

// NewClient creates a realtime client. Returns nil when url is empty.
func NewClient(url string, token TokenFunc, logger *slog.Logger) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url:    url,
		token:  token,
		logger: logger,
	}
}

// Run connects and re-connects until ctx is done. While no session exists it
// idles instead of dialing: the backend rejects unauthenticated sockets.
func (c *Client) Run(ctx context.Context) {
	if c == nil {
		return
	}

	backoff := reconnectMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		token := c.token()
		if token == "" {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectMin):
			}
			continue
		}

		if err := c.connectAndListen(ctx, token); err != nil {
			c.logger.Warn("realtime channel down, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}
		backoff = reconnectMin
	}
}

// connectAndListen dials, then blocks reading frames until the connection
// drops or ctx is done. A clean ctx shutdown returns nil.
func (c *Client) connectAndListen(ctx context.Context, token string) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{"Authorization": []string{"Bearer " + token}}

	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	c.logger.Info("realtime channel connected")

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.pingLoop(conn, pingDone)

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handle(msg)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(msg message) {
	switch msg.Event {
	case eventRoomAssigned:
		var room string
		if err := json.Unmarshal(msg.Data, &room); err != nil {
			c.logger.Warn("undecodable room assignment")
			return
		}
		c.mu.Lock()
		c.lastRoom = room
		c.mu.Unlock()
		c.logger.Info("payment room assigned", slog.String("room", room))
	default:
		c.logger.Debug("ignoring realtime event", slog.String("event", msg.Event))
	}
}

// Room returns the last room the backend assigned, or "".
func (c *Client) Room() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRoom
}

// Connected reports whether the channel is up right now.
func (c *Client) Connected() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendPaymentRequest emits a deposit request on the channel. It fails with
// an unavailable error when the channel is down; the caller decides whether
// that blocks the deposit flow.
func (c *Client) SendPaymentRequest(currency string, howMuch int64) error {
	if c == nil {
		return apperrors.Unavailable("realtime channel disabled")
	}

	data, err := json.Marshal(map[string]any{
		"currency": currency,
		"how_much": howMuch,
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return apperrors.Unavailable("realtime channel not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(message{Event: eventPaymentRequest, Data: data}); err != nil {
		return apperrors.Unavailable("realtime send failed: " + err.Error())
	}
	return nil
}
