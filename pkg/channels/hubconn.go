package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/clawhub-channel/pkg/clawhub"
	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// Conn is a live hub connection. Handlers must be registered before
// Connect so no early frame is dropped.
type Conn interface {
	clawhub.Sender
	On(event string, fn func(payload json.RawMessage))
	Connect(ctx context.Context) error
	Close() error
}

// wsFrame is the hub's websocket frame shape in both directions.
type wsFrame struct {
	Type        string          `json:"type"`
	ID          string          `json:"id,omitempty"`
	To          string          `json:"to,omitempty"`
	ChannelID   string          `json:"channel_id,omitempty"`
	Content     string          `json:"content,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// wsConn implements Conn over a gorilla websocket. Writes are
// serialized by writeMu; the read loop runs in its own goroutine and
// dispatches frames to registered handlers.
type wsConn struct {
	wsURL string
	token string

	mu       sync.Mutex
	handlers map[string]func(json.RawMessage)
	conn     *websocket.Conn

	writeMu sync.Mutex
}

func newWSConn(baseURL, token string) (*wsConn, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid hub base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path += "/api/ws"

	return &wsConn{
		wsURL:    u.String(),
		token:    token,
		handlers: make(map[string]func(json.RawMessage)),
	}, nil
}

func (c *wsConn) On(event string, fn func(payload json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

func (c *wsConn) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("hub websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("hub websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *wsConn) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.DebugCF("clawhub_sdk", "Connection read ended", map[string]any{
				"error": err.Error(),
			})
			c.dispatch("close", nil)
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.WarnCF("clawhub_sdk", "Dropping malformed frame", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		c.dispatch(frame.Type, frame.Payload)
	}
}

func (c *wsConn) dispatch(event string, payload json.RawMessage) {
	c.mu.Lock()
	fn := c.handlers[event]
	c.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

// SendDirect writes a send frame addressed to a bot/agent name. The
// generated frame id doubles as the returned message id so the return
// shape matches the REST client.
func (c *wsConn) SendDirect(_ context.Context, to, text string) (string, error) {
	id := uuid.New().String()
	return id, c.writeFrame(wsFrame{
		Type:        "send",
		ID:          id,
		To:          to,
		Content:     text,
		ContentType: "text",
	})
}

func (c *wsConn) SendToChannel(_ context.Context, channelID, text string) (string, error) {
	if !clawhub.ValidChannelID(channelID) {
		return "", fmt.Errorf("%w: %q", clawhub.ErrInvalidChannelID, channelID)
	}
	id := uuid.New().String()
	return id, c.writeFrame(wsFrame{
		Type:        "send",
		ID:          id,
		ChannelID:   channelID,
		Content:     text,
		ContentType: "text",
	})
}

func (c *wsConn) writeFrame(frame wsFrame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("hub connection not established")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
