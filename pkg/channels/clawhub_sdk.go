package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/tinyland-inc/clawhub-channel/pkg/bus"
	"github.com/tinyland-inc/clawhub-channel/pkg/clawhub"
	"github.com/tinyland-inc/clawhub-channel/pkg/config"
	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// Connection status values for the SDK channel.
const (
	StatusStopped         = "stopped"
	StatusConnecting      = "connecting"
	StatusConnected       = "connected"
	StatusFallbackWebhook = "fallback_webhook"
	StatusDisconnected    = "disconnected"
	StatusFailed          = "failed"
)

// ClawHubSDKChannel is the SDK-capable hub channel. In sdk or auto mode
// it holds a live hub connection for inbound events and outbound sends;
// the webhook route stays mounted in every mode so the hub can always
// fall back to HTTP delivery.
type ClawHubSDKChannel struct {
	*BaseChannel
	config config.ClawHubSDKConfig
	client *clawhub.Client
	relay  *clawhub.Relay

	// newConn is swapped in tests to inject a fake connection.
	newConn func() (Conn, error)

	mu     sync.Mutex
	conn   Conn
	status string
}

func NewClawHubSDKChannel(cfg config.ClawHubSDKConfig, msgBus *bus.MessageBus) (*ClawHubSDKChannel, error) {
	client, err := clawhub.NewClient(clawhub.ClientConfig{
		BaseURL:    cfg.BaseURL,
		AgentToken: cfg.AgentToken,
		OrgID:      cfg.OrgID,
	})
	if err != nil {
		return nil, err
	}

	c := &ClawHubSDKChannel{
		BaseChannel: NewBaseChannel("clawhub_sdk", cfg, msgBus, cfg.AllowFrom),
		config:      cfg,
		client:      client,
		relay:       clawhub.NewRelay(client),
		status:      StatusStopped,
	}
	c.newConn = func() (Conn, error) {
		return newWSConn(cfg.BaseURL, cfg.AgentToken)
	}
	return c, nil
}

// Start connects according to the configured mode. In "webhook" mode no
// connection is attempted. In "auto" mode (the default) a failed dial
// logs and degrades to webhook-only. In "sdk" mode a failed dial fails
// the start.
func (c *ClawHubSDKChannel) Start(ctx context.Context) error {
	mode := c.config.Mode
	if mode == "" {
		mode = "auto"
	}

	if mode == "webhook" {
		c.setStatus(StatusFallbackWebhook)
		c.SetRunning(true)
		logger.InfoC("clawhub_sdk", "Channel started in webhook mode")
		return nil
	}

	c.setStatus(StatusConnecting)
	if err := c.connect(ctx); err != nil {
		if mode == "sdk" {
			c.setStatus(StatusFailed)
			return err
		}
		logger.WarnCF("clawhub_sdk", "Hub connection failed, falling back to webhook", map[string]any{
			"error": err.Error(),
		})
		c.setStatus(StatusFallbackWebhook)
	}

	c.SetRunning(true)
	return nil
}

func (c *ClawHubSDKChannel) connect(ctx context.Context) error {
	conn, err := c.newConn()
	if err != nil {
		return err
	}

	// Handlers go on before the dial so no early frame is lost.
	c.attachHandlers(conn)

	if err := conn.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.relay.SetSender(conn)
	c.setStatus(StatusConnected)
	logger.InfoC("clawhub_sdk", "Hub connection established, agent online")
	return nil
}

func (c *ClawHubSDKChannel) attachHandlers(conn Conn) {
	conn.On("message", func(payload json.RawMessage) {
		env, err := clawhub.DecodeEnvelope(payload)
		if err != nil {
			logger.WarnCF("clawhub_sdk", "Dropping undecodable message event", map[string]any{
				"error": err.Error(),
			})
			return
		}
		msg, err := clawhub.Normalize(context.Background(), env, c.client)
		if err != nil {
			logger.WarnCF("clawhub_sdk", "Dropping incomplete message event", map[string]any{
				"error": err.Error(),
			})
			return
		}
		c.handleInbound(msg)
	})

	conn.On("thread_message", func(payload json.RawMessage) {
		logger.DebugCF("clawhub_sdk", "Ignoring thread message event", map[string]any{
			"bytes": len(payload),
		})
	})

	conn.On("bot_online", func(json.RawMessage) {
		logger.DebugC("clawhub_sdk", "Peer bot online")
	})

	conn.On("bot_offline", func(json.RawMessage) {
		logger.DebugC("clawhub_sdk", "Peer bot offline")
	})

	conn.On("error", func(payload json.RawMessage) {
		logger.WarnCF("clawhub_sdk", "Hub reported an error", map[string]any{
			"payload": string(payload),
		})
	})

	conn.On("close", func(json.RawMessage) {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.relay.SetSender(c.client)
		c.setStatus(StatusDisconnected)
		logger.WarnC("clawhub_sdk", "Hub connection lost, replies revert to HTTP")
	})
}

func (c *ClawHubSDKChannel) handleInbound(msg clawhub.Message) {
	peer, chatID := inboundPeer(msg)

	var metadata map[string]string
	if msg.GroupName != "" {
		metadata = map[string]string{"group_name": msg.GroupName}
	}

	c.HandleMessage(peer, msg.MessageID, msg.SenderID, msg.SenderName, chatID, msg.Content, metadata)
}

func (c *ClawHubSDKChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.DebugCF("clawhub_sdk", "Connection close failed", map[string]any{
				"error": err.Error(),
			})
		}
	}
	c.relay.SetSender(c.client)
	c.setStatus(StatusStopped)
	c.SetRunning(false)
	return nil
}

// RegisterRoutes mounts the webhook route. It stays registered in every
// mode; the hub decides per message whether to deliver over the socket
// or HTTP.
func (c *ClawHubSDKChannel) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(c.config.WebhookPath, clawhub.NewWebhookHandler(c.config.WebhookSecret, c.client, c.handleInbound))
}

func (c *ClawHubSDKChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.relay.Deliver(ctx, replyTarget(msg), msg.Content)
	return nil
}

func (c *ClawHubSDKChannel) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *ClawHubSDKChannel) setStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
