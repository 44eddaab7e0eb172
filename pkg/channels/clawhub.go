package channels

import (
	"context"
	"net/http"

	"github.com/tinyland-inc/clawhub-channel/pkg/bus"
	"github.com/tinyland-inc/clawhub-channel/pkg/clawhub"
	"github.com/tinyland-inc/clawhub-channel/pkg/config"
	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// ClawHubChannel is the webhook-only hub channel: inbound messages
// arrive on the registered webhook route, replies go out over the
// authenticated REST client.
type ClawHubChannel struct {
	*BaseChannel
	config config.ClawHubConfig
	client *clawhub.Client
	relay  *clawhub.Relay
}

func NewClawHubChannel(cfg config.ClawHubConfig, msgBus *bus.MessageBus) (*ClawHubChannel, error) {
	client, err := clawhub.NewClient(clawhub.ClientConfig{
		BaseURL:    cfg.BaseURL,
		AgentToken: cfg.AgentToken,
		OrgID:      cfg.OrgID,
	})
	if err != nil {
		return nil, err
	}

	return &ClawHubChannel{
		BaseChannel: NewBaseChannel("clawhub", cfg, msgBus, cfg.AllowFrom),
		config:      cfg,
		client:      client,
		relay:       clawhub.NewRelay(client),
	}, nil
}

func (c *ClawHubChannel) Start(ctx context.Context) error {
	c.SetRunning(true)
	logger.InfoCF("clawhub", "Channel started", map[string]any{
		"webhook_path": c.config.WebhookPath,
	})
	return nil
}

func (c *ClawHubChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	return nil
}

// RegisterRoutes mounts the inbound webhook on the gateway mux.
func (c *ClawHubChannel) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(c.config.WebhookPath, clawhub.NewWebhookHandler(c.config.WebhookSecret, c.client, c.handleInbound))
}

func (c *ClawHubChannel) handleInbound(msg clawhub.Message) {
	peer, chatID := inboundPeer(msg)

	var metadata map[string]string
	if msg.GroupName != "" {
		metadata = map[string]string{"group_name": msg.GroupName}
	}

	c.HandleMessage(peer, msg.MessageID, msg.SenderID, msg.SenderName, chatID, msg.Content, metadata)
}

// Send delivers one host reply. Delivery failures are absorbed by the
// relay; a Send error here would only mean misrouting, which the relay
// never produces.
func (c *ClawHubChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.relay.Deliver(ctx, replyTarget(msg), msg.Content)
	return nil
}

// inboundPeer maps a normalized hub message to the bus peer and chat id.
// Group traffic is keyed by channel, direct traffic by sender name.
func inboundPeer(msg clawhub.Message) (bus.Peer, string) {
	if msg.IsGroup && msg.ChannelID != "" {
		return bus.Peer{Kind: "channel", ID: msg.ChannelID}, msg.ChannelID
	}
	return bus.Peer{Kind: "direct", ID: msg.SenderName}, msg.SenderName
}

// replyTarget reconstructs the delivery target from an outbound bus
// message. An explicit peer kind wins; without one, the chat id shape
// decides between channel and direct delivery.
func replyTarget(msg bus.OutboundMessage) clawhub.Message {
	switch msg.Peer.Kind {
	case "channel":
		return clawhub.Message{IsGroup: true, ChannelID: msg.Peer.ID}
	case "direct":
		return clawhub.Message{SenderName: msg.Peer.ID}
	}
	if clawhub.LooksLikeChannelID(msg.ChatID) {
		return clawhub.Message{IsGroup: true, ChannelID: msg.ChatID}
	}
	return clawhub.Message{SenderName: msg.ChatID}
}
