package channels

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tinyland-inc/clawhub-channel/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(sender string) bool
}

// RouteRegistrar is an opt-in interface for channels that serve inbound
// HTTP routes. The gateway owns the server and mux; channels mount their
// webhook paths on it.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

type BaseChannel struct {
	config    any
	bus       *bus.MessageBus
	running   atomic.Bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, config any, b *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		config:    config,
		bus:       b,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

// IsAllowed checks a sender name or id against the allow-list. An empty
// list allows everyone. Entries may carry a leading "@".
func (c *BaseChannel) IsAllowed(sender string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	for _, allowed := range c.allowList {
		if sender == allowed || sender == strings.TrimPrefix(allowed, "@") {
			return true
		}
	}
	return false
}

// HandleMessage publishes one inbound message to the host bus after the
// allow-list check. A missing hub message id gets a generated one so
// downstream correlation always has a key.
func (c *BaseChannel) HandleMessage(
	peer bus.Peer,
	messageID, senderID, senderName, chatID, content string,
	metadata map[string]string,
) {
	if !c.IsAllowed(senderName) && !c.IsAllowed(senderID) {
		return
	}

	if messageID == "" {
		messageID = uuid.New().String()
	}

	msg := bus.InboundMessage{
		Channel:    c.name,
		SenderID:   senderID,
		SenderName: senderName,
		ChatID:     chatID,
		Content:    content,
		Peer:       peer,
		MessageID:  messageID,
		SessionKey: bus.SessionKey(c.name, peer, senderName),
		Metadata:   metadata,
	}

	c.bus.PublishInbound(context.TODO(), msg)
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}
