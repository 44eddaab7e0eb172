package clawhub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// ReplyChunk is one piece of host-produced reply text. The host boundary
// coerces whatever the dispatcher hands over into this shape so relay
// logic never probes payload types.
type ReplyChunk struct {
	Text string
}

// TextCarrier and BodyCarrier cover host reply payloads that expose their
// text behind an accessor instead of being plain strings.
type TextCarrier interface {
	ReplyText() string
}

type BodyCarrier interface {
	ReplyBody() string
}

// CoerceReply adapts an arbitrary dispatcher payload into a ReplyChunk.
func CoerceReply(v any) ReplyChunk {
	switch p := v.(type) {
	case nil:
		return ReplyChunk{}
	case string:
		return ReplyChunk{Text: p}
	case ReplyChunk:
		return p
	case TextCarrier:
		return ReplyChunk{Text: p.ReplyText()}
	case BodyCarrier:
		return ReplyChunk{Text: p.ReplyBody()}
	default:
		return ReplyChunk{Text: fmt.Sprint(v)}
	}
}

// Relay delivers host replies back to the hub. Delivery failures are
// logged and absorbed; the host's dispatch loop may be mid-sequence with
// more chunks to deliver and must not be aborted by one failed send.
type Relay struct {
	mu     sync.RWMutex
	sender Sender
}

func NewRelay(sender Sender) *Relay {
	return &Relay{sender: sender}
}

// SetSender swaps the transport (HTTP vs live connection). The SDK
// channel calls this on connect and disconnect; a disconnect fires from
// the connection's read loop, concurrently with in-flight deliveries.
func (r *Relay) SetSender(sender Sender) {
	r.mu.Lock()
	r.sender = sender
	r.mu.Unlock()
}

// Deliver sends one reply for the given inbound message. Blank replies
// are dropped without a network call. Group messages go back to the
// originating channel; everything else goes as a DM to the sender.
func (r *Relay) Deliver(ctx context.Context, in Message, reply any) {
	text := strings.TrimSpace(CoerceReply(reply).Text)
	if text == "" {
		return
	}

	r.mu.RLock()
	sender := r.sender
	r.mu.RUnlock()

	var err error
	if in.IsGroup && in.ChannelID != "" {
		_, err = sender.SendToChannel(ctx, in.ChannelID, text)
	} else {
		_, err = sender.SendDirect(ctx, in.SenderName, text)
	}
	if err != nil {
		logger.ErrorCF("clawhub", "Reply delivery failed", map[string]any{
			"kind":       ErrorKind(err),
			"is_group":   in.IsGroup,
			"channel_id": in.ChannelID,
			"error":      err.Error(),
		})
	}
}
