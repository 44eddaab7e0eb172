package bus

// Peer identifies the routing peer for a message (direct vs group/channel).
type Peer struct {
	Kind string `json:"kind"` // "direct" | "channel" | ""
	ID   string `json:"id"`
}

type InboundMessage struct {
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	ChatID     string            `json:"chat_id"`
	Content    string            `json:"content"`
	Peer       Peer              `json:"peer"`                 // routing peer
	MessageID  string            `json:"message_id,omitempty"` // hub message ID
	SessionKey string            `json:"session_key"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
	Peer    Peer   `json:"peer"`
}

// SessionKey derives the session/route key the host runtime uses to scope
// conversation state: channel:kind:id, with direct chats keyed by sender.
func SessionKey(channel string, peer Peer, senderName string) string {
	kind := peer.Kind
	if kind == "" {
		kind = "direct"
	}
	id := peer.ID
	if kind == "direct" && id == "" {
		id = senderName
	}
	return channel + ":" + kind + ":" + id
}
