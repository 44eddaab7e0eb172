package clawhub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Message is the canonical inbound record both envelope shapes normalize
// into. Content and SenderName are mandatory; everything else is
// best-effort.
type Message struct {
	ChannelID  string
	SenderName string
	SenderID   string
	Content    string
	MessageID  string
	IsGroup    bool
	GroupName  string
}

// Envelope is the decoded wire payload of an inbound webhook call, either
// the versioned v1 shape or the legacy flat shape.
type Envelope interface {
	isEnvelope()
}

// V1Envelope is the versioned wire format: message fields nest under
// "message" and the chat type is absent, to be resolved via the channel
// info lookup.
type V1Envelope struct {
	ChannelID  string `json:"channel_id"`
	SenderName string `json:"sender_name"`
	Message    struct {
		SenderID string `json:"sender_id"`
		Content  string `json:"content"`
		ID       string `json:"id"`
	} `json:"message"`
}

// LegacyEnvelope is the older flat wire format with everything at the top
// level, including the chat type.
type LegacyEnvelope struct {
	ChannelID  string `json:"channel_id"`
	SenderName string `json:"sender_name"`
	SenderID   string `json:"sender_id"`
	Content    string `json:"content"`
	MessageID  string `json:"message_id"`
	ChatType   string `json:"chat_type"`
	GroupName  string `json:"group_name"`
}

func (V1Envelope) isEnvelope()     {}
func (LegacyEnvelope) isEnvelope() {}

// DecodeEnvelope decodes one of the two wire shapes, discriminated by the
// webhook_version tag. Only "1" selects the versioned shape; anything
// else falls back to legacy.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var probe struct {
		WebhookVersion string `json:"webhook_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	if probe.WebhookVersion == "1" {
		var env V1Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decoding v1 envelope: %w", err)
		}
		return env, nil
	}

	var env LegacyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding legacy envelope: %w", err)
	}
	return env, nil
}

// Normalize produces the canonical message. For v1 envelopes the chat
// type is resolved through fetcher; when that lookup fails the message is
// treated as a group/channel message. Misrouting a group message as a DM
// could reply to the wrong recipient, the reverse mistake only changes
// the reply surface, so ambiguity resolves toward group.
func Normalize(ctx context.Context, env Envelope, fetcher ChannelInfoFetcher) (Message, error) {
	switch e := env.(type) {
	case V1Envelope:
		msg := Message{
			ChannelID:  e.ChannelID,
			SenderName: e.SenderName,
			SenderID:   e.Message.SenderID,
			Content:    e.Message.Content,
			MessageID:  e.Message.ID,
		}
		if err := msg.validate(); err != nil {
			return Message{}, err
		}
		if e.ChannelID != "" {
			if info := fetcher.FetchChannelInfo(ctx, e.ChannelID); info != nil {
				msg.IsGroup = info.Type != "direct"
				msg.GroupName = info.Name
			} else {
				msg.IsGroup = true
			}
		}
		return msg, nil

	case LegacyEnvelope:
		msg := Message{
			ChannelID:  e.ChannelID,
			SenderName: e.SenderName,
			SenderID:   e.SenderID,
			Content:    e.Content,
			MessageID:  e.MessageID,
			IsGroup:    e.ChatType == "group" || e.ChatType == "channel",
			GroupName:  e.GroupName,
		}
		if err := msg.validate(); err != nil {
			return Message{}, err
		}
		return msg, nil

	default:
		return Message{}, fmt.Errorf("unknown envelope type %T", env)
	}
}

func (m Message) validate() error {
	if strings.TrimSpace(m.Content) == "" || strings.TrimSpace(m.SenderName) == "" {
		return ErrIncompleteMessage
	}
	return nil
}
