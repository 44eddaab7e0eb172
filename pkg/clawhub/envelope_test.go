package clawhub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	info  *ChannelInfo
	calls int
}

func (f *fakeFetcher) FetchChannelInfo(_ context.Context, _ string) *ChannelInfo {
	f.calls++
	return f.info
}

func TestDecodeEnvelope_Discrimination(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"webhook_version":"1","channel_id":"c1","sender_name":"bob","message":{"content":"hi","id":"m1"}}`))
	require.NoError(t, err)
	v1, ok := env.(V1Envelope)
	require.True(t, ok, "expected V1Envelope, got %T", env)
	assert.Equal(t, "c1", v1.ChannelID)
	assert.Equal(t, "hi", v1.Message.Content)

	env, err = DecodeEnvelope([]byte(`{"channel_id":"c1","sender_name":"bob","content":"hi"}`))
	require.NoError(t, err)
	_, ok = env.(LegacyEnvelope)
	assert.True(t, ok, "expected LegacyEnvelope, got %T", env)

	// Unknown version tags fall back to legacy rather than failing.
	env, err = DecodeEnvelope([]byte(`{"webhook_version":"2","sender_name":"bob","content":"hi"}`))
	require.NoError(t, err)
	_, ok = env.(LegacyEnvelope)
	assert.True(t, ok)
}

func TestDecodeEnvelope_MalformedJSON(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{not json`))
	assert.Error(t, err)
}

func TestNormalize_LegacyMapsWithoutLookup(t *testing.T) {
	f := &fakeFetcher{}
	env := LegacyEnvelope{
		ChannelID:  "c9",
		SenderName: "alice",
		SenderID:   "u1",
		Content:    "status?",
		MessageID:  "m9",
		ChatType:   "group",
		GroupName:  "ops",
	}

	msg, err := Normalize(context.Background(), env, f)
	require.NoError(t, err)

	assert.Equal(t, Message{
		ChannelID:  "c9",
		SenderName: "alice",
		SenderID:   "u1",
		Content:    "status?",
		MessageID:  "m9",
		IsGroup:    true,
		GroupName:  "ops",
	}, msg)
	assert.Zero(t, f.calls, "legacy envelopes must not trigger a lookup")
}

func TestNormalize_LegacyDirect(t *testing.T) {
	msg, err := Normalize(context.Background(), LegacyEnvelope{
		SenderName: "alice",
		Content:    "hi",
		ChatType:   "direct",
	}, &fakeFetcher{})
	require.NoError(t, err)
	assert.False(t, msg.IsGroup)
}

func TestNormalize_V1ResolvesViaLookup(t *testing.T) {
	f := &fakeFetcher{info: &ChannelInfo{Type: "channel", Name: "dev"}}
	env := V1Envelope{ChannelID: "c1", SenderName: "bob"}
	env.Message.Content = "hi"
	env.Message.ID = "m1"

	msg, err := Normalize(context.Background(), env, f)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.True(t, msg.IsGroup)
	assert.Equal(t, "dev", msg.GroupName)
}

func TestNormalize_V1DirectChannel(t *testing.T) {
	f := &fakeFetcher{info: &ChannelInfo{Type: "direct"}}
	env := V1Envelope{ChannelID: "c1", SenderName: "bob"}
	env.Message.Content = "hi"

	msg, err := Normalize(context.Background(), env, f)
	require.NoError(t, err)
	assert.False(t, msg.IsGroup)
}

func TestNormalize_V1LookupFailureDefaultsToGroup(t *testing.T) {
	// A failed lookup must route as group: replying to a channel by DM is
	// the safer mistake.
	f := &fakeFetcher{info: nil}
	env := V1Envelope{ChannelID: "c1", SenderName: "bob"}
	env.Message.Content = "hi"

	msg, err := Normalize(context.Background(), env, f)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.True(t, msg.IsGroup)
}

func TestNormalize_V1NoChannelIDSkipsLookup(t *testing.T) {
	f := &fakeFetcher{}
	env := V1Envelope{SenderName: "bob"}
	env.Message.Content = "hi"

	msg, err := Normalize(context.Background(), env, f)
	require.NoError(t, err)
	assert.Zero(t, f.calls)
	assert.False(t, msg.IsGroup)
}

func TestNormalize_RejectsIncomplete(t *testing.T) {
	f := &fakeFetcher{}

	_, err := Normalize(context.Background(), LegacyEnvelope{SenderName: "bob"}, f)
	assert.ErrorIs(t, err, ErrIncompleteMessage)

	_, err = Normalize(context.Background(), LegacyEnvelope{Content: "hi"}, f)
	assert.ErrorIs(t, err, ErrIncompleteMessage)

	env := V1Envelope{ChannelID: "c1"}
	env.Message.Content = "hi"
	_, err = Normalize(context.Background(), env, f)
	assert.ErrorIs(t, err, ErrIncompleteMessage)
	assert.Zero(t, f.calls, "validation runs before the lookup")
}
