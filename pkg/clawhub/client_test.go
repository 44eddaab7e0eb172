package clawhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL, orgID string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		BaseURL:    baseURL,
		AgentToken: "agent-token",
		OrgID:      orgID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.retryBase = time.Millisecond
	return c
}

func TestNewClient_MissingConfig(t *testing.T) {
	cases := []ClientConfig{
		{},
		{BaseURL: "https://hub.example.com"},
		{AgentToken: "tok"},
	}
	for _, cfg := range cases {
		if _, err := NewClient(cfg); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("config %+v: expected ErrNotConfigured, got %v", cfg, err)
		}
	}
}

func TestSendDirect_RequestContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/send" {
			t.Errorf("path: got %s, want /api/send", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer agent-token" {
			t.Errorf("auth header: got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type: got %q", got)
		}
		if got := r.Header.Get("X-Org-Id"); got != "org-7" {
			t.Errorf("org header: got %q", got)
		}
		w.Write([]byte(`{"message":{"id":"m-1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "org-7")
	id, err := c.SendDirect(context.Background(), "bob", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "m-1" {
		t.Errorf("message id: got %q, want m-1", id)
	}
}

func TestSendDirect_NoOrgHeaderWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["X-Org-Id"]; ok {
			t.Error("X-Org-Id must not be set without an org id")
		}
		w.Write([]byte(`{"message":{"id":"m-2"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	if _, err := c.SendDirect(context.Background(), "bob", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendToChannel_InvalidIDShortCircuits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	for _, id := range []string{"", "a/b", "../etc", "has space", string(make([]byte, 65))} {
		_, err := c.SendToChannel(context.Background(), id, "hi")
		if !errors.Is(err, ErrInvalidChannelID) {
			t.Errorf("id %q: expected ErrInvalidChannelID, got %v", id, err)
		}
	}
	if hits.Load() != 0 {
		t.Errorf("expected no network calls, got %d", hits.Load())
	}
}

func TestSendToChannel_Path(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/channels/chan_123/messages" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		w.Write([]byte(`{"message":{"id":"m-3"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	id, err := c.SendToChannel(context.Background(), "chan_123", "hello channel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "m-3" {
		t.Errorf("message id: got %q", id)
	}
}

func TestPostSend_RetriesOn429ThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"message":{"id":"m-4"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	id, err := c.SendDirect(context.Background(), "bob", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "m-4" {
		t.Errorf("message id: got %q", id)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts: got %d, want 3", attempts.Load())
	}
}

func TestPostSend_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	_, err := c.SendDirect(context.Background(), "bob", "hi")

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if de.Status != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want 429", de.Status)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts: got %d, want 3", attempts.Load())
	}
	if ErrorKind(err) != "delivery" {
		t.Errorf("kind: got %q, want delivery", ErrorKind(err))
	}
}

func TestPostSend_Non429NotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	_, err := c.SendDirect(context.Background(), "bob", "hi")

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if de.Status != http.StatusBadGateway || de.Body != "boom" {
		t.Errorf("got status %d body %q", de.Status, de.Body)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts: got %d, want 1", attempts.Load())
	}
}

func TestRetryDelay(t *testing.T) {
	c := newTestClient(t, "https://hub.example.com", "")
	c.retryBase = 500 * time.Millisecond

	if d := c.retryDelay("5", 0); d < 5*time.Second {
		t.Errorf("Retry-After 5: got %v, want >= 5s", d)
	}
	if d := c.retryDelay("", 0); d != 500*time.Millisecond {
		t.Errorf("attempt 0: got %v", d)
	}
	if d := c.retryDelay("", 1); d != time.Second {
		t.Errorf("attempt 1: got %v", d)
	}
	// Garbage and non-positive values fall back to the linear delay.
	if d := c.retryDelay("soon", 0); d != 500*time.Millisecond {
		t.Errorf("garbage Retry-After: got %v", d)
	}
	if d := c.retryDelay("0", 0); d != 500*time.Millisecond {
		t.Errorf("zero Retry-After: got %v", d)
	}
}

func TestFetchChannelInfo(t *testing.T) {
	var sawContentType atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method: got %s, want GET", r.Method)
		}
		if r.Header.Get("Content-Type") != "" {
			sawContentType.Store(true)
		}
		w.Write([]byte(`{"type":"channel","name":"ops"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")

	// Same id, stable server: same result both times.
	for i := 0; i < 2; i++ {
		info := c.FetchChannelInfo(context.Background(), "chan_1")
		if info == nil || info.Type != "channel" || info.Name != "ops" {
			t.Fatalf("call %d: got %+v", i, info)
		}
	}
	if sawContentType.Load() {
		t.Error("GET request must not declare a body content type")
	}
}

func TestFetchChannelInfo_FailuresYieldNil(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	if info := c.FetchChannelInfo(context.Background(), "chan_1"); info != nil {
		t.Errorf("expected nil on server error, got %+v", info)
	}
	if info := c.FetchChannelInfo(context.Background(), "../escape"); info != nil {
		t.Errorf("expected nil on invalid id, got %+v", info)
	}
	if hits.Load() != 1 {
		t.Errorf("invalid id must not hit the network; hits=%d", hits.Load())
	}
}

func TestLooksLikeChannelID(t *testing.T) {
	cases := map[string]bool{
		"bob":                         false, // short bot name
		"general":                     false,
		"chan_0123456789abcdef0123":   true,
		"0123456789012345678901":      true,
		"has space in a long string!": false,
	}
	for in, want := range cases {
		if got := LooksLikeChannelID(in); got != want {
			t.Errorf("LooksLikeChannelID(%q): got %v, want %v", in, got, want)
		}
	}
}
