// Package clawhub implements the ClawHub side of the channel plugin: the
// authenticated REST client, the dual-schema inbound webhook normalizer,
// and the reply relay. The two channel variants under pkg/channels wire
// these pieces to the gateway.
package clawhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// channelIDPattern bounds identifiers before they are interpolated into a
// URL path.
var channelIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidChannelID reports whether id is safe to use in a hub URL path.
func ValidChannelID(id string) bool {
	return channelIDPattern.MatchString(id)
}

// LooksLikeChannelID is the heuristic used to disambiguate an outbound
// "to" value: channel ids are long opaque tokens, bot names are short.
// This is a routing guess, not a security check; ValidChannelID is the
// security check.
func LooksLikeChannelID(s string) bool {
	return len(s) > 20 && channelIDPattern.MatchString(s)
}

// ChannelInfo is the hub's per-channel metadata.
type ChannelInfo struct {
	Type string `json:"type"` // "direct" | "channel"
	Name string `json:"name"`
}

// Sender abstracts the outbound send primitives so the SDK channel can
// swap the HTTP client for a live connection with an equivalent return
// shape.
type Sender interface {
	SendDirect(ctx context.Context, to, text string) (string, error)
	SendToChannel(ctx context.Context, channelID, text string) (string, error)
}

// ChannelInfoFetcher resolves channel metadata. A nil result means the
// lookup failed and the caller should apply its safe default.
type ChannelInfoFetcher interface {
	FetchChannelInfo(ctx context.Context, channelID string) *ChannelInfo
}

// ClientConfig holds the hub endpoint settings for one channel instance.
type ClientConfig struct {
	BaseURL    string
	AgentToken string
	OrgID      string
}

const sendMaxRetries = 2 // retries after the first attempt, 429 only

// Client talks to the ClawHub REST API. The bearer token rides on an
// oauth2 static-token transport; X-Org-Id is added only when configured.
type Client struct {
	config     ClientConfig
	baseURL    *url.URL
	httpClient *http.Client
	retryBase  time.Duration
}

// NewClient validates the hub settings and builds the authenticated
// client. Missing URL or token is a configuration error, surfaced
// immediately rather than at send time.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.AgentToken) == "" {
		return nil, ErrNotConfigured
	}
	parsed, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid hub base URL: %w", err)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.AgentToken,
		TokenType:   "Bearer",
	})
	return &Client{
		config:  cfg,
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
		retryBase: 500 * time.Millisecond,
	}, nil
}

type sendBody struct {
	To          string `json:"to,omitempty"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type sendResponse struct {
	Message struct {
		ID string `json:"id"`
	} `json:"message"`
}

// SendDirect posts a direct message to a bot/agent by name. The hub
// auto-creates the direct conversation if none exists.
func (c *Client) SendDirect(ctx context.Context, to, text string) (string, error) {
	return c.postSend(ctx, c.endpoint("/api/send"), sendBody{
		To:          to,
		Content:     text,
		ContentType: "text",
	})
}

// SendToChannel posts a message to a channel. The id is validated before
// it reaches the URL path; a violation is an invalid-input error, not a
// network error.
func (c *Client) SendToChannel(ctx context.Context, channelID, text string) (string, error) {
	if !ValidChannelID(channelID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannelID, channelID)
	}
	return c.postSend(ctx, c.endpoint("/api/channels/"+channelID+"/messages"), sendBody{
		Content:     text,
		ContentType: "text",
	})
}

// FetchChannelInfo looks up channel metadata. Any failure, including an
// invalid id or a network error, yields nil so the caller can apply its
// documented default instead of propagating.
func (c *Client) FetchChannelInfo(ctx context.Context, channelID string) *ChannelInfo {
	if !ValidChannelID(channelID) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/channels/"+channelID), nil)
	if err != nil {
		return nil
	}
	c.addOrgHeader(req)
	// GET carries no body, so no content type is declared.

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.DebugCF("clawhub", "Channel info lookup failed", map[string]any{
			"channel_id": channelID,
			"error":      err.Error(),
		})
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.DebugCF("clawhub", "Channel info lookup failed", map[string]any{
			"channel_id": channelID,
			"status":     resp.StatusCode,
		})
		return nil
	}

	var info ChannelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil
	}
	return &info
}

// postSend runs the bounded retry loop: HTTP 429 is retried up to
// sendMaxRetries times, sequentially; anything else terminates the loop
// with a DeliveryError. The final 429 falls through to the same terminal
// branch, so exhaustion is explicit rather than an unreachable tail.
func (c *Client) postSend(ctx context.Context, endpoint string, body sendBody) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding send body: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		c.addOrgHeader(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("hub request failed: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var out sendResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if decodeErr != nil {
				return "", fmt.Errorf("decoding hub response: %w", decodeErr)
			}
			return out.Message.ID, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < sendMaxRetries {
			delay := c.retryDelay(resp.Header.Get("Retry-After"), attempt)
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			resp.Body.Close()
			logger.WarnCF("clawhub", "Rate limited, retrying", map[string]any{
				"attempt":  attempt + 1,
				"delay_ms": delay.Milliseconds(),
			})
			time.Sleep(delay)
			continue
		}

		// Terminal: non-429, or retries exhausted. Body read is
		// best-effort and never masks the status.
		bodyText := ""
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			bodyText = string(data)
		}
		resp.Body.Close()
		return "", &DeliveryError{Status: resp.StatusCode, Body: bodyText}
	}
}

// retryDelay honors a positive Retry-After (seconds), else backs off
// linearly per attempt.
func (c *Client) retryDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(attempt+1) * c.retryBase
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) addOrgHeader(req *http.Request) {
	if c.config.OrgID != "" {
		req.Header.Set("X-Org-Id", c.config.OrgID)
	}
}
