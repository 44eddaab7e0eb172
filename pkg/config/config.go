package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Channels ChannelsConfig `json:"channels"`
	Gateway  GatewayConfig  `json:"gateway"`
}

type ChannelsConfig struct {
	ClawHub    ClawHubConfig    `json:"clawhub"`
	ClawHubSDK ClawHubSDKConfig `json:"clawhub_sdk"`
}

// ClawHubConfig configures the webhook-only ClawHub channel.
type ClawHubConfig struct {
	Enabled       bool                `env:"CLAWHUB_CHANNELS_CLAWHUB_ENABLED"        json:"enabled"`
	BaseURL       string              `env:"CLAWHUB_CHANNELS_CLAWHUB_BASE_URL"       json:"base_url"`
	AgentToken    string              `env:"CLAWHUB_CHANNELS_CLAWHUB_AGENT_TOKEN"    json:"agent_token"`
	OrgID         string              `env:"CLAWHUB_CHANNELS_CLAWHUB_ORG_ID"         json:"org_id,omitempty"`
	WebhookPath   string              `env:"CLAWHUB_CHANNELS_CLAWHUB_WEBHOOK_PATH"   json:"webhook_path"`
	WebhookSecret string              `env:"CLAWHUB_CHANNELS_CLAWHUB_WEBHOOK_SECRET" json:"webhook_secret,omitempty"`
	AllowFrom     FlexibleStringSlice `env:"CLAWHUB_CHANNELS_CLAWHUB_ALLOW_FROM"     json:"allow_from"`
}

// ClawHubSDKConfig configures the SDK-capable ClawHub channel. It carries
// everything the webhook channel does plus the connection mode.
type ClawHubSDKConfig struct {
	Enabled       bool                `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_ENABLED"        json:"enabled"`
	BaseURL       string              `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_BASE_URL"       json:"base_url"`
	AgentToken    string              `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_AGENT_TOKEN"    json:"agent_token"`
	OrgID         string              `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_ORG_ID"         json:"org_id,omitempty"`
	WebhookPath   string              `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_WEBHOOK_PATH"   json:"webhook_path"`
	WebhookSecret string              `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_WEBHOOK_SECRET" json:"webhook_secret,omitempty"`
	AllowFrom     FlexibleStringSlice `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_ALLOW_FROM"     json:"allow_from"`
	Mode          string              `env:"CLAWHUB_CHANNELS_CLAWHUB_SDK_MODE"           json:"mode"` // "sdk" | "webhook" | "auto"
}

type GatewayConfig struct {
	Host string `env:"CLAWHUB_GATEWAY_HOST" json:"host"`
	Port int    `env:"CLAWHUB_GATEWAY_PORT" json:"port"`
}

// DefaultConfig returns a config with gateway defaults and both channels
// disabled.
func DefaultConfig() *Config {
	return &Config{
		Channels: ChannelsConfig{
			ClawHub: ClawHubConfig{
				WebhookPath: "/clawhub/inbound",
			},
			ClawHubSDK: ClawHubSDKConfig{
				WebhookPath: "/clawhub-sdk/inbound",
				Mode:        "auto",
			},
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18790,
		},
	}
}

// LoadConfig reads the JSON config at path and applies CLAWHUB_* environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
