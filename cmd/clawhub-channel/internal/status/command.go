package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show channel configuration status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return statusCmd()
		},
	}
}

func statusCmd() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	fmt.Printf("Config: %s\n\n", internal.GetConfigPath())

	hub := cfg.Channels.ClawHub
	fmt.Println("clawhub (webhook)")
	fmt.Printf("  enabled:  %v\n", hub.Enabled)
	fmt.Printf("  base_url: %s\n", orUnset(hub.BaseURL))
	fmt.Printf("  token:    %s\n", maskToken(hub.AgentToken))
	fmt.Printf("  webhook:  %s\n", hub.WebhookPath)

	sdk := cfg.Channels.ClawHubSDK
	fmt.Println("\nclawhub_sdk")
	fmt.Printf("  enabled:  %v\n", sdk.Enabled)
	fmt.Printf("  base_url: %s\n", orUnset(sdk.BaseURL))
	fmt.Printf("  token:    %s\n", maskToken(sdk.AgentToken))
	fmt.Printf("  webhook:  %s\n", sdk.WebhookPath)
	fmt.Printf("  mode:     %s\n", sdk.Mode)

	fmt.Printf("\nGateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
