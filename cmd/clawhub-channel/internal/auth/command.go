package auth

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal"
	"github.com/tinyland-inc/clawhub-channel/pkg/auth"
	"github.com/tinyland-inc/clawhub-channel/pkg/config"
)

func NewAuthCommand() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store the ClawHub agent token",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return authCmd(channel)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "clawhub", "Channel to authenticate: clawhub or clawhub_sdk")

	return cmd
}

func authCmd(channel string) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	cred, err := auth.PasteToken("your ClawHub workspace", os.Stdin)
	if err != nil {
		return err
	}

	switch channel {
	case "clawhub":
		cfg.Channels.ClawHub.AgentToken = cred.AgentToken
		cfg.Channels.ClawHub.Enabled = true
	case "clawhub_sdk":
		cfg.Channels.ClawHubSDK.AgentToken = cred.AgentToken
		cfg.Channels.ClawHubSDK.Enabled = true
	default:
		return fmt.Errorf("unknown channel %q (want clawhub or clawhub_sdk)", channel)
	}

	if err := config.SaveConfig(internal.GetConfigPath(), cfg); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	fmt.Printf("✓ Token saved for %s\n", channel)
	return nil
}
