// clawhub-channel - ClawHub messaging channel for agent gateways
// License: MIT
//
// Copyright (c) 2026 clawhub-channel contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal"
	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal/auth"
	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal/gateway"
	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal/status"
	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal/version"
)

func NewClawhubChannelCommand() *cobra.Command {
	short := fmt.Sprintf("%s clawhub-channel - ClawHub gateway channel v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "clawhub-channel",
		Short:   short,
		Example: "clawhub-channel gateway",
	}

	cmd.AddCommand(
		auth.NewAuthCommand(),
		gateway.NewGatewayCommand(),
		status.NewStatusCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewClawhubChannelCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
