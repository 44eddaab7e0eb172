package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tinyland-inc/clawhub-channel/cmd/clawhub-channel/internal"
	"github.com/tinyland-inc/clawhub-channel/pkg/bus"
	"github.com/tinyland-inc/clawhub-channel/pkg/channels"
	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	msgBus := bus.NewMessageBus()

	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("error creating channel manager: %w", err)
	}

	enabledChannels := channelManager.GetEnabledChannels()
	if len(enabledChannels) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", enabledChannels)
	} else {
		fmt.Println("⚠ Warning: No channels enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channelManager.StartAll(ctx); err != nil {
		fmt.Printf("Error starting channels: %v\n", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","channels":%d}`, len(enabledChannels))
	})
	channelManager.RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("gateway", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()
	fmt.Printf("✓ Gateway started on %s\n", addr)
	fmt.Println("Press Ctrl+C to stop")

	// Outbound dispatch: host replies flow from the bus to their channel.
	go func() {
		for {
			msg, ok := msgBus.SubscribeOutbound(ctx)
			if !ok {
				return
			}
			if err := channelManager.Send(ctx, msg); err != nil {
				logger.WarnCF("gateway", "Outbound dispatch failed", map[string]any{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
			}
		}
	}()

	// Inbound hand-off: the hosting runtime consumes these. Running
	// standalone, the gateway logs the traffic so the flow is observable.
	go func() {
		for {
			msg, ok := msgBus.ConsumeInbound(ctx)
			if !ok {
				return
			}
			logger.InfoCF("gateway", "Inbound message", map[string]any{
				"channel":     msg.Channel,
				"sender":      msg.SenderName,
				"session_key": msg.SessionKey,
				"message_id":  msg.MessageID,
			})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WarnCF("gateway", "Server shutdown error", map[string]any{"error": err.Error()})
	}

	channelManager.StopAll(shutdownCtx)
	msgBus.Close()
	fmt.Println("✓ Gateway stopped")

	return nil
}
