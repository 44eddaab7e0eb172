package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/tinyland-inc/clawhub-channel/pkg/bus"
	"github.com/tinyland-inc/clawhub-channel/pkg/config"
	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// Manager owns the enabled channels and fans lifecycle and outbound
// dispatch out to them.
type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
}

func NewManager(cfg *config.Config, msgBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      msgBus,
	}

	if cfg.Channels.ClawHub.Enabled {
		ch, err := NewClawHubChannel(cfg.Channels.ClawHub, msgBus)
		if err != nil {
			return nil, fmt.Errorf("clawhub channel: %w", err)
		}
		m.channels[ch.Name()] = ch
	}

	if cfg.Channels.ClawHubSDK.Enabled {
		ch, err := NewClawHubSDKChannel(cfg.Channels.ClawHubSDK, msgBus)
		if err != nil {
			return nil, fmt.Errorf("clawhub_sdk channel: %w", err)
		}
		m.channels[ch.Name()] = ch
	}

	return m, nil
}

// RegisterRoutes mounts every route-serving channel on the gateway mux.
func (m *Manager) RegisterRoutes(mux *http.ServeMux) {
	for _, ch := range m.channels {
		if rr, ok := ch.(RouteRegistrar); ok {
			rr.RegisterRoutes(mux)
		}
	}
}

func (m *Manager) StartAll(ctx context.Context) error {
	var errs []error
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("starting %s: %w", name, err))
			continue
		}
		logger.InfoC("channels", "Channel started: "+name)
	}
	return errors.Join(errs...)
}

func (m *Manager) StopAll(ctx context.Context) {
	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			logger.WarnCF("channels", "Channel stop failed", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
}

// Send routes one host outbound message to its channel.
func (m *Manager) Send(ctx context.Context, msg bus.OutboundMessage) error {
	ch, ok := m.channels[msg.Channel]
	if !ok {
		return fmt.Errorf("unknown channel %q", msg.Channel)
	}
	return ch.Send(ctx, msg)
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	ch, ok := m.channels[name]
	return ch, ok
}

func (m *Manager) GetEnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
