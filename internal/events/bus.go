// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/metrics"
)

// Bus is the in-process Pub/Sub for status events. Messages are not
// persistent: subscribers only see events published after they subscribe,
// and nothing is redelivered. The journal covers the gap.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewBus creates a Bus with a bounded per-subscriber buffer.
func NewBus(cfg config.EventsConfig) *Bus {
	logger := NewLoggerAdapter()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(cfg.BufferSize),
		}, logger),
		logger: logger,
	}
}

// Publish validates, serializes, and publishes an event on its scope topic.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.ID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("scope", string(event.Scope))
	msg.Metadata.Set("type", string(event.Type))
	if event.StreamID != "" {
		msg.Metadata.Set("stream_id", event.StreamID)
	}

	if err := b.pubsub.Publish(event.Topic(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Topic(), err)
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// Subscribe returns a channel of messages on the topic. The channel closes
// when ctx is cancelled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Subscriber exposes the native Watermill subscriber for router wiring.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Publisher exposes the native Watermill publisher for router middleware
// that re-publishes messages.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Close shuts the bus down; in-flight deliveries are abandoned.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
