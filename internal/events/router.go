// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
)

// TopicDeadEvents receives events whose handlers kept failing. A built-in
// consumer logs and counts them; nothing replays them.
const TopicDeadEvents = "events.dead"

// Router dispatches bus messages to registered consumers with panic
// recovery and bounded retries. A handler failure never reaches the router
// as a nack: the in-process bus redelivers nacked messages forever, so
// exhausted messages are diverted to the dead topic instead.
type Router struct {
	router *message.Router
	bus    *Bus
}

// NewRouter creates a Router reading from the given bus.
func NewRouter(cfg config.EventsConfig, bus *Bus) (*Router, error) {
	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, bus.logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	// Middleware order, outermost first. The poison queue must wrap
	// everything: it converts any error, including recovered panics, into
	// a dead-topic publish and an ack.
	poison, err := middleware.PoisonQueue(bus.Publisher(), TopicDeadEvents)
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	wmRouter.AddMiddleware(poison)

	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		Logger:          bus.logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	r := &Router{router: wmRouter, bus: bus}
	r.AddConsumer("dropped-events", TopicDeadEvents, dropConsumer)
	return r, nil
}

// dropConsumer is the terminal for undeliverable events.
func dropConsumer(msg *message.Message) error {
	metrics.EventsDropped.Inc()
	logging.Warn().
		Str("message_id", msg.UUID).
		Str("reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey)).
		Str("handler", msg.Metadata.Get(middleware.PoisonedHandlerKey)).
		Msg("Event dropped after delivery failed")
	return nil
}

// AddConsumer registers a handler for one topic. Must be called before Run.
func (r *Router) AddConsumer(name, topic string, handler message.NoPublishHandlerFunc) {
	r.router.AddNoPublisherHandler(name, topic, r.bus.Subscriber(), handler)
}

// AddEventConsumer registers the handler on both event topics, so one
// consumer sees stream and server events alike.
func (r *Router) AddEventConsumer(name string, handler message.NoPublishHandlerFunc) {
	r.AddConsumer(name+".stream", TopicStreamEvents, handler)
	r.AddConsumer(name+".server", TopicServerEvents, handler)
}

// Run starts the router and blocks until ctx is cancelled or Close is
// called. All consumers must be registered beforehand.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes once the router is processing.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close gracefully stops the router, waiting up to CloseTimeout for
// in-flight handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
