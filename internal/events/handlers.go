// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
)

// Journal is the slice of the journal store the persister handler needs.
type Journal interface {
	Append(ctx context.Context, event *Event) error
}

// Broadcaster pushes serialized events to connected WebSocket clients.
type Broadcaster interface {
	Broadcast(data []byte)
}

// NewJournalHandler returns a consumer that persists every event. Append
// errors are returned so the router's retry middleware gets a chance;
// malformed payloads are dropped outright since replaying cannot fix them.
func NewJournalHandler(j Journal) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		event, err := DeserializeEvent(msg.Payload)
		if err != nil {
			logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed event")
			return nil
		}
		if err := j.Append(msg.Context(), event); err != nil {
			metrics.JournalAppendErrors.Inc()
			return err
		}
		metrics.JournalAppends.Inc()
		return nil
	}
}

// NewForwardHandler returns a consumer that fans events out to WebSocket
// clients. The payload is already serialized; it goes out as-is.
func NewForwardHandler(b Broadcaster) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		b.Broadcast(msg.Payload)
		return nil
	}
}
