// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down, for log filtering.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	// This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication.
const (
	// MessageTypeEvent wraps an orchestration event from the status bus:
	// stream and server state transitions, diagnoses, and config validation
	// results.
	MessageTypeEvent = "event"

	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is the envelope every frame on the wire uses.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected dashboard clients and fans orchestration
// events out to them. Clients that cannot keep up are disconnected rather
// than allowed to stall the broadcast path.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub with no connected clients.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run drives the hub until ctx is canceled, then closes every client and
// returns ctx.Err(). Designed to run as a supervised service.
//
// Selection is priority ordered so behavior stays predictable when several
// channels are ready at once: shutdown first, then client lifecycle, then
// broadcasts. Go's select picks randomly among ready cases, so each priority
// gets a non-blocking check before the final blocking select.
func (h *Hub) Run(ctx context.Context) error {
	for {
		// Priority 1: shutdown.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle. Registration state settles before
		// any queued broadcast is delivered.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.dropClient(client)
			continue
		default:
		}

		// Priority 3: wait for anything.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.dropClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("WebSocket client connected")
}

func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("WebSocket client disconnected")
}

// shutdown closes all clients and logs the shutdown with structured fields.
// ctx.Err() is not logged as an error: cancellation is the expected path and
// an error-level entry would mislead anyone watching the logs.
func (h *Hub) shutdown(ctx context.Context) {
	closed := h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("WebSocket hub stopped")
}

// getShutdownReason maps the context error onto a stable log token.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToClients delivers one message to every connected client in
// ascending client-ID order, so delivery order is reproducible. A client
// whose send buffer is full is disconnected on the spot; a stuck dashboard
// must not hold up the rest.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("removed", len(toRemove)).Msg("Disconnected clients with full send buffers")
	}
}

// closeAllClients closes every connected client in ID order and returns how
// many were closed. Called once during shutdown.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	return len(clients)
}

// Broadcast forwards one serialized orchestration event to all clients.
// This is the consumer side of the event router's forward handler; the
// payload is the event document the bus carried, re-wrapped in the wire
// envelope untouched so clients see exactly what the journal stores.
func (h *Hub) Broadcast(data []byte) {
	var event map[string]interface{}
	if err := json.Unmarshal(data, &event); err != nil {
		metrics.WSErrors.WithLabelValues("decode").Inc()
		logging.Warn().Err(err).Msg("Dropping undecodable event payload")
		return
	}

	h.enqueue(Message{Type: MessageTypeEvent, Data: event})
}

// BroadcastJSON queues an arbitrary typed message for all clients.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.enqueue(Message{Type: messageType, Data: data})
}

// enqueue hands a message to the run loop without ever blocking the caller.
// Delivery is best effort: if the hub's own queue is full the message is
// dropped and counted, matching the at-most-once contract of the status
// surface.
func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		metrics.WSErrors.WithLabelValues("backpressure").Inc()
		logging.Warn().Str("message_type", message.Type).Msg("Broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
