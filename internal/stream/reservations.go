// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package stream

import (
	"sync"

	"github.com/tomtom215/emissor/internal/metrics"
)

// reservationTable enforces capture device exclusivity across streams. A
// device is reserved for the whole start-to-stop span of the stream using
// it, so two streams can never race encoders onto the same hardware.
//
// The table is the single authority: acquisition is a check-and-set under
// one lock, never a check followed by a later set.
type reservationTable struct {
	mu       sync.Mutex
	byDevice map[string]string // device ID -> holding stream ID
}

func newReservationTable() *reservationTable {
	return &reservationTable{byDevice: make(map[string]string)}
}

// acquire reserves deviceID for streamID. On conflict it returns the
// holder's stream ID and false. Re-acquiring a device already held by the
// same stream succeeds.
func (t *reservationTable) acquire(deviceID, streamID string) (holder string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, exists := t.byDevice[deviceID]; exists {
		if cur == streamID {
			return cur, true
		}
		return cur, false
	}
	t.byDevice[deviceID] = streamID
	metrics.DeviceReservations.Set(float64(len(t.byDevice)))
	return streamID, true
}

// release frees deviceID if streamID holds it. Releases by a non-holder
// are ignored, so a stale release can never free someone else's device.
func (t *reservationTable) release(deviceID, streamID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.byDevice[deviceID] != streamID {
		return
	}
	delete(t.byDevice, deviceID)
	metrics.DeviceReservations.Set(float64(len(t.byDevice)))
}

// holderOf returns the stream currently holding deviceID, if any.
func (t *reservationTable) holderOf(deviceID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	holder, ok := t.byDevice[deviceID]
	return holder, ok
}
