// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package models

import "time"

// AudioDevice is a capture device reported by the capability probe.
//
// ID is the platform-native identifier handed verbatim to the encoder
// ("hw:1,0" for ALSA, the avfoundation index on macOS, the display name
// for DirectShow). There is
// no persistent device registry: every enumeration reflects the devices
// visible at that moment, and an empty result is a valid state, not an error.
type AudioDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Available is a best-effort liveness verdict: present in the current
	// enumeration and not known to be exclusively held by another process.
	Available bool `json:"available"`
}

// DeviceInventory is an enumeration result with its observation time, so
// consumers of the cached list can judge staleness.
type DeviceInventory struct {
	Devices   []AudioDevice `json:"devices"`
	ProbedAt  time.Time     `json:"probed_at"`
	FromCache bool          `json:"from_cache"`
}

// Find returns the device with the given ID and whether it was present.
func (inv DeviceInventory) Find(id string) (AudioDevice, bool) {
	for _, d := range inv.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return AudioDevice{}, false
}
