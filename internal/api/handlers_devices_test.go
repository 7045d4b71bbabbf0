// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/emissor/internal/models"
)

func TestListDevices(t *testing.T) {
	t.Parallel()

	t.Run("cached inventory", func(t *testing.T) {
		var gotForce bool
		prober := &fakeProber{
			devicesFn: func(_ context.Context, force bool) (models.DeviceInventory, error) {
				gotForce = force
				return models.DeviceInventory{
					Devices: []models.AudioDevice{
						{ID: "hw:0,0", Name: "HDA Intel PCH", Available: true},
						{ID: "hw:1,0", Name: "USB Audio CODEC", Available: false},
					},
					ProbedAt:  time.Now().UTC(),
					FromCache: true,
				}, nil
			},
		}
		router := newTestRouter(newTestHandler(nil, nil, prober, nil))

		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/devices", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotForce {
			t.Error("force = true without refresh param")
		}

		var inv models.DeviceInventory
		dataAs(t, resp, &inv)
		if len(inv.Devices) != 2 {
			t.Fatalf("devices = %d, want 2", len(inv.Devices))
		}
		if !inv.FromCache {
			t.Error("expected cached inventory")
		}
		if inv.Devices[0].ID != "hw:0,0" || !inv.Devices[0].Available {
			t.Errorf("device[0] = %+v", inv.Devices[0])
		}
	})

	t.Run("refresh forces a probe", func(t *testing.T) {
		var gotForce bool
		prober := &fakeProber{
			devicesFn: func(_ context.Context, force bool) (models.DeviceInventory, error) {
				gotForce = force
				return models.DeviceInventory{ProbedAt: time.Now().UTC()}, nil
			},
		}
		router := newTestRouter(newTestHandler(nil, nil, prober, nil))

		rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/devices?refresh=true", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !gotForce {
			t.Error("refresh=true did not force a probe")
		}
	})

	t.Run("probe failure", func(t *testing.T) {
		prober := &fakeProber{
			devicesFn: func(context.Context, bool) (models.DeviceInventory, error) {
				return models.DeviceInventory{}, errors.New("arecord not found")
			},
		}
		router := newTestRouter(newTestHandler(nil, nil, prober, nil))

		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/devices", nil)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeInternalError {
			t.Errorf("error = %+v, want %s", resp.Error, ErrCodeInternalError)
		}
	})

	t.Run("prober unavailable", func(t *testing.T) {
		router := newTestRouter(newTestHandler(nil, nil, nil, nil))

		rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/devices", nil)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	})
}
