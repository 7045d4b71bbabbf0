// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/stream"
)

func TestListStreams(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{
		listFn: func() []models.Stream {
			return []models.Stream{testStream(models.StreamRunning), {ID: "lobby", State: models.StreamIdle}}
		},
	}
	router := newTestRouter(newTestHandler(orch, nil, nil, nil))

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/streams", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !resp.Success {
		t.Error("expected success envelope")
	}

	var streams []models.Stream
	dataAs(t, resp, &streams)
	if len(streams) != 2 {
		t.Fatalf("streams = %d, want 2", len(streams))
	}
	if streams[0].ID != "studio" || streams[1].ID != "lobby" {
		t.Errorf("stream IDs = %s, %s", streams[0].ID, streams[1].ID)
	}
}

func TestListStreamsEmpty(t *testing.T) {
	t.Parallel()

	router := newTestRouter(newTestHandler(&fakeOrchestrator{}, nil, nil, nil))

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/streams", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !resp.Success {
		t.Error("expected success envelope for empty list")
	}
}

func TestListStreamsUnavailable(t *testing.T) {
	t.Parallel()

	router := newTestRouter(newTestHandler(nil, nil, nil, nil))

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/streams", nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeServiceUnavailable)
	}
}

func TestGetStream(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		orch := &fakeOrchestrator{
			getFn: func(id string) (models.Stream, error) {
				if id != "studio" {
					t.Errorf("Get id = %q, want studio", id)
				}
				return testStream(models.StreamRunning), nil
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/streams/studio", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var st models.Stream
		dataAs(t, resp, &st)
		if st.ID != "studio" || st.State != models.StreamRunning {
			t.Errorf("stream = %s/%s, want studio/running", st.ID, st.State)
		}
	})

	t.Run("not found", func(t *testing.T) {
		orch := &fakeOrchestrator{
			getFn: func(string) (models.Stream, error) {
				return models.Stream{}, stream.ErrStreamNotFound
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/streams/ghost", nil)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
			t.Errorf("error = %+v, want %s", resp.Error, ErrCodeNotFound)
		}
	})
}

func TestCreateStream(t *testing.T) {
	t.Parallel()

	t.Run("valid definition", func(t *testing.T) {
		var received models.StreamConfig
		orch := &fakeOrchestrator{
			createFn: func(cfg models.StreamConfig) (models.Stream, error) {
				received = cfg
				return testStream(models.StreamIdle), nil
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams", testStreamConfig())

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
		}

		if received.DeviceID != "hw:1,0" {
			t.Errorf("orchestrator received device %q", received.DeviceID)
		}
		if len(received.Formats) != 2 {
			t.Errorf("orchestrator received %d formats, want 2", len(received.Formats))
		}

		var st models.Stream
		dataAs(t, resp, &st)
		if st.ID != "studio" || st.State != models.StreamIdle {
			t.Errorf("created = %s/%s, want studio/idle", st.ID, st.State)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		router := newTestRouter(newTestHandler(&fakeOrchestrator{}, nil, nil, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/streams", strings.NewReader(`{"name": "broken`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		orch := &fakeOrchestrator{
			createFn: func(models.StreamConfig) (models.Stream, error) {
				t.Error("orchestrator must not be called for invalid input")
				return models.Stream{}, nil
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		cfg := testStreamConfig()
		cfg.Name = ""
		cfg.BitrateKbps = 9999

		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams", cfg)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("error = %+v, want VALIDATION_ERROR", resp.Error)
		}
		if resp.Error.Details == nil {
			t.Error("expected per-field details")
		}
	})

	t.Run("duplicate ID", func(t *testing.T) {
		orch := &fakeOrchestrator{
			createFn: func(models.StreamConfig) (models.Stream, error) {
				return models.Stream{}, stream.ErrStreamExists
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams", testStreamConfig())

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
			t.Errorf("error = %+v, want %s", resp.Error, ErrCodeConflict)
		}
	})
}

func TestUpdateStream(t *testing.T) {
	t.Parallel()

	t.Run("stopped stream", func(t *testing.T) {
		orch := &fakeOrchestrator{
			updateFn: func(id string, cfg models.StreamConfig) (models.Stream, error) {
				if id != "studio" {
					t.Errorf("Update id = %q, want studio", id)
				}
				st := testStream(models.StreamStopped)
				st.BitrateKbps = cfg.BitrateKbps
				return st, nil
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		cfg := testStreamConfig()
		cfg.BitrateKbps = 256

		rec, resp := doRequest(t, router, http.MethodPut, "/api/v1/streams/studio", cfg)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		var st models.Stream
		dataAs(t, resp, &st)
		if st.BitrateKbps != 256 {
			t.Errorf("bitrate = %d, want 256", st.BitrateKbps)
		}
	})

	t.Run("live stream rejected", func(t *testing.T) {
		orch := &fakeOrchestrator{
			updateFn: func(string, models.StreamConfig) (models.Stream, error) {
				return models.Stream{}, stream.ErrStreamLive
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodPut, "/api/v1/streams/studio", testStreamConfig())

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
			t.Errorf("error = %+v, want %s", resp.Error, ErrCodeConflict)
		}
	})

	t.Run("unknown stream", func(t *testing.T) {
		orch := &fakeOrchestrator{
			updateFn: func(string, models.StreamConfig) (models.Stream, error) {
				return models.Stream{}, stream.ErrStreamNotFound
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/streams/ghost", testStreamConfig())

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestDeleteStream(t *testing.T) {
	t.Parallel()

	t.Run("resting stream", func(t *testing.T) {
		removed := ""
		orch := &fakeOrchestrator{
			removeFn: func(id string) error {
				removed = id
				return nil
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, _ := doRequest(t, router, http.MethodDelete, "/api/v1/streams/studio", nil)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("body = %q, want empty", rec.Body.String())
		}
		if removed != "studio" {
			t.Errorf("removed = %q, want studio", removed)
		}
	})

	t.Run("live stream rejected", func(t *testing.T) {
		orch := &fakeOrchestrator{
			removeFn: func(string) error { return stream.ErrStreamLive },
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, _ := doRequest(t, router, http.MethodDelete, "/api/v1/streams/studio", nil)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})
}

func TestStartStream(t *testing.T) {
	t.Parallel()

	t.Run("reaches running", func(t *testing.T) {
		orch := &fakeOrchestrator{
			startFn: func(_ context.Context, id string) error {
				if id != "studio" {
					t.Errorf("Start id = %q, want studio", id)
				}
				return nil
			},
			getFn: func(string) (models.Stream, error) {
				st := testStream(models.StreamRunning)
				st.ActiveFormat = models.FormatMP3
				st.PID = 4242
				return st, nil
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams/studio/start", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		var st models.Stream
		dataAs(t, resp, &st)
		if st.State != models.StreamRunning {
			t.Errorf("state = %s, want running", st.State)
		}
		if st.ActiveFormat != models.FormatMP3 {
			t.Errorf("active format = %s, want mp3", st.ActiveFormat)
		}
		if st.PID != 4242 {
			t.Errorf("pid = %d, want 4242", st.PID)
		}
	})

	t.Run("not startable from running", func(t *testing.T) {
		orch := &fakeOrchestrator{
			startFn: func(context.Context, string) error {
				return &stream.NotStartableError{ID: "studio", State: models.StreamRunning}
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams/studio/start", nil)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
			t.Errorf("error = %+v, want %s", resp.Error, ErrCodeConflict)
		}
	})

	t.Run("all formats failed", func(t *testing.T) {
		orch := &fakeOrchestrator{
			startFn: func(context.Context, string) error {
				return &stream.StartFailedError{
					ID: "studio",
					Diagnosis: models.Diagnosis{
						Category: models.CategoryDeviceBusy,
						Severity: models.SeverityCritical,
						Title:    "Audio device hw:1,0 is in use",
					},
				}
			},
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams/studio/start", nil)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", rec.Code)
		}
		if resp.Error == nil || resp.Error.Code != ErrCodeStartFailed {
			t.Fatalf("error = %+v, want %s", resp.Error, ErrCodeStartFailed)
		}
		if _, ok := resp.Error.Details["diagnosis"]; !ok {
			t.Error("expected diagnosis in details")
		}
	})

	t.Run("unknown stream", func(t *testing.T) {
		orch := &fakeOrchestrator{
			startFn: func(context.Context, string) error { return stream.ErrStreamNotFound },
		}
		router := newTestRouter(newTestHandler(orch, nil, nil, nil))

		rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/streams/ghost/start", nil)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestStopStream(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{
		stopFn: func(_ context.Context, id string) error {
			if id != "studio" {
				t.Errorf("Stop id = %q, want studio", id)
			}
			return nil
		},
		getFn: func(string) (models.Stream, error) {
			return testStream(models.StreamStopped), nil
		},
	}
	router := newTestRouter(newTestHandler(orch, nil, nil, nil))

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/streams/studio/stop", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var st models.Stream
	dataAs(t, resp, &st)
	if st.State != models.StreamStopped {
		t.Errorf("state = %s, want stopped", st.State)
	}
}

func TestRestartStream(t *testing.T) {
	t.Parallel()

	restarted := false
	orch := &fakeOrchestrator{
		restartFn: func(context.Context, string) error {
			restarted = true
			return nil
		},
		getFn: func(string) (models.Stream, error) {
			return testStream(models.StreamRunning), nil
		},
	}
	router := newTestRouter(newTestHandler(orch, nil, nil, nil))

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/streams/studio/restart", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !restarted {
		t.Error("Restart was not invoked")
	}
}
