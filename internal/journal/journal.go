// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package journal persists status events in BadgerDB so the pull API can
// replay recent history to dashboards that missed live WebSocket delivery.
//
// Entries carry a TTL and expire on their own; a periodic value-log
// garbage collection pass reclaims the space they held.
package journal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
)

// eventKeyPrefix namespaces journal entries inside the database.
const eventKeyPrefix = "event:"

// gcDiscardRatio is the minimum fraction of a value log file that must be
// stale before a GC pass rewrites it.
const gcDiscardRatio = 0.5

// Recent result sizing.
const (
	defaultRecentLimit = 100
	maxRecentLimit     = 1000
)

// Errors
var (
	// ErrClosed is returned when the journal has been closed.
	ErrClosed = errors.New("journal is closed")

	// ErrNilEvent is returned when a nil event is passed to Append.
	ErrNilEvent = errors.New("event cannot be nil")
)

// Store is a BadgerDB-backed event journal. It implements events.Journal.
type Store struct {
	db       *badger.DB
	ttl      time.Duration
	inMemory bool

	mu     sync.RWMutex
	closed bool
}

// Open creates or reopens the journal at the configured path. With
// InMemory set the journal lives in RAM and vanishes on restart.
func Open(cfg config.JournalConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("journal path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Status events are small and sparse. Shrink Badger's defaults, which
	// are sized for far heavier write loads.
	opts.MemTableSize = 16 << 20
	opts.ValueLogFileSize = 64 << 20

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("ttl", cfg.TTL).
		Msg("Event journal opened")

	return &Store{db: db, ttl: cfg.TTL, inMemory: cfg.InMemory}, nil
}

// Append persists one event under a chronologically sorting key. Appending
// the same event twice overwrites the first copy, so redelivered events do
// not duplicate history.
func (s *Store) Append(ctx context.Context, event *events.Event) error {
	if event == nil {
		return ErrNilEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	data, err := events.SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	key := eventKey(event.Timestamp, event.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Recent returns up to limit events, newest first, optionally filtered by
// scope and stream ID. Empty filters match everything. A non-positive
// limit selects the default.
func (s *Store) Recent(ctx context.Context, scope events.Scope, streamID string, limit int) ([]*events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	out := make([]*events.Event, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(eventKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the last key at or before the
		// seek key, so start just past every possible entry.
		seek := append([]byte(eventKeyPrefix), 0xFF)
		for it.Seek(seek); it.Valid() && len(out) < limit; it.Next() {
			item := it.Item()

			var event *events.Event
			err := item.Value(func(val []byte) error {
				e, err := events.DeserializeEvent(val)
				if err != nil {
					return err
				}
				event = e
				return nil
			})
			if err != nil {
				logging.Warn().
					Err(err).
					Str("key", string(item.Key())).
					Msg("Skipping unreadable journal entry")
				continue
			}

			if scope != "" && event.Scope != scope {
				continue
			}
			if streamID != "" && event.StreamID != streamID {
				continue
			}
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunGC reclaims value-log space left by expired entries. In-memory
// journals have no value log, so the pass is skipped for them.
func (s *Store) RunGC() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	if s.inMemory {
		return nil
	}

	metrics.JournalGCRuns.Inc()

	// Run GC until no more cleanup is possible
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the underlying database. Further calls are no-ops.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

// eventKey builds "event:" + big-endian nanosecond timestamp + ":" + id.
// Big-endian timestamps make lexicographic key order chronological, so a
// reverse iteration walks newest to oldest. The ID suffix keeps events
// sharing a nanosecond distinct.
func eventKey(ts time.Time, id string) []byte {
	key := make([]byte, 0, len(eventKeyPrefix)+8+1+len(id))
	key = append(key, eventKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(ts.UnixNano()))
	key = append(key, ':')
	key = append(key, id...)
	return key
}
