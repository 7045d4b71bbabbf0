// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package process

import (
	"strings"
	"sync"
)

// OutputRing is a thread-safe ring buffer holding the last N lines of child
// process output. Encoders on a crash loop can emit megabytes of progress
// chatter; only the tail matters for diagnosis.
type OutputRing struct {
	mu    sync.RWMutex
	lines []string
	head  int
	size  int
}

// NewOutputRing creates a ring with the given line capacity.
func NewOutputRing(capacity int) *OutputRing {
	if capacity < 1 {
		capacity = 100
	}
	return &OutputRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Append records one line. Empty lines are dropped; they carry no
// diagnostic value and would displace lines that do.
func (r *OutputRing) Append(line string) {
	if line == "" {
		return
	}
	r.mu.Lock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % r.size
	r.mu.Unlock()
}

// Write implements io.Writer for callers that redirect a stream wholesale.
// Input is split on newlines; partial trailing lines are kept as lines of
// their own, which is adequate for line-oriented encoder logs.
func (r *OutputRing) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		r.Append(line)
	}
	return len(p), nil
}

// LastN returns up to n lines in chronological order.
func (r *OutputRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.size {
		n = r.size
	}

	ordered := make([]string, 0, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % r.size
		if r.lines[idx] != "" {
			ordered = append(ordered, r.lines[idx])
		}
	}

	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

// Tail returns the whole retained output as one newline-joined string,
// oldest line first. This is the form the diagnosis engine consumes.
func (r *OutputRing) Tail() string {
	return strings.Join(r.LastN(r.size), "\n")
}
