// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package process

import (
	"context"
	"encoding/csv"
	"strconv"
	"strings"
)

// Lister finds process IDs by executable name. Icecast liveness is decided
// by process presence, never by a network probe, so a slow-starting server
// is not misread as down.
type Lister interface {
	PIDsByName(ctx context.Context, name string) ([]int, error)
}

// ExecLister shells out to the platform process table tool (pgrep on Unix,
// tasklist on Windows).
type ExecLister struct{}

// parsePIDLines converts whitespace-separated PID lines (pgrep output) into
// a slice, skipping anything non-numeric.
func parsePIDLines(out string) []int {
	var pids []int
	for _, field := range strings.Fields(out) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// parseTasklistCSV extracts PIDs from `tasklist /FO CSV /NH` output for the
// given image name. Lines that are not CSV records (e.g. the localized
// "INFO: No tasks are running" notice) yield nothing.
func parseTasklistCSV(out, imageName string) []int {
	var pids []int
	reader := csv.NewReader(strings.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil
	}
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		if !strings.EqualFold(rec[0], imageName) {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
