// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

//go:build windows

package process

import (
	"context"
	"fmt"
	"os/exec"
)

// PIDsByName lists processes for the given image name via tasklist CSV
// output. When no process matches, tasklist prints an informational notice
// and exits zero; the parser discards it.
func (ExecLister) PIDsByName(ctx context.Context, name string) ([]int, error) {
	filter := fmt.Sprintf("IMAGENAME eq %s", name)
	out, err := exec.CommandContext(ctx, "tasklist", "/FI", filter, "/FO", "CSV", "/NH").Output()
	if err != nil {
		return nil, fmt.Errorf("tasklist %s: %w", name, err)
	}
	return parseTasklistCSV(string(out), name), nil
}
