// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

//go:build unix

package process

import (
	"context"
	"fmt"
	"os/exec"
)

// PIDsByName lists processes whose executable name matches exactly, via
// pgrep -x. An empty match is not an error: pgrep's exit status 1 means
// "no processes matched".
func (ExecLister) PIDsByName(ctx context.Context, name string) ([]int, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-x", name).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("pgrep %s: %w", name, err)
	}
	return parsePIDLines(string(out)), nil
}
