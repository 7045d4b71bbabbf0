// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package diagnose

import (
	"fmt"
	"time"

	"github.com/tomtom215/emissor/internal/models"
)

// Preset diagnoses cover failures the supervisor detects before launching an
// encoder. There is no process output to classify, so these are built
// directly instead of going through Diagnose.

const noProcessTechnical = "start refused before encoder launch; no process was spawned"

// DeviceReserved reports a capture device already reserved by another stream
// managed by this orchestrator. holder names the stream holding it.
func DeviceReserved(ctx Context, holder string) models.Diagnosis {
	return models.Diagnosis{
		Category: models.CategoryDeviceBusy,
		Severity: models.SeverityWarning,
		Title:    "Capture device is reserved by another stream",
		Causes: []string{
			fmt.Sprintf("Stream %q is already using %s", holder, ctx.device()),
			"A capture device can feed only one stream at a time",
		},
		Remedies: []string{
			fmt.Sprintf("Stop stream %q first, or assign a different capture device to this stream", holder),
		},
		Technical: noProcessTechnical,
		CreatedAt: time.Now().UTC(),
	}
}

// DeviceUnavailable reports a device the last probe listed but marked as held
// by a process outside this orchestrator.
func DeviceUnavailable(ctx Context) models.Diagnosis {
	return models.Diagnosis{
		Category: models.CategoryDeviceBusy,
		Severity: models.SeverityWarning,
		Title:    "Capture device is in use",
		Causes: []string{
			fmt.Sprintf("Another application outside this orchestrator holds %s", ctx.device()),
		},
		Remedies: []string{
			fmt.Sprintf("Close other applications recording from %s and retry", ctx.device()),
			"On Linux, check for a competing process with: fuser -v /dev/snd/*",
		},
		Technical: noProcessTechnical,
		CreatedAt: time.Now().UTC(),
	}
}

// DeviceMissing reports a configured device absent from the probed inventory.
func DeviceMissing(ctx Context) models.Diagnosis {
	return models.Diagnosis{
		Category: models.CategoryDeviceNotFound,
		Severity: models.SeverityCritical,
		Title:    "Capture device not found",
		Causes: []string{
			fmt.Sprintf("%s does not appear in the current device inventory; it may be unplugged or its identifier changed after a reboot", ctx.device()),
		},
		Remedies: []string{
			"Refresh the device list and reselect the capture device for this stream",
			"Check that the device is plugged in and recognized by the operating system",
		},
		Technical: noProcessTechnical,
		CreatedAt: time.Now().UTC(),
	}
}

// ServerNotRunning reports a start attempted while the Icecast server is down.
func ServerNotRunning(ctx Context) models.Diagnosis {
	return models.Diagnosis{
		Category: models.CategoryConnection,
		Severity: models.SeverityCritical,
		Title:    "Icecast server is not running",
		Causes: []string{
			fmt.Sprintf("No managed Icecast server is running at %s, so the encoder would have nothing to connect to", ctx.target()),
		},
		Remedies: []string{
			"Start the Icecast server and retry the stream",
			"If the server keeps stopping, check its last diagnosis for the underlying failure",
		},
		Technical: noProcessTechnical,
		CreatedAt: time.Now().UTC(),
	}
}
