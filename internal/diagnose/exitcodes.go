// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package diagnose

import (
	"fmt"

	"github.com/tomtom215/emissor/internal/models"
)

// Well-known exit codes that identify a failure on their own, before any
// output matching. Windows reports NTSTATUS values through
// GetExitCodeProcess as a uint32 widened to int; some callers sign-extend
// from int32 instead, so both representations appear in the table.
const (
	// STATUS_DLL_NOT_FOUND: the loader could not resolve a dependency.
	exitDLLNotFound       = 3221225781 // 0xC0000135
	exitDLLNotFoundSigned = -1073741515

	// STATUS_ACCESS_VIOLATION: the process touched memory it does not own.
	exitAccessViolation       = 3221225477 // 0xC0000005
	exitAccessViolationSigned = -1073741819

	// Shell refusal codes: found-but-not-executable and not-found.
	exitNotExecutable = 126
	exitNotFound      = 127

	// Signal deaths as reported by the shell convention 128+N.
	exitKilled   = 137 // SIGKILL, typically the OS memory reaper
	exitSegfault = 139 // SIGSEGV
)

// lookupExitCode returns a diagnosis for codes in the well-known table.
// The Technical and CreatedAt fields are filled in by the caller. The
// comparison widens to int64 so the NTSTATUS values stay in range on
// 32-bit builds.
func lookupExitCode(exitCode int, ctx Context) (models.Diagnosis, bool) {
	binary := ctx.Binary
	if binary == "" {
		binary = "the encoder binary"
	}

	switch int64(exitCode) {
	case exitDLLNotFound, exitDLLNotFoundSigned:
		return models.Diagnosis{
			Category: models.CategoryProcessCrash,
			Severity: models.SeverityCritical,
			Title:    "Encoder is missing a required library",
			Causes: []string{
				fmt.Sprintf("%s could not start because a DLL it depends on was not found", binary),
				"The encoder installation is incomplete or was moved after installation",
			},
			Remedies: []string{
				fmt.Sprintf("Reinstall %s so its libraries sit alongside the executable", binary),
				"If the encoder was downloaded as a static build, verify the download completed",
			},
		}, true

	case exitAccessViolation, exitAccessViolationSigned:
		return models.Diagnosis{
			Category: models.CategoryProcessCrash,
			Severity: models.SeverityCritical,
			Title:    "Encoder crashed with an access violation",
			Causes: []string{
				fmt.Sprintf("%s crashed while accessing invalid memory, most often due to a faulty audio driver", binary),
			},
			Remedies: []string{
				fmt.Sprintf("Update the driver for %s", ctx.device()),
				fmt.Sprintf("Update %s to the latest release", binary),
			},
		}, true

	case exitNotExecutable:
		return models.Diagnosis{
			Category: models.CategoryProcessCrash,
			Severity: models.SeverityCritical,
			Title:    "Encoder binary is not executable",
			Causes: []string{
				fmt.Sprintf("%s exists but the operating system refused to execute it", binary),
			},
			Remedies: []string{
				fmt.Sprintf("Check the execute permission on %s (chmod +x)", binary),
				"Verify the binary matches this machine's architecture",
			},
		}, true

	case exitNotFound:
		return models.Diagnosis{
			Category: models.CategoryProcessCrash,
			Severity: models.SeverityCritical,
			Title:    "Encoder binary not found",
			Causes: []string{
				fmt.Sprintf("%s is not installed or is not on the PATH", binary),
			},
			Remedies: []string{
				fmt.Sprintf("Install %s or set the encoder binary path in the configuration", binary),
			},
		}, true

	case exitKilled:
		return models.Diagnosis{
			Category: models.CategoryResourceExhaustion,
			Severity: models.SeverityCritical,
			Title:    "Encoder was killed by the operating system",
			Causes: []string{
				fmt.Sprintf("%s received SIGKILL, most often from the kernel's out-of-memory reaper", binary),
				"Another administrator or supervisor may have force-killed the process",
			},
			Remedies: []string{
				"Check system memory pressure (dmesg, journalctl -k) around the failure time",
				"Reduce the number of concurrent streams or lower the encoding bitrate",
			},
		}, true

	case exitSegfault:
		return models.Diagnosis{
			Category: models.CategoryProcessCrash,
			Severity: models.SeverityCritical,
			Title:    "Encoder crashed with a segmentation fault",
			Causes: []string{
				fmt.Sprintf("%s crashed (SIGSEGV), most often due to a faulty codec or driver library", binary),
			},
			Remedies: []string{
				fmt.Sprintf("Update %s to the latest release", binary),
				fmt.Sprintf("Try a different encoding format than %s", formatOr(ctx.Format, "the current one")),
			},
		}, true
	}

	return models.Diagnosis{}, false
}

// formatOr renders a format name or a fallback phrase for the zero value.
func formatOr(f models.AudioFormat, fallback string) string {
	if f == "" {
		return fallback
	}
	return string(f)
}
