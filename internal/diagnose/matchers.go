// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package diagnose

import (
	"fmt"
	"strings"

	"github.com/tomtom215/emissor/internal/models"
)

// matcher pairs a pattern set with the builder that turns a match into
// situational advice. Patterns are lowercase substrings; a matcher fires
// when any of them occurs in the lowercased output.
type matcher struct {
	category models.DiagnosisCategory
	severity models.DiagnosisSeverity
	patterns []string
	build    func(ctx Context) models.Diagnosis
}

// matches is the direct per-pattern scan. Diagnose goes through the
// signature index instead; this is kept as the reference the index is
// cross-checked against.
func (m matcher) matches(lowered string) bool {
	for _, p := range m.patterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// matchers is evaluated top to bottom; the first match wins. Order encodes
// priority: bind and transport failures outrank credentials, credentials
// outrank mount collisions, mount collisions outrank device errors, device
// errors outrank codec and parameter errors, and generic resource, timeout,
// and crash patterns come last. Within the device group, busy outranks
// virtual-driver outranks not-found because busy messages usually also name
// the device and virtual-driver names also appear in not-found messages.
var matchers = []matcher{
	{
		category: models.CategoryPortConflict,
		severity: models.SeverityCritical,
		patterns: []string{
			"address already in use",
			"bind failed",
			"could not bind",
			"failed to bind",
			"eaddrinuse",
		},
		build: func(ctx Context) models.Diagnosis {
			port := "the listen port"
			if ctx.Port > 0 {
				port = fmt.Sprintf("port %d", ctx.Port)
			}
			return models.Diagnosis{
				Title: "Port is already in use",
				Causes: []string{
					fmt.Sprintf("Another program is already listening on %s", port),
					"A previous Icecast instance may still be shutting down",
				},
				Remedies: []string{
					fmt.Sprintf("Find the conflicting process (ss -ltnp | grep %s) and stop it", portNumber(ctx)),
					"Or change the listen port in the Icecast configuration and update the stream settings to match",
				},
			}
		},
	},
	{
		category: models.CategoryConnection,
		severity: models.SeverityCritical,
		patterns: []string{
			"connection refused",
			"connection to tcp",
			"failed to connect",
			"connection reset",
			"connection timed out",
			"network is unreachable",
			"no route to host",
			"broken pipe",
			"end of file",
			"name or service not known",
			"could not resolve",
			"host not found",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Cannot reach the Icecast server",
				Causes: []string{
					fmt.Sprintf("No Icecast server is accepting connections at %s", ctx.target()),
					"The server may be stopped, still starting, or listening on a different port",
				},
				Remedies: []string{
					"Start the Icecast server, or wait for it to finish starting",
					fmt.Sprintf("Verify the server address %s matches the Icecast configuration", ctx.target()),
					"Check for a firewall blocking the connection",
				},
			}
		},
	},
	{
		category: models.CategoryAuthentication,
		severity: models.SeverityCritical,
		patterns: []string{
			// Bare "401" would match hex pointer addresses in encoder
			// output, so only the full phrases are matched.
			"http error 401",
			"401 unauthorized",
			"unauthorized",
			"authentication failed",
			"authentication error",
			"invalid password",
			"wrong password",
			"bad password",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Icecast rejected the source credentials",
				Causes: []string{
					fmt.Sprintf("The source password sent to %s does not match the server's <source-password>", ctx.target()),
				},
				Remedies: []string{
					"Compare the configured source password with the <source-password> element in icecast.xml",
					"Restart the Icecast server if its configuration was changed recently",
				},
			}
		},
	},
	{
		category: models.CategoryMountPoint,
		severity: models.SeverityWarning,
		patterns: []string{
			"mountpoint",
			"mount point",
			"too many sources",
			"source limit",
			"403 forbidden",
		},
		build: func(ctx Context) models.Diagnosis {
			mount := "the mount point"
			if ctx.Mount != "" {
				mount = ctx.Mount
			}
			return models.Diagnosis{
				Title: "Mount point is unavailable",
				Causes: []string{
					fmt.Sprintf("Another source is already streaming to %s, or the server's source limit is reached", mount),
				},
				Remedies: []string{
					fmt.Sprintf("Stop the other source connected to %s, or choose a different mount path", mount),
					"Raise the <sources> limit in icecast.xml if more simultaneous streams are needed",
				},
			}
		},
	},
	{
		category: models.CategoryDeviceBusy,
		severity: models.SeverityWarning,
		patterns: []string{
			"device or resource busy",
			"resource busy",
			"device is currently in use",
			"in use by another",
			"exclusive",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Capture device is in use",
				Causes: []string{
					fmt.Sprintf("Another application holds %s exclusively", ctx.device()),
				},
				Remedies: []string{
					fmt.Sprintf("Close other applications recording from %s", ctx.device()),
					"On Linux, check for a competing process with: fuser -v /dev/snd/*",
				},
			}
		},
	},
	{
		category: models.CategoryVirtualAudioDevice,
		severity: models.SeverityWarning,
		patterns: []string{
			"virtual-audio-capturer",
			"virtual cable",
			"vb-audio",
			"vb-cable",
			"blackhole",
			"soundflower",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Virtual audio device problem",
				Causes: []string{
					fmt.Sprintf("The virtual audio driver behind %s is not installed, not running, or receiving no signal", ctx.device()),
				},
				Remedies: []string{
					"Reinstall the virtual audio driver and reboot",
					fmt.Sprintf("Confirm system audio output is routed into %s so it has a signal to capture", ctx.device()),
				},
			}
		},
	},
	{
		category: models.CategoryDeviceNotFound,
		severity: models.SeverityCritical,
		patterns: []string{
			"no such device",
			"device not found",
			"could not find audio",
			"cannot find audio",
			"no such card",
			"invalid card",
			"unknown pcm",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Capture device not found",
				Causes: []string{
					fmt.Sprintf("%s is not present on this system, or its identifier changed after a reboot or replug", ctx.device()),
				},
				Remedies: []string{
					"Refresh the device list and reselect the capture device for this stream",
					"Check that the device is plugged in and recognized by the operating system",
				},
			}
		},
	},
	{
		category: models.CategoryOSAudioSubsystem,
		severity: models.SeverityCritical,
		patterns: []string{
			"alsa lib",
			"pulseaudio",
			"pa_context",
			"jack server",
			"jackd",
			"coreaudio",
			"audiounit",
			"wasapi",
			"snd_pcm",
			"cannot connect to server socket",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Operating system audio layer failed",
				Causes: []string{
					fmt.Sprintf("The platform audio subsystem refused access to %s", ctx.device()),
					"The sound server (PulseAudio/PipeWire/JACK) may be stopped or misconfigured",
				},
				Remedies: []string{
					"Restart the system sound server and retry the stream",
					"Verify this user account has permission to access audio devices (audio group on Linux)",
				},
			}
		},
	},
	{
		category: models.CategoryCodecUnavailable,
		severity: models.SeverityCritical,
		patterns: []string{
			"unknown encoder",
			"encoder not found",
			"codec not found",
			"codec not currently supported",
			"no codec provided",
			"automatic encoder selection failed",
		},
		build: func(ctx Context) models.Diagnosis {
			format := formatOr(ctx.Format, "the requested format")
			return models.Diagnosis{
				Title: fmt.Sprintf("Encoder for %s is not available", format),
				Causes: []string{
					fmt.Sprintf("This build of the encoder binary was compiled without support for %s", format),
				},
				Remedies: []string{
					fmt.Sprintf("Install a full encoder build that includes the %s codec", format),
					"Or reorder the stream's format list so a supported format comes first",
				},
			}
		},
	},
	{
		category: models.CategoryFormatUnsupported,
		severity: models.SeverityWarning,
		patterns: []string{
			"invalid sample rate",
			"unsupported sample rate",
			"sample rate not supported",
			"unsupported sample format",
			"invalid channel",
			"channel layout",
			"error while opening encoder",
			"incorrect parameters",
		},
		build: func(ctx Context) models.Diagnosis {
			format := formatOr(ctx.Format, "the requested format")
			return models.Diagnosis{
				Title: "Encoding parameters were rejected",
				Causes: []string{
					fmt.Sprintf("The combination of sample rate, channels, and bitrate is not supported by %s or by %s", format, ctx.device()),
				},
				Remedies: []string{
					"Try a standard sample rate (44100 or 48000 Hz) and stereo channels",
					fmt.Sprintf("Lower the bitrate or switch the stream to a different format than %s", format),
				},
			}
		},
	},
	{
		category: models.CategoryResourceExhaustion,
		severity: models.SeverityCritical,
		patterns: []string{
			"cannot allocate memory",
			"out of memory",
			"not enough memory",
			"too many open files",
			"resource temporarily unavailable",
			"no space left on device",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "System resources exhausted",
				Causes: []string{
					"The system ran out of memory, file descriptors, or disk space while the encoder was running",
				},
				Remedies: []string{
					"Stop unused streams or other heavy processes and retry",
					"Check free memory and disk space on this host",
				},
			}
		},
	},
	{
		category: models.CategoryTimeout,
		severity: models.SeverityWarning,
		patterns: []string{
			"timed out",
			"timeout",
		},
		build: func(ctx Context) models.Diagnosis {
			return models.Diagnosis{
				Title: "Operation timed out",
				Causes: []string{
					fmt.Sprintf("The encoder waited too long for %s or for the capture device to respond", ctx.target()),
				},
				Remedies: []string{
					"Retry the stream; transient network or device stalls usually clear",
					"If timeouts persist, check network latency to the server and the device's health",
				},
			}
		},
	},
	{
		category: models.CategoryProcessCrash,
		severity: models.SeverityCritical,
		patterns: []string{
			"segmentation fault",
			"core dumped",
			"assertion",
			"stack trace",
			"panic:",
		},
		build: func(ctx Context) models.Diagnosis {
			binary := ctx.Binary
			if binary == "" {
				binary = "The encoder"
			}
			return models.Diagnosis{
				Title: "Encoder crashed",
				Causes: []string{
					fmt.Sprintf("%s terminated abnormally while encoding", binary),
				},
				Remedies: []string{
					fmt.Sprintf("Update %s to the latest release", binary),
					"If the crash repeats, try a different encoding format or capture device",
				},
			}
		},
	},
}

// portNumber renders the context port for shell one-liners, with a readable
// placeholder when unknown.
func portNumber(ctx Context) string {
	if ctx.Port > 0 {
		return fmt.Sprintf("%d", ctx.Port)
	}
	return "<port>"
}
