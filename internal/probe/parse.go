// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package probe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tomtom215/emissor/internal/models"
)

// Parsers for the platform enumeration tools. Each returns the devices plus
// a recognized flag: true when the output contained the tool's listing
// section, so an empty device list can be told apart from garbled output.
// The ffmpeg-based listers exit nonzero after printing the list, which is
// why recognition cannot ride on the exit code.

// alsaCaptureLine matches `card 1: CODEC [USB Audio CODEC], device 0: USB Audio [USB Audio]`.
var alsaCaptureLine = regexp.MustCompile(`^card (\d+): \S+ \[(.+?)\], device (\d+): .+?(?: \[.+?\])?$`)

// parseALSADevices reads `arecord -l` output. Device IDs are the ALSA
// hw:card,device addresses FFmpeg's alsa input accepts directly.
func parseALSADevices(out string) ([]models.AudioDevice, bool) {
	var devices []models.AudioDevice
	recognized := false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "List of CAPTURE Hardware Devices") ||
			strings.Contains(line, "no soundcards found") {
			recognized = true
			continue
		}
		m := alsaCaptureLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		recognized = true
		devices = append(devices, models.AudioDevice{
			ID:        fmt.Sprintf("hw:%s,%s", m[1], m[3]),
			Name:      m[2],
			Available: true,
		})
	}
	return devices, recognized
}

// avfoundationEntry matches `[AVFoundation indev @ 0x...] [1] BlackHole 2ch`.
var avfoundationEntry = regexp.MustCompile(`\[(\d+)\]\s+(.+)$`)

// parseAVFoundationDevices reads the stderr of
// `ffmpeg -f avfoundation -list_devices true -i ""`. Only the audio section
// is consumed; device IDs are the avfoundation audio indices.
func parseAVFoundationDevices(out string) ([]models.AudioDevice, bool) {
	var devices []models.AudioDevice
	recognized := false
	inAudio := false

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "AVFoundation audio devices"):
			recognized = true
			inAudio = true
			continue
		case strings.Contains(line, "AVFoundation video devices"):
			inAudio = false
			continue
		}
		if !inAudio {
			continue
		}
		m := avfoundationEntry.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		devices = append(devices, models.AudioDevice{
			ID:        m[1],
			Name:      strings.TrimSpace(m[2]),
			Available: true,
		})
	}
	return devices, recognized
}

// dshowQuotedName matches the quoted device name in a dshow listing line.
var dshowQuotedName = regexp.MustCompile(`"([^"]+)"`)

// parseDShowDevices reads the stderr of
// `ffmpeg -list_devices true -f dshow -i dummy`. Both listing layouts are
// handled: the sectioned form ("DirectShow audio devices" header followed
// by quoted names) and the newer single list with an `(audio)` suffix per
// line. DirectShow addresses devices by display name, so ID equals Name.
func parseDShowDevices(out string) ([]models.AudioDevice, bool) {
	var devices []models.AudioDevice
	recognized := false
	inAudio := false

	appendDevice := func(name string) {
		devices = append(devices, models.AudioDevice{
			ID:        name,
			Name:      name,
			Available: true,
		})
	}

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "DirectShow audio devices"):
			recognized = true
			inAudio = true
			continue
		case strings.Contains(line, "DirectShow video devices"):
			recognized = true
			inAudio = false
			continue
		}
		if strings.Contains(line, "Alternative name") {
			continue
		}

		m := dshowQuotedName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch {
		case strings.Contains(line, "(audio)"):
			recognized = true
			appendDevice(m[1])
		case strings.Contains(line, "(video)"):
			// Newer listers tag every entry; a video-only machine still
			// proves the listing ran.
			recognized = true
		case inAudio:
			appendDevice(m[1])
		}
	}
	return devices, recognized
}

// parseDeviceList dispatches to the platform parser.
func parseDeviceList(out, goos string) ([]models.AudioDevice, bool) {
	switch goos {
	case "darwin":
		return parseAVFoundationDevices(out)
	case "windows":
		return parseDShowDevices(out)
	default:
		return parseALSADevices(out)
	}
}
