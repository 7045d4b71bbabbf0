// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package process

import (
	"fmt"
	"net/url"
	"runtime"
	"strconv"

	"github.com/tomtom215/emissor/internal/models"
)

// EncoderSpec carries everything needed to derive one encoder invocation:
// the capture side, the encoding parameters, and the Icecast target.
type EncoderSpec struct {
	DeviceID   string
	Format     models.AudioFormat
	Bitrate    int // kbit/s
	SampleRate int // Hz
	Channels   int

	Host       string
	Port       int
	Mount      string // normalized, leading slash
	SourceUser string // defaults to "source"
	Password   string
}

// codecFor maps a format to its FFmpeg encoder and output muxer.
func codecFor(f models.AudioFormat) (codec, muxer string) {
	switch f {
	case models.FormatMP3:
		return "libmp3lame", "mp3"
	case models.FormatAAC:
		return "aac", "adts"
	case models.FormatOGG:
		return "libvorbis", "ogg"
	case models.FormatOpus:
		return "libopus", "ogg"
	default:
		return string(f), string(f)
	}
}

// BuildEncoderArgs derives the full FFmpeg argument list for the current
// platform. The list is deterministic for a given spec: same input flags,
// same option order, same URL shape every time, so failures reproduce
// exactly from the logged (redacted) command line.
func BuildEncoderArgs(spec EncoderSpec) []string {
	return buildEncoderArgs(spec, runtime.GOOS)
}

// buildEncoderArgs is the platform-parameterized body, separated so every
// platform's argument list is testable from any platform.
func buildEncoderArgs(spec EncoderSpec, goos string) []string {
	args := []string{"-hide_banner", "-nostdin"}

	switch goos {
	case "darwin":
		// avfoundation addresses audio-only inputs as ":<index or name>".
		args = append(args, "-f", "avfoundation", "-i", ":"+spec.DeviceID)
	case "windows":
		args = append(args, "-f", "dshow", "-i", "audio="+spec.DeviceID)
	default:
		args = append(args, "-f", "alsa", "-i", spec.DeviceID)
	}

	codec, muxer := codecFor(spec.Format)
	args = append(args,
		"-vn",
		"-c:a", codec,
		"-b:a", strconv.Itoa(spec.Bitrate)+"k",
		"-ar", strconv.Itoa(spec.SampleRate),
		"-ac", strconv.Itoa(spec.Channels),
		"-content_type", spec.Format.ContentType(),
		"-f", muxer,
		StreamURL(spec),
	)
	return args
}

// StreamURL assembles the icecast:// target. Credentials are URL-escaped;
// anything logging this value must pass it through logging.RedactURL first.
func StreamURL(spec EncoderSpec) string {
	user := spec.SourceUser
	if user == "" {
		user = "source"
	}
	u := url.URL{
		Scheme: "icecast",
		User:   url.UserPassword(user, spec.Password),
		Host:   fmt.Sprintf("%s:%d", spec.Host, spec.Port),
		Path:   spec.Mount,
	}
	return u.String()
}
