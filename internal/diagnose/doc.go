// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package diagnose classifies encoder and Icecast process failures into
// structured, user-facing diagnoses: a category from the closed taxonomy in
// internal/models, a short title, and ordered cause/remediation lists built
// from the actual failure context (real port numbers, real device names).
//
// Classification Pipeline:
//
//	output + exit code -> exit-code table -> matcher table -> fallback rules
//	                        |                  |
//	                        v                  v
//	                  signal deaths,     ordered (patterns, builder)
//	                  loader failures    pairs, first match wins
//
// The exit-code table is consulted first: well-known crash and refusal codes
// (Windows loader NTSTATUS values, the shell's 126/127 refusals, signal
// deaths) identify the failure on their own, so they short-circuit before any
// text matching. Everything else runs through an ordered matcher table where
// each entry is a set of case-insensitive substrings plus a builder that
// turns the match into situational advice. Order encodes priority: transport
// and port errors outrank credential errors, which outrank mount errors,
// which outrank device errors, which outrank codec and parameter errors,
// with generic resource and timeout patterns last. The table is compiled
// into an Aho-Corasick signature index at init, so a diagnosis scans the
// output tail once regardless of how many patterns the table holds.
//
// When nothing matches, output with no recognizable error text at all is
// treated as an unreported connection failure (encoders killed by a dropped
// server connection often die silently), while output containing error text
// we cannot place is classified unknown with the raw evidence preserved.
//
// Diagnose is a pure function: no I/O, no clocks beyond the creation
// timestamp, no shared state. The same (output, exitCode, Context) triple
// always yields the same category.
//
// See Also:
//   - internal/models: the Diagnosis type and closed category taxonomy
//   - internal/stream: attaches diagnoses to failed streams
//   - internal/icecast: attaches diagnoses to failed server transitions
package diagnose
