// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

/*
Package models defines data structures for the Emissor application.

This package contains the data models shared across the orchestrator: stream
records and their lifecycle states, discovered audio capture devices, the
streaming server state snapshot, and structured failure diagnoses. It serves
as the single source of truth for data structure definitions and carries no
behavior beyond enum validity checks and small constructors.

Key Components:

  - Stream: A configured broadcast with its ordered format candidates and
    current lifecycle state
  - StreamConfig: Validated creation/update payload for a stream
  - StreamState: Closed lifecycle enum (idle, starting, running, stopping,
    stopped, failed)
  - AudioDevice: A capture device discovered by the capability probe
  - ServerState: Snapshot of the managed Icecast installation and process
  - Diagnosis: Structured, user-facing failure classification with causes
    and remediation steps

Lifecycle Model:

	idle -> starting -> running -> stopping -> stopped
	          |            |
	          +--> failed <+

Starting and running are the only states in which a live encoder process may
exist. Failed is terminal until an explicit start or restart; it always
carries a Diagnosis. Idle and stopped are resting states from which a stream
configuration may be removed.

Thread Safety:

All models are plain data. Ownership and locking live in the packages that
manage them (internal/stream for Stream records, internal/icecast for
ServerState). Snapshots handed to the API or the event bus are copies.

JSON Marshaling:

All models carry snake_case JSON tags with omitempty on optional fields.
Serialization throughout the application uses goccy/go-json.

See Also:

  - internal/stream: Stream supervisor owning Stream records
  - internal/icecast: Server lifecycle manager owning ServerState
  - internal/diagnose: Producer of Diagnosis values
*/
package models
