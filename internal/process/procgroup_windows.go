// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in a new process group so a console
// Ctrl-Break or kill does not propagate to the orchestrator itself.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// terminateGroup is a no-op: Windows has no reliable cross-console graceful
// signal, so termination escalates straight to the forced kill after the
// grace window.
func terminateGroup(pid int) error {
	_ = pid
	return nil
}

// killGroup force-terminates the child process.
func killGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}

// Alive reports whether a process with the given PID currently exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal(0) on Windows probes the handle without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}

// exitCodeFromState returns the raw exit code; Windows reports NTSTATUS
// crash values (e.g. 0xC0000135) directly through GetExitCodeProcess and
// the diagnosis engine matches them as-is.
func exitCodeFromState(st *os.ProcessState) int {
	if st == nil {
		return -1
	}
	return st.ExitCode()
}
