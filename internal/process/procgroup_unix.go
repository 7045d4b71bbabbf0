// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup makes the child a process group leader so signals reach
// its whole tree (FFmpeg forks helpers; Icecast launchers fork the server).
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminateGroup sends SIGTERM to the child's process group. A group that
// is already gone is not an error.
func terminateGroup(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

// killGroup sends SIGKILL to the child's process group.
func killGroup(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

// signalGroup signals -pid, which addresses the group because the child was
// spawned with Setpgid and is therefore its own group leader. Falls back to
// the single PID when group signalling is refused.
func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		if err2 := syscall.Kill(pid, sig); err2 != nil && !errors.Is(err2, syscall.ESRCH) {
			return err
		}
	}
	return nil
}

// Alive reports whether a process with the given PID currently exists.
// Signal 0 performs the existence check without delivering anything.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user.
	return errors.Is(err, syscall.EPERM)
}

// exitCodeFromState folds signal deaths into the 128+N shell convention so
// the diagnosis engine sees 137 for SIGKILL and 139 for SIGSEGV instead of
// the -1 reported by ProcessState.ExitCode.
func exitCodeFromState(st *os.ProcessState) int {
	if st == nil {
		return -1
	}
	if ws, ok := st.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return st.ExitCode()
}
