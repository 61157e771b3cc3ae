package main

import (
	"fmt"
	"syscall"

	"github.com/will-rowe/antman/internal/config"
	"github.com/will-rowe/antman/internal/errs"
)

// checkRunningPID reports the PID registered in raw if a process with that
// PID is actually alive, mirroring the upstream checkPID (original_source
// src/main.c): signal 0 probes for existence without delivering anything.
// It returns -1 (config.NoDaemonPID) if no process answers.
func checkRunningPID(raw config.Raw) int {
	if raw.PID <= 0 {
		return config.NoDaemonPID
	}
	if err := syscall.Kill(raw.PID, syscall.Signal(0)); err != nil {
		return config.NoDaemonPID
	}
	return raw.PID
}

// requireNotRunning fails the command if raw's registered PID is a live
// process, matching the "is the daemon already running?" guard every
// mutating subcommand (set, sketch, shrink) in the original performs
// before touching the config.
func requireNotRunning(raw config.Raw) error {
	if pid := checkRunningPID(raw); pid != config.NoDaemonPID {
		return fmt.Errorf("daemon is already running on PID %d: %w", pid, errs.ErrDaemonAlreadyRunning)
	}
	return nil
}
