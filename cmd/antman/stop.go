package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/will-rowe/antman/internal/config"
	"github.com/will-rowe/antman/internal/errs"
)

func newStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "signal a running daemon to shut down gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.LoadRaw(configPath)
			if err != nil {
				return err
			}
			pid := checkRunningPID(raw)
			if pid == config.NoDaemonPID {
				return fmt.Errorf("can't stop a daemon that is not running: %w", errs.ErrDaemonNotRunning)
			}
			if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
				return fmt.Errorf("signalling PID %d: %w", pid, err)
			}
			raw.PID = config.NoDaemonPID
			return config.Save(configPath, raw)
		},
	}
	return cmd
}
