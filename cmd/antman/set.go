package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/will-rowe/antman/internal/config"
)

func newSetCmd() *cobra.Command {
	var (
		logFile  string
		watchDir string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "update persisted config fields (log file, watch directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := loadOrDefaultRaw(configPath)
			if err != nil {
				return err
			}
			if err := requireNotRunning(raw); err != nil {
				return err
			}

			changed := false
			if cmd.Flags().Changed("l") {
				raw.LogFile = logFile
				changed = true
			}
			if cmd.Flags().Changed("w") {
				raw.WatchDir = watchDir
				changed = true
			}
			if !changed {
				return fmt.Errorf("no options passed to set, nothing to do")
			}

			return config.Save(configPath, raw)
		},
	}

	cmd.Flags().StringVarP(&logFile, "l", "l", "", "log file path")
	cmd.Flags().StringVarP(&watchDir, "w", "w", "", "watch directory")
	return cmd
}
