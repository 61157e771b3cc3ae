package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/will-rowe/antman/internal/config"
)

func newInfoCmd() *cobra.Command {
	var pidOnly bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "report whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.LoadRaw(configPath)
			if err != nil {
				return err
			}
			pid := checkRunningPID(raw)

			if pidOnly {
				fmt.Println(pid)
				return nil
			}
			if pid == config.NoDaemonPID {
				fmt.Println("antman: no daemon running")
				return nil
			}
			fmt.Printf("antman: daemon running on PID %d\n", pid)
			fmt.Printf("  watch directory: %s\n", raw.WatchDir)
			fmt.Printf("  database directory: %s\n", raw.DBDir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pidOnly, "p", "p", false, "print only the PID")
	return cmd
}
