package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/will-rowe/antman/internal/config"
	"github.com/will-rowe/antman/internal/daemon"
	"github.com/will-rowe/antman/internal/logx"
	"github.com/will-rowe/antman/internal/sketch"
	"github.com/will-rowe/antman/internal/watcher"
)

// newShrinkCmd starts the daemon proper: load the reference index, wire the
// watcher and worker pool, and park until SIGTERM. The name is inherited
// unchanged from the upstream CLI (original_source/cmd/main.c's "shrink"
// subcommand), which historically bundled an index-compaction step ahead
// of starting the watch loop; compaction itself is out of scope here.
func newShrinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shrink",
		Short: "start the daemon: load the index and watch for new read files",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := loadOrDefaultRaw(configPath)
			if err != nil {
				return err
			}
			if err := requireNotRunning(raw); err != nil {
				return err
			}

			cfg, err := config.Resolve(raw)
			if err != nil {
				return err
			}

			log := logx.NewDefault()
			var sup *daemon.Supervisor
			handle := func(j watcher.Job) {
				reports, qerr := sketch.QueryFile(j.Path, sup.Index(), cfg.KSize, log)
				if qerr != nil {
					log.Error(logx.ComponentWorker, qerr, "query failed", map[string]interface{}{"path": j.Path})
					return
				}
				for _, r := range reports {
					for _, hit := range r.Hits {
						name, lerr := sup.Index().Lookup(hit.Colour)
						if lerr != nil {
							continue
						}
						log.Info(logx.ComponentWorker, "hit", map[string]interface{}{
							"read": r.ReadName, "reference": name, "kmers_matched": hit.Count, "kmers_seen": r.KmerSeen,
						})
					}
				}
			}

			sup, err = daemon.New(cfg, log, handle)
			if err != nil {
				return fmt.Errorf("starting daemon: %w", err)
			}

			raw.PID = os.Getpid()
			if err := config.Save(configPath, raw); err != nil {
				return err
			}
			defer func() {
				raw.PID = config.NoDaemonPID
				config.Save(configPath, raw)
			}()

			log.Info(logx.ComponentConfig, "daemon started", map[string]interface{}{
				"watchDir": cfg.WatchDir, "dbDir": cfg.DBDir, "pid": os.Getpid(), "runID": cfg.RunID,
			})
			return sup.Run(context.Background())
		},
	}
	return cmd
}
