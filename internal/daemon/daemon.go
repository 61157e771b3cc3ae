// Package daemon wires the watcher, worker pool and BIGSI index into a
// long-running process and handles SIGTERM-driven graceful shutdown. The
// double-fork/PID-file mechanics of the teacher's daemonize.c are
// explicitly out of scope here; process supervision is left to the
// environment (systemd, a container runtime, etc.), matching the design's
// carve-out for daemonisation mechanics.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/will-rowe/antman/internal/bigsi"
	"github.com/will-rowe/antman/internal/config"
	"github.com/will-rowe/antman/internal/logx"
	"github.com/will-rowe/antman/internal/pool"
	"github.com/will-rowe/antman/internal/watcher"
)

// Supervisor owns the watcher, the worker pool and the loaded index for
// the lifetime of one daemon run.
type Supervisor struct {
	cfg config.Resolved
	log logx.Sink

	pool *pool.Pool
	w    *watcher.Watcher
	idx  *bigsi.Index

	shuttingDown atomic.Bool
}

// JobHandler processes one watcher.Job, typically by driving the query
// pipeline over the file and logging a report.
type JobHandler func(watcher.Job)

// New opens the index in cfg.DBDir, starts a worker pool sized from cfg, and wires a
// watcher over cfg.WatchDir that submits accepted events as jobs running
// handle.
func New(cfg config.Resolved, log logx.Sink, handle JobHandler) (*Supervisor, error) {
	idx, err := bigsi.Load(cfg.DBDir)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	p, err := pool.Create(cfg.WorkerCount, 0)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	submit := func(j watcher.Job) bool {
		return p.Submit(func() { handle(j) })
	}

	w, err := watcher.New(cfg.WatchDir, submit, log)
	if err != nil {
		p.Shutdown()
		idx.Close()
		return nil, fmt.Errorf("starting watcher: %w", err)
	}

	return &Supervisor{cfg: cfg, log: log, pool: p, w: w, idx: idx}, nil
}

// Index exposes the loaded index for job handlers that need to query it.
func (s *Supervisor) Index() *bigsi.Index { return s.idx }

// Run starts the watcher and parks until SIGTERM (or ctx is cancelled),
// then performs the graceful shutdown sequence: stop the watcher, wait for
// in-flight jobs to drain, destroy the pool, close the index.
func (s *Supervisor) Run(ctx context.Context) error {
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	s.w.Run(watchCtx)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case <-sigc:
	case <-ctx.Done():
	}

	s.shuttingDown.Store(true)
	if s.log != nil {
		s.log.Info(logx.ComponentConfig, "shutting down", nil)
	}

	cancelWatch()
	s.w.Close()
	s.pool.WaitIdle()
	s.pool.Shutdown()
	return s.idx.Close()
}

// ShuttingDown reports whether the supervisor has begun its shutdown
// sequence; job handlers may poll it to bail out of optional, non-critical
// work early.
func (s *Supervisor) ShuttingDown() bool { return s.shuttingDown.Load() }
