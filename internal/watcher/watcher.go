// Package watcher adapts filesystem change notifications into jobs
// submitted to a worker pool. It wraps github.com/fsnotify/fsnotify behind
// a narrow interface, as the teacher's C counterpart (watcher.h/.c) wraps
// the native fswatch library, so the core stays testable without a real
// filesystem watch.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/will-rowe/antman/internal/logx"
)

// recognisedExtensions is the case-sensitive set of file extensions that
// trigger a job.
var recognisedExtensions = map[string]bool{
	"fastq": true,
	"fq":    true,
}

// Job describes one file that should be handed to the worker pool.
type Job struct {
	Path string
}

// Submitter accepts a Job and reports whether it was accepted. It is
// satisfied by pool.Pool.Submit.
type Submitter func(Job) bool

// Watcher drains one fsnotify.Watcher, translating Create+IsFile events
// for recognised extensions into Jobs.
type Watcher struct {
	fsw    *fsnotify.Watcher
	submit Submitter
	log    logx.Sink

	wg sync.WaitGroup
}

// New creates a fsnotify watch on dir and wires it to submit.
func New(dir string, submit Submitter, log logx.Sink) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{fsw: fsw, submit: submit, log: log}, nil
}

// Run drains events until ctx is cancelled. It is intended to be run in its
// own goroutine; call Close to join it, rather than sleeping a fixed
// duration before tearing the watcher down.
func (w *Watcher) Run(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handle(ev)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				if w.log != nil {
					w.log.Error(logx.ComponentWatcher, err, "filesystem watch error", nil)
				}
			}
		}
	}()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !Accept(ev) {
		return
	}
	if !isRegularFile(ev.Name) {
		if w.log != nil {
			w.log.Warn(logx.ComponentWatcher, "ignoring non-regular-file event", map[string]interface{}{
				"path": ev.Name,
			})
		}
		return
	}
	if w.submit == nil {
		return
	}
	if !w.submit(Job{Path: ev.Name}) {
		if w.log != nil {
			w.log.Warn(logx.ComponentWatcher, "job submission rejected, dropping event", map[string]interface{}{
				"path": ev.Name,
			})
		}
	}
}

// Accept reports whether ev should become a Job on event shape alone: it
// must be a Create event whose final extension is in {fastq, fq}. fsnotify's
// Event carries no IsFile/IsDir/IsSymLink bitmask (unlike the native fswatch
// flags the teacher's C watcher reads directly), so the IsFile/IsDir/IsSymLink
// discrimination itself happens separately in isRegularFile, which is the
// only part of the check that needs a real filesystem and is therefore kept
// out of this pure, event-only predicate.
func Accept(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create == 0 {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(ev.Name), ".")
	return recognisedExtensions[ext]
}

// isRegularFile reports whether path currently refers to a regular file, as
// opposed to a directory or a symlink, via os.Lstat (not Stat, so a symlink
// is rejected as itself rather than followed and judged by its target).
// This is a best-effort check performed at acceptance time, not an atomic
// guarantee: the path can change between the fsnotify event firing and this
// Lstat call, and between this Lstat and the worker later opening the file.
// A missing path (already removed or renamed away) is treated as rejected
// rather than erroring, since the watcher's only recourse is to drop it.
func isRegularFile(path string) bool {
	fi, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return false
	}
	return fi.Mode().IsRegular()
}

// Close stops the underlying fsnotify watch and waits for Run's goroutine
// to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
