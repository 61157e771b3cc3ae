package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/will-rowe/antman/internal/bigsi"
	"github.com/will-rowe/antman/internal/bloom"
	"github.com/will-rowe/antman/internal/config"
	"github.com/will-rowe/antman/internal/logx"
	"github.com/will-rowe/antman/internal/watcher"
)

func buildFlushedIndex(t *testing.T, dir string) {
	t.Helper()
	m := uint64(2000)
	k := bloom.KForM(m, 2000)
	b, err := bigsi.NewBuilder(m, k, 10)
	if err != nil {
		t.Fatal(err)
	}
	f, err := bloom.NewMK(m, k)
	if err != nil {
		t.Fatal(err)
	}
	hashes := make([]uint64, k)
	for i := range hashes {
		hashes[i] = uint64(i + 1)
	}
	if err := f.Add(hashes); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(map[string]*bloom.Filter{"ref1": f}, 1); err != nil {
		t.Fatal(err)
	}
	idx, err := b.Index()
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Flush(dir); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) config.Resolved {
	t.Helper()
	watchDir := t.TempDir()
	dbDir := t.TempDir()
	buildFlushedIndex(t, dbDir)
	raw := config.Raw{
		KSize:        21,
		ElementCount: 2000,
		FPRate:       0.01,
		WatchDir:     watchDir,
		DBDir:        dbDir,
		WorkerCount:  2,
	}
	resolved, err := config.Resolve(raw)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func TestNewWiresWatcherPoolAndIndex(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, logx.NopSink{}, func(watcher.Job) {})
	if err != nil {
		t.Fatal(err)
	}
	defer s.idx.Close()
	defer s.pool.Shutdown()
	defer s.w.Close()

	if s.Index() == nil {
		t.Fatal("expected a non-nil index")
	}
	if s.Index().NumColours() != 1 {
		t.Fatalf("NumColours = %d, want 1", s.Index().NumColours())
	}
}

func TestRunDeliversWatchedFileToHandler(t *testing.T) {
	cfg := testConfig(t)

	var mu sync.Mutex
	var handled []string
	handle := func(j watcher.Job) {
		mu.Lock()
		handled = append(handled, j.Path)
		mu.Unlock()
	}

	s, err := New(cfg, logx.NopSink{}, handle)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	path := filepath.Join(cfg.WatchDir, "reads.fastq")
	if err := os.WriteFile(path, []byte(">a\nACGT\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(handled)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for watcher to deliver the job")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != path {
		t.Fatalf("handled = %v, want [%s]", handled, path)
	}
}

func TestShuttingDownFlagFlips(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, logx.NopSink{}, func(watcher.Job) {})
	if err != nil {
		t.Fatal(err)
	}

	var observed atomic.Bool
	if s.ShuttingDown() {
		t.Fatal("should not be shutting down before Run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	observed.Store(s.ShuttingDown())
	if !observed.Load() {
		t.Fatal("expected ShuttingDown to be true after Run returns")
	}
}
