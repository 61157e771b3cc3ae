// Package config resolves and validates the parameters the core consumes,
// generalising the teacher's JSON-driven utils.Config (ReadConfig) and
// mirroring the bounds the upstream C config_t enforces (AM_DEFAULT_K_SIZE,
// AM_MAX_K_SIZE, AM_DEFAULT_BLOOM_FP_RATE, AM_MAX_BLOOM_FP_RATE,
// AM_MAX_BLOOM_MAX_EL).
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/will-rowe/antman/internal/errs"
)

const (
	DefaultKSize       = 21
	DefaultSketchSize  = 128
	DefaultBloomFPRate = 0.001
	DefaultMaxElements = 100000
	DefaultDBDir       = "antman.db"

	MaxKSize       = 31
	MaxBloomFPRate = 0.1
	MaxMaxElements = 1000000

	MinWorkerCount = 2
)

// Raw is the on-disk JSON shape, mirroring the teacher's utils.Config
// field naming (capitalised, JSON-tagged) rather than the C field names.
type Raw struct {
	KSize        int     `json:"kSize"`
	ElementCount uint64  `json:"elementCount"`
	FPRate       float64 `json:"fpRate"`
	WatchDir     string  `json:"watchDir"`
	DBDir        string  `json:"dbDir"`
	WorkerCount  int     `json:"workerCount"`
	LogFile      string  `json:"logFile"`

	// PID mirrors the C config_t's `pid` field (original_source/src/config.c):
	// -1 means "no daemon running", anything else is the PID a prior `shrink`
	// invocation registered. It round-trips through the config file so that
	// `info`/`stop`, run as separate processes, can observe it.
	PID int `json:"pid"`
}

// NoDaemonPID is the sentinel Raw.PID value meaning "not running",
// matching the C config_t's initial `c->pid = -1`.
const NoDaemonPID = -1

// Resolved is the validated parameter record the daemon and CLI consume.
type Resolved struct {
	KSize        int
	ElementCount uint64
	FPRate       float64
	WatchDir     string
	DBDir        string
	WorkerCount  int

	// RunID is a per-process identifier (a random UUID from
	// uuid.NewString) reported in the daemon's start-up log line.
	RunID string
	// PID is registered for out-of-band `stop`/`info` commands; updates
	// to it outside the running daemon are advisory only (see design
	// notes on the shutdown signal).
	PID int
}

// Load reads and validates a Raw config from path.
func Load(path string) (Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolved{}, fmt.Errorf("reading config %s: %w", path, errs.ErrStoreIOError)
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Resolved{}, fmt.Errorf("parsing config %s: %w", path, errs.ErrMetadataParseError)
	}
	return Resolve(raw)
}

// Resolve validates raw against the bounds the core requires and stamps a
// fresh RunID and PID.
func Resolve(raw Raw) (Resolved, error) {
	if raw.KSize < 1 || raw.KSize > MaxKSize {
		return Resolved{}, fmt.Errorf("kSize %d outside [1,%d]: %w", raw.KSize, MaxKSize, errs.ErrConfigInvalid)
	}
	if raw.ElementCount < 1000 || raw.ElementCount > MaxMaxElements {
		return Resolved{}, fmt.Errorf("elementCount %d outside [1000,%d]: %w", raw.ElementCount, MaxMaxElements, errs.ErrConfigInvalid)
	}
	if raw.FPRate <= 0 || raw.FPRate > MaxBloomFPRate {
		return Resolved{}, fmt.Errorf("fpRate %g outside (0,%g]: %w", raw.FPRate, MaxBloomFPRate, errs.ErrConfigInvalid)
	}
	if raw.WatchDir == "" {
		return Resolved{}, fmt.Errorf("watchDir must be set: %w", errs.ErrConfigInvalid)
	}
	if info, err := os.Stat(raw.WatchDir); err != nil || !info.IsDir() {
		return Resolved{}, fmt.Errorf("watchDir %s must exist: %w", raw.WatchDir, errs.ErrConfigInvalid)
	}
	if raw.DBDir == "" {
		return Resolved{}, fmt.Errorf("dbDir must be set: %w", errs.ErrConfigInvalid)
	}
	if raw.WorkerCount < MinWorkerCount {
		return Resolved{}, fmt.Errorf("workerCount %d below minimum %d: %w", raw.WorkerCount, MinWorkerCount, errs.ErrConfigInvalid)
	}

	return Resolved{
		KSize:        raw.KSize,
		ElementCount: raw.ElementCount,
		FPRate:       raw.FPRate,
		WatchDir:     raw.WatchDir,
		DBDir:        raw.DBDir,
		WorkerCount:  raw.WorkerCount,
		RunID:        uuid.NewString(),
		PID:          os.Getpid(),
	}, nil
}

// Default returns a Raw populated with the package's documented defaults,
// for callers generating a starter config file.
func Default(watchDir, dbDir string) Raw {
	return Raw{
		KSize:        DefaultKSize,
		ElementCount: DefaultMaxElements,
		FPRate:       DefaultBloomFPRate,
		WatchDir:     watchDir,
		DBDir:        dbDir,
		WorkerCount:  4,
		PID:          NoDaemonPID,
	}
}

// LoadRaw reads a Raw config from path without validating it, for
// subcommands (info, stop) that only need to inspect PID/log fields and
// must not fail just because, say, the watch directory has since been
// removed.
func LoadRaw(path string) (Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Raw{}, fmt.Errorf("reading config %s: %w", path, errs.ErrStoreIOError)
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Raw{}, fmt.Errorf("parsing config %s: %w", path, errs.ErrMetadataParseError)
	}
	return raw, nil
}

// Save writes raw to path as indented JSON, overwriting any existing file.
func Save(path string, raw Raw) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, errs.ErrStoreIOError)
	}
	return nil
}
