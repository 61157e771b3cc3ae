// Package logx provides the structured logging sink the core components
// emit through. Levels are {live, info, warn, error}; every line carries a
// component tag, matching the design's logging sink contract.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Component names used as the "component" field on every log line.
const (
	ComponentWatcher = "watcher"
	ComponentWorker  = "worker"
	ComponentBigsi   = "bigsi"
	ComponentSketch  = "sketch"
	ComponentConfig  = "config"
)

// Sink is the abstract structured-logging interface the core depends on,
// so that components under test can be wired to a no-op or buffering sink
// without pulling in zerolog's concrete type.
type Sink interface {
	Live(component, msg string, fields map[string]interface{})
	Info(component, msg string, fields map[string]interface{})
	Warn(component, msg string, fields map[string]interface{})
	Error(component string, err error, msg string, fields map[string]interface{})
}

// ZerologSink is a Sink backed by github.com/rs/zerolog.
type ZerologSink struct {
	logger zerolog.Logger
}

// New builds a ZerologSink writing leveled, component-tagged JSON lines to
// w (typically os.Stderr).
func New(w io.Writer) *ZerologSink {
	return &ZerologSink{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// NewDefault is New(os.Stderr).
func NewDefault() *ZerologSink { return New(os.Stderr) }

func withFields(e *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// Live logs a high-frequency, per-record message (e.g. per-k-mer
// diagnostics) at zerolog's Trace level.
func (s *ZerologSink) Live(component, msg string, fields map[string]interface{}) {
	withFields(s.logger.Trace().Str("component", component), fields).Msg(msg)
}

func (s *ZerologSink) Info(component, msg string, fields map[string]interface{}) {
	withFields(s.logger.Info().Str("component", component), fields).Msg(msg)
}

func (s *ZerologSink) Warn(component, msg string, fields map[string]interface{}) {
	withFields(s.logger.Warn().Str("component", component), fields).Msg(msg)
}

func (s *ZerologSink) Error(component string, err error, msg string, fields map[string]interface{}) {
	withFields(s.logger.Error().Str("component", component).Err(err), fields).Msg(msg)
}

// NopSink discards everything; useful for tests that don't care about log
// output.
type NopSink struct{}

func (NopSink) Live(string, string, map[string]interface{})         {}
func (NopSink) Info(string, string, map[string]interface{})         {}
func (NopSink) Warn(string, string, map[string]interface{})         {}
func (NopSink) Error(string, error, string, map[string]interface{}) {}
