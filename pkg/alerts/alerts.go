// Package alerts implements an alert sink that writes alerts to the log.
package alerts

import (
	"context"
	"sync"

	"github.com/paycycle/backend/pkg/metrics"
	"github.com/paycycle/backend/pkg/models"
	"github.com/rs/zerolog"
	"github.com/ryanuber/go-glob"
)

// LogSink writes alerts as structured log events. Alert kinds matching one
// of the silence patterns are counted but not logged.
type LogSink struct {
	logger  zerolog.Logger
	silence []string

	mu      sync.Mutex
	emitted int
}

// NewLogSink returns a LogSink. Silence patterns use '*' as wildcard,
// e.g. "payroll.compliance*".
func NewLogSink(logger zerolog.Logger, silence ...string) *LogSink {
	return &LogSink{
		logger:  logger,
		silence: silence,
	}
}

// Silenced reports whether alerts of the kind are silenced.
func (s *LogSink) Silenced(kind string) bool {
	for _, pattern := range s.silence {
		if glob.Glob(pattern, kind) {
			return true
		}
	}
	return false
}

// Emit implements validation.AlertSink.
func (s *LogSink) Emit(_ context.Context, kind string, severity models.Severity, message string, fields map[string]any) {
	metrics.AlertsTotal.WithLabelValues(kind, string(severity)).Inc()

	if s.Silenced(kind) {
		return
	}

	s.mu.Lock()
	s.emitted++
	s.mu.Unlock()

	s.logger.WithLevel(level(severity)).
		Str("alert", kind).
		Str("severity", string(severity)).
		Fields(fields).
		Msg(message)
}

// Emitted returns the number of alerts written to the log.
func (s *LogSink) Emitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

func level(severity models.Severity) zerolog.Level {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return zerolog.ErrorLevel
	case models.SeverityMedium:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
