package models

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gorm_logger "gorm.io/gorm/logger"
)

// SlowQueryThreshold is the duration after which queries are logged as slow.
const SlowQueryThreshold = 200 * time.Millisecond

// logger writes gorm's output to zerolog. Queries run with a context that
// carries a zerolog logger are written to that one, so they share the
// fields of the payroll run that issued them.
type logger struct {
	Logger zerolog.Logger
	level  gorm_logger.LogLevel
}

func newLogger(l zerolog.Logger) *logger {
	return &logger{Logger: l, level: gorm_logger.Warn}
}

func (l *logger) LogMode(level gorm_logger.LogLevel) gorm_logger.Interface {
	return &logger{Logger: l.Logger, level: level}
}

func (l *logger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gorm_logger.Info {
		l.from(ctx).Info().Msgf(s, args...)
	}
}

func (l *logger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gorm_logger.Warn {
		l.from(ctx).Warn().Msgf(s, args...)
	}
}

func (l *logger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gorm_logger.Error {
		l.from(ctx).Error().Msgf(s, args...)
	}
}

func (l *logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gorm_logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	event := func(e *zerolog.Event) *zerolog.Event {
		return e.Str("sql", sql).Int64("rows", rows).Dur("duration", elapsed)
	}

	log := l.from(ctx)
	switch {
	case err != nil && domainError(err):
		event(log.Debug()).Err(err).Msg("[GORM] query rejected")
	case err != nil && l.level >= gorm_logger.Error:
		event(log.Error()).Err(err).Msg("[GORM] query error")
	case elapsed > SlowQueryThreshold && l.level >= gorm_logger.Warn:
		event(log.Warn()).Msg("[GORM] slow query")
	default:
		event(log.Trace()).Msg("[GORM] query")
	}
}

func (l *logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
			return ctxLogger
		}
	}
	return &l.Logger
}

// domainError reports whether err is an expected outcome that the callers
// handle, not a failure of the database.
func domainError(err error) bool {
	return errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrPeriodState) ||
		errors.Is(err, ErrDeductionOverdrawn)
}
