//nolint:goprintffuncname
package sql

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LoggerAdaptorConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// loggerAdaptor routes gorm logging into logrus.
type loggerAdaptor struct {
	logger *logrus.Logger
	config LoggerAdaptorConfig
}

//nolint:ireturn
func NewLoggerAdaptor(l *logrus.Logger, cfg LoggerAdaptorConfig) logger.Interface {
	return &loggerAdaptor{logger: l, config: cfg}
}

// LogMode is a no-op, the level is owned by the logrus logger.
//
//nolint:ireturn
func (l *loggerAdaptor) LogMode(_ logger.LogLevel) logger.Interface {
	return l
}

const callerSearchDepth = 15

// entry attaches the first caller outside of gorm, which is the store method
// that issued the query.
func (l *loggerAdaptor) entry(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)

	pcs := make([]uintptr, callerSearchDepth)
	depth := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:depth])

	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "gorm.io/") &&
			!strings.HasSuffix(frame.Function, "loggerAdaptor.Trace") {
			return entry.WithField("caller", fmt.Sprintf("%s:%d", frame.Function, frame.Line))
		}
		if !more {
			return entry
		}
	}
}

func (l *loggerAdaptor) Info(ctx context.Context, format string, args ...interface{}) {
	l.entry(ctx).Infof(format, args...)
}

func (l *loggerAdaptor) Warn(ctx context.Context, format string, args ...interface{}) {
	l.entry(ctx).Warnf(format, args...)
}

func (l *loggerAdaptor) Error(ctx context.Context, format string, args ...interface{}) {
	l.entry(ctx).Errorf(format, args...)
}

// Trace logs the statement, the affected rows and the elapsed time.
func (l *loggerAdaptor) Trace(
	ctx context.Context,
	begin time.Time,
	function func() (sql string, rowsAffected int64),
	err error,
) {
	elapsed := time.Since(begin)

	withSQL := func() *logrus.Entry {
		sql, rows := function()
		fields := logrus.Fields{
			"elapsed": elapsed.Round(time.Microsecond).String(),
			"sql":     sql,
			"rows":    rows,
		}
		if rows == -1 {
			fields["rows"] = "-"
		}

		return l.entry(ctx).WithFields(fields)
	}

	switch {
	case err != nil &&
		l.logger.IsLevelEnabled(logrus.ErrorLevel) &&
		!(errors.Is(err, gorm.ErrRecordNotFound) && l.config.IgnoreRecordNotFoundError):
		withSQL().WithError(err).Error("SQL error")
	case l.config.SlowThreshold != 0 &&
		elapsed > l.config.SlowThreshold &&
		l.logger.IsLevelEnabled(logrus.WarnLevel):
		withSQL().Warnf("SLOW SQL >= %v", l.config.SlowThreshold)
	case l.logger.IsLevelEnabled(logrus.TraceLevel):
		withSQL().Trace("SQL trace")
	}
}
