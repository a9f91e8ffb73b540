// Package logging is the engine-wide structured logging facade: a small
// set of package-level functions (Debugf/Infof/Noticef/Errorf/...)
// backed by log/slog, with extra levels the engine needs that slog
// doesn't define out of the box.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Extra levels layered on top of slog's Debug/Info/Warn/Error, following
// the syslog-style NOTICE/CRITICAL/ALERT/EMERGENCY spacing.
const (
	LevelNotice   = slog.Level(2)
	LevelCritical = slog.Level(10)
	LevelAlert    = slog.Level(14)
	LevelEmergency = slog.Level(18)
)

func levelToString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DEBUG"
	case LevelNotice:
		return "NOTICE"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARNING"
	case slog.LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	case LevelAlert:
		return "ALERT"
	case LevelEmergency:
		return "EMERGENCY"
	default:
		return l.String()
	}
}

func mapLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelToString(lvl))
		}
	}
	return a
}

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level:       slog.LevelDebug,
	ReplaceAttr: mapLevelNames,
}))

// SetOutput redirects every subsequent log call to the handler h,
// used by tests that capture log output.
func SetOutput(h slog.Handler) {
	logger = slog.New(h)
}

func log(level slog.Level, subject string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.LogAttrs(context.Background(), level, msg, slog.String("subject", subject))
}

// Debugf logs a debug-level message scoped to subject (a space, model, or
// journal path).
func Debugf(subject, format string, args ...any) { log(slog.LevelDebug, subject, format, args...) }

// Infof logs an info-level message.
func Infof(subject, format string, args ...any) { log(slog.LevelInfo, subject, format, args...) }

// Noticef logs a notice-level message (above info, below warning).
func Noticef(subject, format string, args ...any) { log(LevelNotice, subject, format, args...) }

// Logf is an alias of Infof.
func Logf(subject, format string, args ...any) { Infof(subject, format, args...) }

// Errorf logs an error-level message.
func Errorf(subject, format string, args ...any) { log(slog.LevelError, subject, format, args...) }

// Criticalf logs a critical-level message (fatal-to-boot conditions).
func Criticalf(subject, format string, args ...any) { log(LevelCritical, subject, format, args...) }
