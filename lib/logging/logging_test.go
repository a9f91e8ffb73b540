package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	buf *bytes.Buffer
	h   slog.Handler
}

func newRecordingHandler() *recordingHandler {
	buf := &bytes.Buffer{}
	return &recordingHandler{buf: buf, h: slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: mapLevelNames,
	})}
}

func (r *recordingHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return r.h.Enabled(ctx, lvl)
}
func (r *recordingHandler) Handle(ctx context.Context, rec slog.Record) error {
	return r.h.Handle(ctx, rec)
}
func (r *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{buf: r.buf, h: r.h.WithAttrs(attrs)}
}
func (r *recordingHandler) WithGroup(name string) slog.Handler {
	return &recordingHandler{buf: r.buf, h: r.h.WithGroup(name)}
}

func withCapturedLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	rh := newRecordingHandler()
	SetOutput(rh)
	t.Cleanup(func() {
		SetOutput(slog.NewTextHandler(io.Discard, nil))
	})
	return rh.buf
}

func TestLevelToStringCoversEveryDefinedLevel(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelDebug: "DEBUG",
		LevelNotice:     "NOTICE",
		slog.LevelInfo:  "INFO",
		slog.LevelWarn:  "WARNING",
		slog.LevelError: "ERROR",
		LevelCritical:   "CRITICAL",
		LevelAlert:      "ALERT",
		LevelEmergency:  "EMERGENCY",
	}
	for lvl, want := range cases {
		require.Equal(t, want, levelToString(lvl))
	}
}

func TestNoticefLogsAtNoticeLevel(t *testing.T) {
	buf := withCapturedLog(t)
	Noticef("journal:gns", "reopen cycle %d", 3)
	out := buf.String()
	require.Contains(t, out, "NOTICE")
	require.Contains(t, out, "reopen cycle 3")
	require.Contains(t, out, "journal:gns")
}

func TestErrorfLogsAtErrorLevel(t *testing.T) {
	buf := withCapturedLog(t)
	Errorf("fractal:task", "dropped task %s", "compact")
	out := buf.String()
	require.Contains(t, out, "ERROR")
	require.Contains(t, out, "dropped task compact")
}

func TestLogfIsAnAliasOfInfof(t *testing.T) {
	buf := withCapturedLog(t)
	Logf("subject", "via Logf")
	out := buf.String()
	require.Contains(t, out, "INFO")
	require.Contains(t, out, "via Logf")
}

func TestCriticalfLogsAtCriticalLevel(t *testing.T) {
	buf := withCapturedLog(t)
	Criticalf("sdss:header", "header corrupted")
	require.Contains(t, buf.String(), "CRITICAL")
}
