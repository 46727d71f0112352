package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)

	l.Debug("hidden")
	l.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message leaked at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("info message missing: %q", out)
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)

	p := newProgress(l)
	p.done("Resolved 3 extensions")

	out := buf.String()
	if !strings.Contains(out, "Resolved 3 extensions") {
		t.Errorf("message missing: %q", out)
	}
	if !strings.Contains(out, "s)") {
		t.Errorf("duration missing: %q", out)
	}
}

func TestLoggerContext(t *testing.T) {
	l := newLogger(bytes.NewBuffer(nil), log.DebugLevel)
	ctx := withLogger(context.Background(), l)

	if got := loggerFromContext(ctx); got != l {
		t.Error("context logger not returned")
	}
	if got := loggerFromContext(context.Background()); got == nil {
		t.Error("missing logger must fall back to default, not nil")
	}
}
