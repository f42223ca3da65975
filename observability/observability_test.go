package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanLoad)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.With(String("engine", "e1")).Warn("page extraction failed",
		Int("page", 3), Error("error", errors.New("bad annots")), Bool("partial", true))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "page extraction failed" || rec["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["engine"] != "e1" || rec["page"] != float64(3) || rec["error"] != "bad annots" || rec["partial"] != true {
		t.Fatalf("unexpected fields: %v", rec)
	}
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record should be dropped, got %q", buf.String())
	}
}

func TestDefaultLogger(t *testing.T) {
	if _, ok := Default().(NopLogger); !ok {
		t.Fatalf("default logger should discard, got %T", Default())
	}
	custom := NewSlogLogger(nil)
	SetDefault(custom)
	defer SetDefault(nil)
	if Default() != custom {
		t.Fatalf("SetDefault did not take effect")
	}
}
