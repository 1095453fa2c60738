package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithAttrsOverridesSameKey(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "text", "info"))
	ctx = WithComponent(ctx, "enrichment.pipeline")
	ctx = WithComponent(ctx, "etl.loader")

	Info(ctx, "batch finished", slog.Int("inserted", 3))

	out := buf.String()
	if strings.Contains(out, "enrichment.pipeline") {
		t.Fatalf("component attr not replaced: %s", out)
	}
	if !strings.Contains(out, "component=etl.loader") || !strings.Contains(out, "inserted=3") {
		t.Fatalf("log line = %s", out)
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "json", "info"))

	Debug(ctx, "date not parseable")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}

	ctx = WithLogger(ctx, New(&buf, "json", "debug"))
	Debug(ctx, "date not parseable")
	if !strings.Contains(buf.String(), `"msg":"date not parseable"`) {
		t.Fatalf("json debug line = %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
