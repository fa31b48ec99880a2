package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_TextLevelsAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", "text")
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.With("request_id", "123").Warn(ctx, "wrn", "c", 3)

	out := buf.String()
	for _, s := range []string{"level=DEBUG", "msg=dbg", "a=1", "level=WARN", "request_id=123", "c=3"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", "text")

	log.Info(context.Background(), "hidden")
	log.Error(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("expected error line, got:\n%s", out)
	}
}

func TestLogger_JSONIsDefault(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "nonsense", "")

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hello", "k", "v")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" || line["k"] != "v" {
		t.Fatalf("unexpected line: %v", line)
	}
}
