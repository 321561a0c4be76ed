package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentReport, Output: &buf})

	logger.Fields(context.Background(), slog.LevelWarn, "Skipped record",
		NewFields().WithTransaction(4, "expense", "12.00", "Food").WithError(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentReport {
		t.Fatalf("expected component %q, got %v", ComponentReport, entry[FieldComponent])
	}
	if entry[FieldError] != "boom" || entry[FieldCategory] != "Food" {
		t.Fatalf("missing fields in %v", entry)
	}
	if logger.WithComponent(ComponentHTTP).Component() != ComponentHTTP {
		t.Fatalf("expected component override")
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "text", Output: &buf}).With(FieldRequestID, "abc123")

	ctx := NewContext(context.Background(), logger)
	FromContext(ctx).InfoContext(ctx, "inside")

	if !strings.Contains(buf.String(), "request_id=abc123") {
		t.Fatalf("expected request id in log output, got %q", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Logger == nil {
		t.Fatalf("expected default logger")
	}
}

func TestAddSetsArbitraryFields(t *testing.T) {
	f := NewFields().WithUser(7).Add(FieldTxID, int64(3)).Add("queue", "mirror")
	if f[FieldTxID] != int64(3) || f["queue"] != "mirror" || f[FieldUserID] != int64(7) {
		t.Fatalf("unexpected fields %v", f)
	}
	if got := f.Add("queue", "other")["queue"]; got != "other" {
		t.Fatalf("expected Add to overwrite, got %v", got)
	}
}

func TestToSliceIsSorted(t *testing.T) {
	s := NewFields().WithUser(1).WithOperation(OpExport).ToSlice()
	if len(s) != 4 || s[0] != FieldOperation || s[2] != FieldUserID {
		t.Fatalf("unexpected ordering %v", s)
	}
}
