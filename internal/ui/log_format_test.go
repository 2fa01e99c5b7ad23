package ui

import (
	"strings"
	"testing"

	"github.com/five82/matdeck/internal/logtail"
)

func TestFormatLogEntry(t *testing.T) {
	e := logtail.Parse(`{"level":"warn","timestamp":"2025-10-08T21:01:05Z","msg":"batch item failed","op":"Delete","asset_id":"a2"}`)
	got := formatLogEntry(e)
	if !strings.Contains(got, "WARN  batch item failed") {
		t.Fatalf("formatLogEntry = %q", got)
	}
	if !strings.HasSuffix(got, "asset_id=a2 op=Delete") {
		t.Fatalf("fields not appended in key order: %q", got)
	}
}

func TestFormatLogEntry_PlainLinePassesThrough(t *testing.T) {
	e := logtail.Parse("panic: runtime error")
	if got := formatLogEntry(e); got != "panic: runtime error" {
		t.Fatalf("formatLogEntry = %q", got)
	}
}

func TestFormatLogEntry_MissingLevelDefaultsToInfo(t *testing.T) {
	e := logtail.Parse(`{"timestamp":"2025-10-08T21:01:05Z","msg":"hello"}`)
	if got := formatLogEntry(e); !strings.Contains(got, "INFO  hello") {
		t.Fatalf("formatLogEntry = %q", got)
	}
}
