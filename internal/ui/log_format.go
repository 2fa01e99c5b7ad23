package ui

import (
	"strings"
	"time"

	"github.com/five82/matdeck/internal/logtail"
)

// formatLogEntry renders "2025-10-08 21:01:05 WARN batch item failed  op=Delete".
func formatLogEntry(e logtail.Entry) string {
	if e.Level == "" && e.Time.IsZero() {
		return e.Message
	}
	parts := make([]string, 0, 4)
	if !e.Time.IsZero() {
		parts = append(parts, e.Time.In(time.Local).Format("2006-01-02 15:04:05"))
	}
	level := strings.ToUpper(e.Level)
	if level == "" {
		level = "INFO"
	}
	parts = append(parts, padRight(level, 5))
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	line := strings.Join(parts, " ")
	if fields := e.FieldPairs(); len(fields) > 0 {
		line += "  " + strings.Join(fields, " ")
	}
	return line
}
