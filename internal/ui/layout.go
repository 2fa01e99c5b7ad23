package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth is the threshold for the 30/70 table/detail split.
	LayoutExtraWideWidth = 160
)

// Chrome rows: header, command bar, toast line.
const chromeRows = 3

// Log display limits.
const (
	// LogBufferLimit is the maximum number of log lines kept in memory.
	LogBufferLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default snapshot refresh interval.
	DefaultUIInterval = time.Second

	// ToastTTL is how long a notification stays in the toast line.
	ToastTTL = 5 * time.Second

	// maxToasts bounds the notification history kept for the toast line.
	maxToasts = 20
)
