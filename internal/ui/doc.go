// Package ui provides the terminal console for matdeck.
//
// # Architecture Overview
//
// The console is a Bubble Tea program. Model holds all view state and reads
// asset data from a state.Store snapshot. Mutations go through the Actions
// interface (satisfied by *actions.Service); the UI never talks to the asset
// service directly.
//
// # Package Structure
//
//   - app.go: Model, Update loop, message types, and the Run entry point
//   - keys.go: key bindings and help groups
//   - table.go: asset table, filters, selection set, and batch key handling
//   - detail.go: detail pane with summary, textures, and metadata tree
//   - metadata.go: nested metadata rendered as an indented tree
//   - search.go: live asset search over name, id, and tags
//   - logs.go, log_format.go: tail of matdeck's own JSON log with regex search
//   - modal.go, upload.go: confirm and upload dialogs
//   - header.go, help.go: header, command bar, toasts, and help overlay
//   - theme.go, style_helpers.go: palettes and background-safe rendering
//
// # Views
//
//   - Assets (q): table on the left, detail on the right; tab moves focus
//   - Logs (l): follow mode, "/" search, n/N between matches
//
// # Event Flow
//
//  1. Init starts the UI tick, the spinner, a snapshot fetch, and the
//     notification listener.
//  2. Each tick re-reads the store snapshot; the poller in internal/app keeps
//     the store fresh in the background.
//  3. Key presses that mutate assets produce an actionRequest. Requests run
//     on the program context and report back with actionDoneMsg.
//  4. Service notifications arrive on a channel and become toasts that expire
//     after ToastTTL.
//
// Targets for extract, thumbnail, and delete are the selection set when it is
// non-empty, otherwise the asset under the cursor.
package ui
