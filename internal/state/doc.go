// Package state holds the client-side asset cache shared by the console, the
// CLI and the background poller.
//
// # Overview
//
// Store is the single owner of the cached asset collection. Network I/O and
// payload normalization live elsewhere (see package actions); callers apply
// the result of a finished request to the Store with a synchronous mutation.
// The one exception is LoadAssets, which performs a bulk reload through the
// Fetcher injected at construction.
//
//	Actions / Poller:                UI:
//	┌──────────────────────┐        ┌──────────────────────┐
//	│ client call          │        │                      │
//	│ normalize            │        │                      │
//	│      ↓               │        │                      │
//	│ store.AddAsset()     │───────→│ store.Snapshot()     │
//	│ store.UpdateAsset()  │ (lock) │      ↓               │
//	│ store.RemoveAssets() │        │ render               │
//	└──────────────────────┘        └──────────────────────┘
//
// # State
//
//   - assets: ordered, newest first, ids unique
//   - cursor: the single focused asset (SelectAsset / ClearSelectedAsset)
//   - selection set: ids ticked for batch operations
//   - load status: in-flight count, user-facing error, failure streak
//
// The selection set and cursor never refer to an id outside the collection.
// Every removal and every successful reload prunes them.
//
// # Load Semantics
//
//	// Success: replace wholesale
//	store.LoadAssets(ctx)
//	→ Assets = fetched (deduped by id, first occurrence wins)
//	→ selection and cursor pruned
//	→ Error = "", ConsecutiveFailures = 0
//
//	// Failure: keep what we had
//	store.LoadAssets(ctx)
//	→ Assets = <unchanged>
//	→ Error = LoadErrorMessage
//	→ ConsecutiveFailures++
//
// Loads may overlap. Each applies its result atomically and the last one to
// finish wins. IsLoading stays true while any load is in flight.
//
// # Merge Semantics
//
// UpdateAsset merges an asset.Patch. Progress flags only move forward, so a
// stale response can never hide a finished extraction. Other fields are
// last-write-wins with no version check.
//
// # Concurrency Model
//
// Mutations take the write lock and run to completion. Snapshot, GetAssetByID
// and GetSelectedAsset take the read lock and return deep copies, so callers
// may keep or modify what they receive. The lock is never held across a fetch.
//
// The zero Store is ready to use; NewStore only adds a Fetcher and logger.
package state
