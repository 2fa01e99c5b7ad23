package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/matdeck/internal/asset"
)

// LoadErrorMessage is shown whenever a bulk load fails, whatever the cause.
const LoadErrorMessage = "Failed to load assets. Please confirm the backend service is running."

// Fetcher retrieves the complete, normalized asset collection.
type Fetcher interface {
	FetchAssets(ctx context.Context) ([]asset.Asset, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]asset.Asset, error)

// FetchAssets calls f.
func (f FetcherFunc) FetchAssets(ctx context.Context) ([]asset.Asset, error) {
	return f(ctx)
}

// Snapshot is an immutable view of the cache handed to readers.
type Snapshot struct {
	Assets              []asset.Asset
	SelectedAssetID     string   // single-item cursor, "" when unset
	SelectedAssetIDs    []string // multi-select set in collection order
	IsLoading           bool
	Error               string // user-facing load error, "" when healthy
	LastError           error
	LastUpdated         time.Time
	ConsecutiveFailures int
	Revision            uint64 // bumps on every mutation
}

// IsOffline returns true when the service has been unreachable for multiple
// loads in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// IsSelected reports whether id is in the multi-select set.
func (s Snapshot) IsSelected(id string) bool {
	for _, sel := range s.SelectedAssetIDs {
		if sel == id {
			return true
		}
	}
	return false
}

// Find looks up an asset by id.
func (s Snapshot) Find(id string) (asset.Asset, bool) {
	for _, a := range s.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return asset.Asset{}, false
}

// Store is the asset cache: an ordered collection (newest first), a single
// cursor, a multi-select set, and load status. All mutations are synchronous
// and local; only LoadAssets performs I/O, through the injected Fetcher.
type Store struct {
	mu sync.RWMutex

	fetcher Fetcher
	log     *zap.Logger

	assets   []asset.Asset
	cursor   string
	selected map[string]struct{}

	inflight    int
	errMsg      string
	lastErr     error
	lastUpdated time.Time
	failures    int
	revision    uint64
}

// NewStore builds an empty cache. fetcher may be nil when LoadAssets is never
// called, e.g. in one-shot CLI commands.
func NewStore(fetcher Fetcher, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		fetcher:  fetcher,
		log:      log,
		selected: make(map[string]struct{}),
	}
}

// SetFetcher swaps the source used by LoadAssets.
func (s *Store) SetFetcher(f Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetcher = f
}

// LoadAssets replaces the collection with a fresh fetch. On failure the
// previous collection is kept and Error is set to LoadErrorMessage.
// Concurrent loads are allowed; each result is applied atomically and the
// last one to resolve wins.
func (s *Store) LoadAssets(ctx context.Context) error {
	s.mu.Lock()
	s.init()
	s.errMsg = ""
	s.lastErr = nil
	s.inflight++
	s.revision++
	fetcher := s.fetcher
	s.mu.Unlock()

	var (
		items []asset.Asset
		err   error
	)
	if fetcher == nil {
		err = errors.New("no asset fetcher configured")
	} else {
		items, err = fetcher.FetchAssets(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.revision++
	s.lastUpdated = time.Now()
	if err != nil {
		s.errMsg = LoadErrorMessage
		s.lastErr = err
		s.failures++
		s.log.Warn("asset load failed", zap.Error(err), zap.Int("consecutive_failures", s.failures))
		return fmt.Errorf("load assets: %w", err)
	}

	s.assets = dedupe(items)
	s.pruneLocked()
	s.errMsg = ""
	s.lastErr = nil
	s.failures = 0
	s.log.Debug("assets loaded", zap.Int("count", len(s.assets)))
	return nil
}

// AddAsset inserts a at the front. An existing record with the same id is
// replaced so ids stay unique.
func (s *Store) AddAsset(a asset.Asset) {
	if a.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	if i := s.indexLocked(a.ID); i >= 0 {
		s.assets = append(s.assets[:i], s.assets[i+1:]...)
	}
	s.assets = append([]asset.Asset{a.Clone()}, s.assets...)
	s.revision++
}

// UpdateAsset merges patch into the asset with id. Unknown ids are ignored.
func (s *Store) UpdateAsset(id string, patch asset.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.assets[i] = patch.Apply(s.assets[i])
	s.revision++
	return true
}

// RemoveAsset drops id from the collection, the selection set and the cursor.
func (s *Store) RemoveAsset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	if i := s.indexLocked(id); i >= 0 {
		s.assets = append(s.assets[:i], s.assets[i+1:]...)
	}
	delete(s.selected, id)
	if s.cursor == id {
		s.cursor = ""
	}
	s.revision++
}

// RemoveAssets drops every id in one pass and clears the whole selection set.
func (s *Store) RemoveAssets(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.assets[:0]
	for _, a := range s.assets {
		if _, gone := drop[a.ID]; !gone {
			kept = append(kept, a)
		}
	}
	s.assets = kept
	s.selected = make(map[string]struct{})
	if _, gone := drop[s.cursor]; gone {
		s.cursor = ""
	}
	s.revision++
}

// ToggleSelectAsset flips id's membership in the selection set. Ids not in
// the collection are ignored.
func (s *Store) ToggleSelectAsset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	if s.indexLocked(id) < 0 {
		return
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	s.revision++
}

// SelectAllAssets puts every cached id in the selection set.
func (s *Store) SelectAllAssets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{}, len(s.assets))
	for _, a := range s.assets {
		s.selected[a.ID] = struct{}{}
	}
	s.revision++
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
	s.revision++
}

// SelectAsset moves the single-item cursor to id. Unknown ids clear it.
func (s *Store) SelectAsset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		s.cursor = ""
	} else {
		s.cursor = id
	}
	s.revision++
}

// ClearSelectedAsset unsets the cursor.
func (s *Store) ClearSelectedAsset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = ""
	s.revision++
}

// GetAssetByID returns a copy of the asset with id.
func (s *Store) GetAssetByID(id string) (asset.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.assets[i].Clone(), true
	}
	return asset.Asset{}, false
}

// GetSelectedAsset returns the asset under the cursor.
func (s *Store) GetSelectedAsset() (asset.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor == "" {
		return asset.Asset{}, false
	}
	if i := s.indexLocked(s.cursor); i >= 0 {
		return s.assets[i].Clone(), true
	}
	return asset.Asset{}, false
}

// SelectedIDs returns the selection set in collection order.
func (s *Store) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedLocked()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Assets:              cloneAssets(s.assets),
		SelectedAssetID:     s.cursor,
		SelectedAssetIDs:    s.selectedLocked(),
		IsLoading:           s.inflight > 0,
		Error:               s.errMsg,
		LastUpdated:         s.lastUpdated,
		ConsecutiveFailures: s.failures,
		Revision:            s.revision,
	}
	if s.lastErr != nil {
		snap.LastError = fmt.Errorf("%w", s.lastErr)
	}
	return snap
}

func (s *Store) init() {
	if s.selected == nil {
		s.selected = make(map[string]struct{})
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.assets {
		if s.assets[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) selectedLocked() []string {
	if len(s.selected) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.selected))
	for _, a := range s.assets {
		if _, ok := s.selected[a.ID]; ok {
			out = append(out, a.ID)
		}
	}
	return out
}

// pruneLocked drops selection entries and the cursor when their asset is gone.
func (s *Store) pruneLocked() {
	present := make(map[string]struct{}, len(s.assets))
	for _, a := range s.assets {
		present[a.ID] = struct{}{}
	}
	for id := range s.selected {
		if _, ok := present[id]; !ok {
			delete(s.selected, id)
		}
	}
	if _, ok := present[s.cursor]; !ok {
		s.cursor = ""
	}
}

func dedupe(items []asset.Asset) []asset.Asset {
	out := make([]asset.Asset, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, a := range items {
		if a.ID == "" {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a.Clone())
	}
	return out
}

func cloneAssets(items []asset.Asset) []asset.Asset {
	if len(items) == 0 {
		return nil
	}
	dup := make([]asset.Asset, len(items))
	for i, a := range items {
		dup[i] = a.Clone()
	}
	return dup
}
