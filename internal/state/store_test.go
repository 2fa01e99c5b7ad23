package state

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/five82/matdeck/internal/asset"
)

func mk(id string) asset.Asset {
	return asset.Asset{
		ID:       id,
		Name:     "asset " + id,
		FileType: asset.FileTypeSBS,
		Tags:     []string{},
		Metadata: map[string]any{},
		Textures: []asset.Texture{},
	}
}

func ids(items []asset.Asset) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func staticFetcher(items ...asset.Asset) Fetcher {
	return FetcherFunc(func(context.Context) ([]asset.Asset, error) {
		return items, nil
	})
}

func TestStore_ZeroValueIsUsable(t *testing.T) {
	var s Store
	s.AddAsset(mk("a"))
	s.ToggleSelectAsset("a")
	s.RemoveAssets([]string{"a"})
	if err := s.LoadAssets(context.Background()); err == nil {
		t.Fatalf("LoadAssets without fetcher should fail")
	}
	snap := s.Snapshot()
	if len(snap.Assets) != 0 || len(snap.SelectedAssetIDs) != 0 {
		t.Fatalf("snapshot = %+v, want empty", snap)
	}
}

func TestStore_AddInsertsAtFrontAndReplacesDuplicates(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("a"))
	s.AddAsset(mk("b"))
	updated := mk("a")
	updated.Name = "renamed"
	s.AddAsset(updated)

	snap := s.Snapshot()
	if got := ids(snap.Assets); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("order = %v, want [a b]", got)
	}
	if snap.Assets[0].Name != "renamed" {
		t.Fatalf("duplicate add did not replace: %+v", snap.Assets[0])
	}
}

func TestStore_AddRemoveSequencesKeepUniqueIDs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStore(nil, nil)
	want := map[string]bool{}
	pool := []string{"a", "b", "c", "d", "e", "f"}

	for step := 0; step < 500; step++ {
		id := pool[rng.Intn(len(pool))]
		switch rng.Intn(3) {
		case 0, 1:
			s.AddAsset(mk(id))
			want[id] = true
		default:
			s.RemoveAsset(id)
			delete(want, id)
		}

		got := ids(s.Snapshot().Assets)
		seen := map[string]bool{}
		for _, g := range got {
			if seen[g] {
				t.Fatalf("step %d: duplicate id %q in %v", step, g, got)
			}
			seen[g] = true
		}
		if !reflect.DeepEqual(seen, want) {
			t.Fatalf("step %d: ids = %v, want %v", step, seen, want)
		}
	}
}

func TestStore_RemoveThenGetIsAbsent(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("a"))
	s.RemoveAsset("a")
	if _, ok := s.GetAssetByID("a"); ok {
		t.Fatalf("GetAssetByID found removed asset")
	}
}

func TestStore_ToggleTwiceIsIdentity(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("a"))
	s.AddAsset(mk("b"))
	s.ToggleSelectAsset("b")
	before := s.Snapshot().SelectedAssetIDs

	s.ToggleSelectAsset("a")
	s.ToggleSelectAsset("a")
	if got := s.Snapshot().SelectedAssetIDs; !reflect.DeepEqual(got, before) {
		t.Fatalf("selection = %v, want %v", got, before)
	}
}

func TestStore_ToggleIgnoresUnknownIDsAndLeavesCursor(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("a"))
	s.SelectAsset("a")
	s.ToggleSelectAsset("ghost")
	s.ToggleSelectAsset("a")

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.SelectedAssetIDs, []string{"a"}) {
		t.Fatalf("selection = %v, want [a]", snap.SelectedAssetIDs)
	}
	if snap.SelectedAssetID != "a" {
		t.Fatalf("cursor = %q, want a", snap.SelectedAssetID)
	}
}

func TestStore_SelectAllThenRemoveAllEmptiesEverything(t *testing.T) {
	s := NewStore(nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		s.AddAsset(mk(id))
	}
	s.SelectAllAssets()
	s.RemoveAssets(s.SelectedIDs())

	snap := s.Snapshot()
	if len(snap.Assets) != 0 || len(snap.SelectedAssetIDs) != 0 {
		t.Fatalf("snapshot = %+v, want empty", snap)
	}
}

func TestStore_RemoveAssetsClearsWholeSelectionAndCursor(t *testing.T) {
	s := NewStore(nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		s.AddAsset(mk(id))
	}
	s.ToggleSelectAsset("a")
	s.ToggleSelectAsset("c")
	s.SelectAsset("b")
	s.RemoveAssets([]string{"b"})

	snap := s.Snapshot()
	if len(snap.SelectedAssetIDs) != 0 {
		t.Fatalf("selection = %v, want cleared", snap.SelectedAssetIDs)
	}
	if snap.SelectedAssetID != "" {
		t.Fatalf("cursor = %q, want cleared", snap.SelectedAssetID)
	}
	if got := ids(snap.Assets); !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Fatalf("assets = %v, want [c a]", got)
	}
}

func TestStore_UpdateChangesOnlyThatField(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("a"))
	s.AddAsset(mk("b"))
	before := s.Snapshot().Assets

	if !s.UpdateAsset("a", asset.Patch{HasParameters: asset.Bool(true)}) {
		t.Fatalf("UpdateAsset reported missing asset")
	}
	after := s.Snapshot().Assets
	if !after[1].HasParameters {
		t.Fatalf("HasParameters not applied")
	}
	after[1].HasParameters = false
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("update changed other fields:\nbefore %+v\nafter  %+v", before, after)
	}
	if s.UpdateAsset("ghost", asset.Patch{Name: asset.String("x")}) {
		t.Fatalf("UpdateAsset on unknown id should be a no-op")
	}
}

func TestStore_RemovingSelectedAssetClearsCursor(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("x"))
	s.SelectAsset("x")
	if _, ok := s.GetSelectedAsset(); !ok {
		t.Fatalf("GetSelectedAsset should find x")
	}
	s.RemoveAsset("x")
	if _, ok := s.GetSelectedAsset(); ok {
		t.Fatalf("GetSelectedAsset found removed asset")
	}
	if s.Snapshot().SelectedAssetID != "" {
		t.Fatalf("cursor not cleared")
	}
}

func TestStore_SelectUnknownClearsCursor(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddAsset(mk("a"))
	s.SelectAsset("a")
	s.SelectAsset("ghost")
	if s.Snapshot().SelectedAssetID != "" {
		t.Fatalf("cursor should be cleared for unknown id")
	}
	s.SelectAsset("a")
	s.ClearSelectedAsset()
	if _, ok := s.GetSelectedAsset(); ok {
		t.Fatalf("ClearSelectedAsset left cursor set")
	}
}

func TestStore_LoadReplacesDedupesAndPrunes(t *testing.T) {
	s := NewStore(staticFetcher(mk("b"), mk("c"), mk("b")), nil)
	s.AddAsset(mk("a"))
	s.AddAsset(mk("b"))
	s.ToggleSelectAsset("a")
	s.ToggleSelectAsset("b")
	s.SelectAsset("a")

	if err := s.LoadAssets(context.Background()); err != nil {
		t.Fatalf("LoadAssets returned error: %v", err)
	}
	snap := s.Snapshot()
	if got := ids(snap.Assets); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("assets = %v, want [b c]", got)
	}
	if !reflect.DeepEqual(snap.SelectedAssetIDs, []string{"b"}) {
		t.Fatalf("selection = %v, want [b]", snap.SelectedAssetIDs)
	}
	if snap.SelectedAssetID != "" {
		t.Fatalf("cursor = %q, want cleared", snap.SelectedAssetID)
	}
	if snap.IsLoading || snap.Error != "" {
		t.Fatalf("load flags = loading %v error %q", snap.IsLoading, snap.Error)
	}
}

func TestStore_LoadFailureKeepsAssets(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewStore(FetcherFunc(func(context.Context) ([]asset.Asset, error) {
		return nil, boom
	}), nil)
	s.AddAsset(mk("a"))

	err := s.LoadAssets(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("LoadAssets error = %v, want wrapped boom", err)
	}
	snap := s.Snapshot()
	if got := ids(snap.Assets); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("assets = %v, want [a]", got)
	}
	if snap.Error != LoadErrorMessage {
		t.Fatalf("error = %q, want fixed message", snap.Error)
	}
	if snap.IsLoading {
		t.Fatalf("IsLoading should be false after failure")
	}
	if snap.LastError == nil || reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(boom).Pointer() {
		t.Fatalf("Snapshot should carry a copy of the error")
	}
}

func TestStore_LoadClearsErrorAndReportsLoading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	s := NewStore(FetcherFunc(func(context.Context) ([]asset.Asset, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("down")
		}
		close(started)
		<-release
		return []asset.Asset{mk("a")}, nil
	}), nil)

	_ = s.LoadAssets(context.Background())
	if s.Snapshot().Error == "" {
		t.Fatalf("expected error after failed load")
	}

	done := make(chan error, 1)
	go func() { done <- s.LoadAssets(context.Background()) }()
	<-started
	snap := s.Snapshot()
	if !snap.IsLoading || snap.Error != "" {
		t.Fatalf("during load: loading=%v error=%q, want loading and cleared error", snap.IsLoading, snap.Error)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("LoadAssets returned error: %v", err)
	}
	if s.Snapshot().IsLoading {
		t.Fatalf("IsLoading should be false after load")
	}
}

func TestStore_OverlappingLoadsLastToResolveWins(t *testing.T) {
	type result struct {
		items []asset.Asset
		err   error
	}
	var mu sync.Mutex
	gates := []chan result{make(chan result), make(chan result)}
	entered := make(chan struct{}, 2)
	calls := 0
	s := NewStore(FetcherFunc(func(context.Context) ([]asset.Asset, error) {
		mu.Lock()
		gate := gates[calls]
		calls++
		mu.Unlock()
		entered <- struct{}{}
		r := <-gate
		return r.items, r.err
	}), nil)
	s.AddAsset(mk("stale"))

	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() { first <- s.LoadAssets(context.Background()) }()
	<-entered
	go func() { second <- s.LoadAssets(context.Background()) }()
	<-entered

	gates[0] <- result{err: errors.New("down")}
	if err := <-first; err == nil {
		t.Fatalf("first load should fail")
	}
	gates[1] <- result{items: []asset.Asset{mk("fresh")}}
	if err := <-second; err != nil {
		t.Fatalf("second load: %v", err)
	}

	snap := s.Snapshot()
	if got := ids(snap.Assets); !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("assets = %v, want [fresh]", got)
	}
	if snap.Error != "" || snap.LastError != nil {
		t.Fatalf("error = %q lastErr = %v, want cleared by the later success", snap.Error, snap.LastError)
	}
	if snap.ConsecutiveFailures != 0 || snap.IsLoading {
		t.Fatalf("failures=%d loading=%v, want 0 and false", snap.ConsecutiveFailures, snap.IsLoading)
	}
}

func TestStore_OverlappingLoadsLaterFailureKeepsEarlierResult(t *testing.T) {
	var mu sync.Mutex
	gates := []chan error{make(chan error), make(chan error)}
	entered := make(chan struct{}, 2)
	calls := 0
	s := NewStore(FetcherFunc(func(context.Context) ([]asset.Asset, error) {
		mu.Lock()
		gate := gates[calls]
		calls++
		mu.Unlock()
		entered <- struct{}{}
		if err := <-gate; err != nil {
			return nil, err
		}
		return []asset.Asset{mk("fresh")}, nil
	}), nil)

	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() { first <- s.LoadAssets(context.Background()) }()
	<-entered
	go func() { second <- s.LoadAssets(context.Background()) }()
	<-entered

	gates[0] <- nil
	<-first
	gates[1] <- errors.New("down")
	<-second

	snap := s.Snapshot()
	if got := ids(snap.Assets); !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("assets = %v, want [fresh]", got)
	}
	if snap.Error != LoadErrorMessage || snap.ConsecutiveFailures != 1 {
		t.Fatalf("error=%q failures=%d, want load error and 1", snap.Error, snap.ConsecutiveFailures)
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	fail := true
	s := NewStore(FetcherFunc(func(context.Context) ([]asset.Asset, error) {
		if fail {
			return nil, errors.New("down")
		}
		return nil, nil
	}), nil)

	for i := 1; i <= 3; i++ {
		_ = s.LoadAssets(context.Background())
		snap := s.Snapshot()
		if snap.ConsecutiveFailures != i {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, i)
		}
		if snap.IsOffline() != (i >= 2) {
			t.Fatalf("IsOffline() = %v with %d failures", snap.IsOffline(), i)
		}
	}

	fail = false
	before := time.Now()
	if err := s.LoadAssets(context.Background()); err != nil {
		t.Fatalf("LoadAssets returned error: %v", err)
	}
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("failures not reset: %d", snap.ConsecutiveFailures)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := NewStore(nil, nil)
	a := mk("a")
	a.Tags = []string{"wood"}
	a.Metadata["parameters"] = map[string]any{"count": 1}
	s.AddAsset(a)

	snap := s.Snapshot()
	snap.Assets[0].Tags[0] = "changed"
	snap.Assets[0].Metadata["parameters"].(map[string]any)["count"] = 9
	a.Tags[0] = "mutated-after-add"

	again, _ := s.GetAssetByID("a")
	if again.Tags[0] != "wood" {
		t.Fatalf("tags aliased: %v", again.Tags)
	}
	if again.Metadata["parameters"].(map[string]any)["count"] != 1 {
		t.Fatalf("metadata aliased: %v", again.Metadata)
	}
}

func TestStore_ConcurrentMutationsStayConsistent(t *testing.T) {
	s := NewStore(staticFetcher(mk("seed")), nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := string(rune('a' + (w+i)%6))
				s.AddAsset(mk(id))
				s.ToggleSelectAsset(id)
				s.UpdateAsset(id, asset.Patch{HasThumbnail: asset.Bool(true)})
				if i%10 == 0 {
					_ = s.LoadAssets(context.Background())
				}
				_ = s.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	got := ids(snap.Assets)
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			t.Fatalf("duplicate id after concurrent use: %v", got)
		}
	}
	for _, id := range snap.SelectedAssetIDs {
		if _, ok := snap.Find(id); !ok {
			t.Fatalf("selected id %q not in collection", id)
		}
	}
}
