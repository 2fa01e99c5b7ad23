package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"gopkg.in/yaml.v3"

	"github.com/five82/matdeck/internal/asset"
	"github.com/five82/matdeck/internal/prefs"
	"github.com/five82/matdeck/internal/satapi"
)

// fakeService serves the subset of the asset API the CLI uses.
type fakeService struct {
	mu      sync.Mutex
	deleted []string
	auth    []string
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	t.Helper()
	assets := []satapi.RawAsset{
		{ID: "a1", Name: "Oak Planks", FileType: "sbsar", Tags: []string{"wood"}, CreatedAt: "2025-03-01T10:00:00Z",
			Metadata: map[string]any{"author": "studio"}},
		{ID: "a2", Name: "Rusty Metal", FileType: "sbs", HasThumbnail: true, CreatedAt: "2025-02-01T10:00:00Z"},
	}
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /api/assets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, satapi.AssetList{Items: assets, Total: len(assets), Page: 1, TotalPages: 1})
	})
	mux.HandleFunc("GET /api/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, a := range assets {
			if a.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, a)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Asset not found"})
	})
	mux.HandleFunc("DELETE /api/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "bad" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "disk full"})
			return
		}
		f.mu.Lock()
		f.deleted = append(f.deleted, id)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, satapi.HealthResponse{Status: "ok"})
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeService) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.deleted...)
	slices.Sort(out)
	return out
}

type testCLI struct {
	url       string
	config    string
	prefsPath string
	svc       *fakeService
	pick      func(items []asset.Asset, prompt string) ([]int, error)
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	config := filepath.Join(dir, "config.toml")
	body := "log_file = \"" + filepath.Join(dir, "matdeck.log") + "\"\nbatch_workers = 2\n"
	if err := os.WriteFile(config, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return &testCLI{
		url:       srv.URL,
		config:    config,
		prefsPath: filepath.Join(dir, "prefs.toml"),
		svc:       svc,
		pick: func([]asset.Asset, string) ([]int, error) {
			t.Fatalf("picker should not open")
			return nil, nil
		},
	}
}

func (tc *testCLI) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := &cli{in: strings.NewReader(stdin), out: &out, errOut: &errOut, pick: tc.pick}
	root := c.rootCommand()
	root.SetArgs(append(args, "--config", tc.config, "--prefs", tc.prefsPath, "--api-url", tc.url))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestList_JSON(t *testing.T) {
	tc := newTestCLI(t)
	out, _, err := tc.run(t, "", "list", "--output", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var views []assetView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(views) != 2 || views[0].ID != "a1" || views[1].FileType != "sbs" {
		t.Fatalf("views = %+v", views)
	}
	if views[0].CreatedAt != "2025-03-01T10:00:00Z" {
		t.Fatalf("createdAt = %q", views[0].CreatedAt)
	}
	if views[1].Tags == nil {
		t.Fatalf("tags should encode as an empty list")
	}
}

func TestList_YAML(t *testing.T) {
	tc := newTestCLI(t)
	out, _, err := tc.run(t, "", "list", "-o", "yaml")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var views []assetView
	if err := yaml.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(views) != 2 || views[0].Name != "Oak Planks" || !reflect.DeepEqual(views[0].Tags, []string{"wood"}) {
		t.Fatalf("views = %+v", views)
	}
}

func TestList_Table(t *testing.T) {
	tc := newTestCLI(t)
	out, _, err := tc.run(t, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"NAME", "Oak Planks", "SBSAR", "- T -", "2 asset(s)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestList_RejectsUnknownFormat(t *testing.T) {
	tc := newTestCLI(t)
	if _, _, err := tc.run(t, "", "list", "--output", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestShow(t *testing.T) {
	tc := newTestCLI(t)
	out, _, err := tc.run(t, "", "show", "a1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Oak Planks", "Metadata", "author: studio"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show missing %q:\n%s", want, out)
		}
	}
}

func TestShow_NotFound(t *testing.T) {
	tc := newTestCLI(t)
	_, _, err := tc.run(t, "", "show", "missing")
	if err == nil || !strings.Contains(err.Error(), "Asset not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestDelete_BatchWithYes(t *testing.T) {
	tc := newTestCLI(t)
	_, errOut, err := tc.run(t, "", "delete", "a1", "a2", "--yes")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := tc.svc.deletedIDs(); !reflect.DeepEqual(got, []string{"a1", "a2"}) {
		t.Fatalf("deleted = %v", got)
	}
	if !strings.Contains(errOut, "Delete: 2 of 2 succeeded") {
		t.Fatalf("summary missing: %q", errOut)
	}
}

func TestDelete_PromptDeclined(t *testing.T) {
	tc := newTestCLI(t)
	_, errOut, err := tc.run(t, "n\n", "delete", "a1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(tc.svc.deletedIDs()) != 0 {
		t.Fatalf("deleted without confirmation")
	}
	if !strings.Contains(errOut, "cancelled") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestDelete_PromptAccepted(t *testing.T) {
	tc := newTestCLI(t)
	if _, _, err := tc.run(t, "yes\n", "delete", "a2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := tc.svc.deletedIDs(); !reflect.DeepEqual(got, []string{"a2"}) {
		t.Fatalf("deleted = %v", got)
	}
}

func TestDelete_PickerChoosesTargets(t *testing.T) {
	tc := newTestCLI(t)
	var offered []string
	tc.pick = func(items []asset.Asset, prompt string) ([]int, error) {
		for _, a := range items {
			offered = append(offered, a.ID)
		}
		return []int{1}, nil
	}
	if _, _, err := tc.run(t, "", "delete", "--yes"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !reflect.DeepEqual(offered, []string{"a1", "a2"}) {
		t.Fatalf("offered = %v", offered)
	}
	if got := tc.svc.deletedIDs(); !reflect.DeepEqual(got, []string{"a2"}) {
		t.Fatalf("deleted = %v", got)
	}
}

func TestDelete_PickerAbortIsNotAnError(t *testing.T) {
	tc := newTestCLI(t)
	tc.pick = func([]asset.Asset, string) ([]int, error) {
		return nil, fuzzyfinder.ErrAbort
	}
	if _, _, err := tc.run(t, "", "delete", "--yes"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(tc.svc.deletedIDs()) != 0 {
		t.Fatalf("aborted picker still deleted")
	}
}

func TestDelete_FailureReturnsErrFailed(t *testing.T) {
	tc := newTestCLI(t)
	_, errOut, err := tc.run(t, "", "delete", "bad", "--yes")
	if !errors.Is(err, errFailed) {
		t.Fatalf("err = %v, want errFailed", err)
	}
	if !strings.Contains(errOut, "disk full") {
		t.Fatalf("server message not shown: %q", errOut)
	}
}

func TestLoginStatusLogout(t *testing.T) {
	tc := newTestCLI(t)

	if _, _, err := tc.run(t, "", "login", "--token", "abc"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, _, err := tc.run(t, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "token stored") || !strings.Contains(out, "ok") {
		t.Fatalf("status output:\n%s", out)
	}
	tc.svc.mu.Lock()
	lastAuth := tc.svc.auth[len(tc.svc.auth)-1]
	tc.svc.mu.Unlock()
	if lastAuth != "Bearer abc" {
		t.Fatalf("Authorization = %q", lastAuth)
	}

	if _, _, err := tc.run(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	p, err := prefs.Load(tc.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Token != "" {
		t.Fatalf("token still stored: %q", p.Token)
	}
}

func TestLogin_ReadsStdin(t *testing.T) {
	tc := newTestCLI(t)
	if _, _, err := tc.run(t, "  from-pipe \n", "login"); err != nil {
		t.Fatalf("login: %v", err)
	}
	p, err := prefs.Load(tc.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Token != "from-pipe" {
		t.Fatalf("token = %q", p.Token)
	}
}

func TestLogin_EmptyStdin(t *testing.T) {
	tc := newTestCLI(t)
	if _, _, err := tc.run(t, "", "login"); err == nil {
		t.Fatalf("expected error without a token")
	}
}

func TestUpload_RejectsWrongExtension(t *testing.T) {
	tc := newTestCLI(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, errOut, err := tc.run(t, "", "upload", path)
	if !errors.Is(err, errFailed) {
		t.Fatalf("err = %v, want errFailed", err)
	}
	if !strings.Contains(errOut, "Only SBS and SBSAR files are allowed") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestEdit_RequiresAField(t *testing.T) {
	tc := newTestCLI(t)
	if _, _, err := tc.run(t, "", "edit", "a1"); err == nil {
		t.Fatalf("expected error with no fields")
	}
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	got := renderTable([]string{"ID", "NAME"}, [][]string{{"a1", "Oak"}, {"long-id", "X"}})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[2], "a1       Oak") {
		t.Fatalf("row = %q", lines[2])
	}
}
