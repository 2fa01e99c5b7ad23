package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/matdeck/internal/satapi"
)

func writeConfig(t *testing.T, apiURL, logFile string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "api_url = \"" + apiURL + "\"\nlog_file = \"" + logFile + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestBootstrap_WiresStoreToService(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(satapi.AssetList{
			Items:      []satapi.RawAsset{{ID: "a1", Name: "Oak Planks", FileType: "sbsar"}},
			Total:      1,
			Page:       1,
			TotalPages: 1,
		})
	}))
	defer srv.Close()

	logFile := filepath.Join(t.TempDir(), "matdeck.log")
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	env, err := Bootstrap(Options{
		ConfigPath: writeConfig(t, "http://unused.invalid", logFile),
		PrefsPath:  prefsPath,
		APIURL:     srv.URL,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer env.Close()

	if err := env.Tokens.SetToken("secret"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := env.Store.LoadAssets(context.Background()); err != nil {
		t.Fatalf("LoadAssets: %v", err)
	}
	snap := env.Store.Snapshot()
	if len(snap.Assets) != 1 || snap.Assets[0].ID != "a1" {
		t.Fatalf("assets = %+v", snap.Assets)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if env.Client.BaseURL() != srv.URL {
		t.Fatalf("BaseURL = %q, want %q", env.Client.BaseURL(), srv.URL)
	}
	if env.Prefs.Theme == "" {
		t.Fatalf("prefs not loaded")
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("batch_workers = 0\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Bootstrap(Options{ConfigPath: path}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestEnvClose_NilSafe(t *testing.T) {
	var env *Env
	if err := env.Close(); err != nil {
		t.Fatalf("Close on nil env: %v", err)
	}
}
