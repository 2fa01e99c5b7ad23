// Package prefs handles matdeck user preferences persistence.
// Preferences are stored in ~/.config/matdeck/prefs.toml and hold the console
// theme and the service bearer token.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme string `toml:"theme"`
	Token string `toml:"token,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/matdeck/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if
// the file is missing or unreadable.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	prefs.Token = strings.TrimSpace(prefs.Token)

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
// The file is private because it may hold a token.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// TokenFile exposes the token stored in a prefs file. The file is re-read on
// every call so a login from another terminal takes effect immediately.
type TokenFile struct {
	mu   sync.Mutex
	path string
}

// NewTokenFile returns a TokenFile backed by path ("" for the default).
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// Token returns the stored bearer token, or "".
func (f *TokenFile) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := Load(f.path)
	return p.Token
}

// SetToken persists token, keeping other preferences.
func (f *TokenFile) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := Load(f.path)
	p.Token = strings.TrimSpace(token)
	return Save(f.path, p)
}

// ClearToken removes the stored token. Clearing an absent token is a no-op.
func (f *TokenFile) ClearToken() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := Load(f.path)
	if p.Token == "" {
		return nil
	}
	p.Token = ""
	return Save(f.path, p)
}

// SetTheme persists the console theme, keeping the token.
func SetTheme(path, theme string) error {
	p, _ := Load(path)
	p.Theme = theme
	return Save(path, p)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
