package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds matdeck's runtime settings.
type Config struct {
	APIURL              string  `toml:"api_url" validate:"required"`
	StaticURL           string  `toml:"static_url"`
	PlaceholderURL      string  `toml:"placeholder_url" validate:"omitempty,url"`
	TimeoutSeconds      int     `toml:"timeout_seconds" validate:"gte=1,lte=3600"`
	MaxUploadMB         int     `toml:"max_upload_mb" validate:"gte=1,lte=10240"`
	BatchWorkers        int     `toml:"batch_workers" validate:"gte=1,lte=64"`
	RequestsPerSecond   float64 `toml:"requests_per_second" validate:"gte=0"`
	ThumbnailResolution int     `toml:"thumbnail_resolution" validate:"oneof=64 128 256 512 1024 2048"`
	PollSeconds         int     `toml:"poll_seconds" validate:"gte=0,lte=3600"`
	LogFile             string  `toml:"log_file" validate:"required"`
	LogLevel            string  `toml:"log_level" validate:"oneof=debug info warn error"`
}

const (
	defaultConfigPath   = "~/.config/matdeck/config.toml"
	defaultAPIURL       = "http://127.0.0.1:5000"
	defaultLogFile      = "~/.local/state/matdeck/matdeck.log"
	defaultLogLevel     = "info"
	defaultTimeout      = 120
	defaultMaxUploadMB  = 500
	defaultBatchWorkers = 4
	defaultRPS          = 10
	defaultResolution   = 256
	defaultPollSeconds  = 5
	dotEnvFile          = ".env"
)

// Environment overrides, applied after the file.
const (
	EnvAPIURL    = "MATDECK_API_URL"
	EnvStaticURL = "MATDECK_STATIC_URL"
	EnvLogLevel  = "MATDECK_LOG_LEVEL"
	EnvLogFile   = "MATDECK_LOG_FILE"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:              defaultAPIURL,
		TimeoutSeconds:      defaultTimeout,
		MaxUploadMB:         defaultMaxUploadMB,
		BatchWorkers:        defaultBatchWorkers,
		RequestsPerSecond:   defaultRPS,
		ThumbnailResolution: defaultResolution,
		PollSeconds:         defaultPollSeconds,
		LogFile:             mustExpand(defaultLogFile),
		LogLevel:            defaultLogLevel,
	}
}

// Load reads the TOML config at path (or the default location), applies
// .env and environment overrides, and validates the result. A missing file
// is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	if err := loadDotEnv(dotEnvFile); err != nil {
		return Config{}, err
	}

	cfg := Default()
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	applyEnv(&cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

// Validate checks field ranges.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.ActualTag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Timeout is the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval is the background reload period. Zero disables polling.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// MaxUploadBytes is the upload size limit.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// StaticBase is the prefix for relative asset URLs. It defaults to the API
// root because the service serves /static itself.
func (c Config) StaticBase() string {
	base := strings.TrimSpace(c.StaticURL)
	if base == "" {
		base = strings.TrimSpace(c.APIURL)
	}
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

func (c *Config) normalize() {
	defaults := Default()
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = defaults.APIURL
	}
	c.StaticURL = strings.TrimSpace(c.StaticURL)
	c.PlaceholderURL = strings.TrimSpace(c.PlaceholderURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	c.LogFile = strings.TrimSpace(c.LogFile)
	if c.LogFile == "" {
		c.LogFile = defaults.LogFile
	}
	c.LogFile = mustExpand(c.LogFile)
}

func applyEnv(cfg *Config) {
	cfg.APIURL = getEnv(EnvAPIURL, cfg.APIURL)
	cfg.StaticURL = getEnv(EnvStaticURL, cfg.StaticURL)
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)
	cfg.LogFile = getEnv(EnvLogFile, cfg.LogFile)
	cfg.BatchWorkers = getEnvInt("MATDECK_BATCH_WORKERS", cfg.BatchWorkers)
}

// getEnv returns the variable when set and non-blank.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

// loadDotEnv merges a .env file into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
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
