package app

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/asset"
	"github.com/five82/matdeck/internal/config"
	"github.com/five82/matdeck/internal/logging"
	"github.com/five82/matdeck/internal/prefs"
	"github.com/five82/matdeck/internal/satapi"
	"github.com/five82/matdeck/internal/state"
)

// Options configure the matdeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string    // empty uses default ~/.config/matdeck/prefs.toml
	PollEvery  int       // seconds; zero uses the config value
	APIURL     string    // overrides config and environment when set
	Verbose    io.Writer // tee of the log to this writer (CLI --verbose)
	Notifier   actions.Notifier
}

// Env is everything a command needs: config, logger, client, cache and the
// actions service on top of them.
type Env struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Tokens    *prefs.TokenFile
	Client    *satapi.Client
	Store     *state.Store
	Actions   *actions.Service
	Log       *zap.Logger

	closeLog func() error
}

// Bootstrap loads configuration and wires the service stack. Callers must
// Close the returned Env.
func Bootstrap(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}

	log, closeLog, err := logging.New(logging.Options{
		Path:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Stderr: opts.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	tokens := prefs.NewTokenFile(opts.PrefsPath)

	client, err := satapi.NewClient(cfg.APIURL,
		satapi.WithTokenStore(tokens),
		satapi.WithTimeout(cfg.Timeout()),
		satapi.WithRateLimit(cfg.RequestsPerSecond),
		satapi.WithLogger(log.Named("satapi")),
	)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("init asset client: %w", err)
	}

	norm := asset.NewNormalizer(cfg.StaticBase(), cfg.PlaceholderURL)
	store := state.NewStore(nil, log.Named("state"))
	svc := actions.New(client, store, norm, actions.Options{
		Workers:             cfg.BatchWorkers,
		MaxUploadBytes:      cfg.MaxUploadBytes(),
		ThumbnailResolution: cfg.ThumbnailResolution,
		Notifier:            opts.Notifier,
		Logger:              log.Named("actions"),
	})
	store.SetFetcher(svc)

	log.Debug("bootstrap complete",
		zap.String("api_url", client.BaseURL()),
		zap.String("static_base", cfg.StaticBase()),
		zap.Int("workers", cfg.BatchWorkers),
	)

	return &Env{
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		Tokens:    tokens,
		Client:    client,
		Store:     store,
		Actions:   svc,
		Log:       log,
		closeLog:  closeLog,
	}, nil
}

// Close flushes and closes the log.
func (e *Env) Close() error {
	if e == nil || e.closeLog == nil {
		return nil
	}
	return e.closeLog()
}
