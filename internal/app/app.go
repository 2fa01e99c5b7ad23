package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/ui"
)

const notificationBuffer = 32

// Run boots the matdeck console until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	queue := actions.NewQueue(notificationBuffer)
	opts.Notifier = queue

	env, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	interval := env.Config.PollInterval()
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	// Initial load before the first frame; failures surface in the header.
	if err := env.Store.LoadAssets(ctx); err != nil {
		env.Log.Warn("initial load failed", zap.Error(err))
	}

	if interval > 0 {
		StartPoller(ctx, env.Store, interval, env.Log.Named("poller"))
	}

	env.Log.Info("console started", zap.String("api_url", env.Client.BaseURL()), zap.Duration("poll", interval))
	err = ui.Run(ui.Options{
		Context:       ctx,
		Actions:       env.Actions,
		Store:         env.Store,
		Config:        &env.Config,
		ThemeName:     env.Prefs.Theme,
		PrefsPath:     env.PrefsPath,
		Notifications: queue.C(),
		LogPath:       env.Config.LogFile,
	})
	if err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
