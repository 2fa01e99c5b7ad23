package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/app"
	"github.com/five82/matdeck/internal/asset"
)

// errFailed marks a command whose failures were already printed.
var errFailed = errors.New("one or more operations failed")

// cli carries global flags and the streams commands write to.
type cli struct {
	configPath string
	prefsPath  string
	apiURL     string
	poll       int
	verbose    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// pick chooses assets interactively; tests replace it.
	pick func(items []asset.Asset, prompt string) ([]int, error)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut, pick: fuzzyPick}
	return c.rootCommand()
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "matdeck",
		Short: "Terminal console for a Substance material library",
		Long: `matdeck browses and manages SBS and SBSAR materials stored in a
texture-automation service.

Run without arguments to open the console. Subcommands cover scripted use:
listing, uploading, parameter extraction, thumbnails and deletion.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), c.appOptions(nil))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.config/matdeck/config.toml)")
	flags.StringVar(&c.prefsPath, "prefs", "", "preferences file (default ~/.config/matdeck/prefs.toml)")
	flags.StringVar(&c.apiURL, "api-url", "", "asset service root, overrides config and MATDECK_API_URL")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "also write the log to stderr")
	root.Flags().IntVar(&c.poll, "poll", 0, "console refresh interval in seconds (default from config)")

	root.AddCommand(
		c.listCommand(),
		c.showCommand(),
		c.uploadCommand(),
		c.editCommand(),
		c.extractCommand(),
		c.thumbnailCommand(),
		c.deleteCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.statusCommand(),
		c.watchCommand(),
	)
	return root
}

func (c *cli) appOptions(notifier actions.Notifier) app.Options {
	opts := app.Options{
		ConfigPath: c.configPath,
		PrefsPath:  c.prefsPath,
		APIURL:     c.apiURL,
		PollEvery:  c.poll,
		Notifier:   notifier,
	}
	if c.verbose && notifier != nil {
		opts.Verbose = c.errOut
	}
	return opts
}

// bootstrap builds the service stack for a one-shot command. Notifications
// are printed to stderr as they happen.
func (c *cli) bootstrap() (*app.Env, error) {
	env, err := app.Bootstrap(c.appOptions(actions.NotifierFunc(c.notify)))
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (c *cli) notify(n actions.Notification) {
	fmt.Fprintln(c.errOut, formatNotification(n))
}

// withEnv runs fn with a bootstrapped Env and closes it afterwards.
func (c *cli) withEnv(ctx context.Context, fn func(ctx context.Context, env *app.Env) error) error {
	env, err := c.bootstrap()
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}
