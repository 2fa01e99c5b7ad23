package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/app"
	"github.com/five82/matdeck/internal/watch"
)

func (c *cli) watchCommand() *cobra.Command {
	var (
		tags     []string
		existing bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload materials saved into a folder",
		Long: `Watch a folder and upload .sbs and .sbsar files as they are created or
rewritten. Uploads wait until the folder has been quiet for --debounce so
exporters can finish writing. Press Ctrl+C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				w, err := watch.New(env.Actions, watch.Options{
					Dir:      expandHome(args[0]),
					Debounce: debounce,
					Tags:     tags,
					Existing: existing,
					Logger:   env.Log.Named("watch"),
					OnUpload: func(paths []string, res actions.UploadResult) {
						for _, a := range res.Uploaded {
							fmt.Fprintf(c.out, "%s\t%s\n", a.ID, a.Name)
						}
					},
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(c.errOut, formatInfo("Watching "+w.Dir()))
				fmt.Fprintln(c.errOut, styleMuted.Render("Press Ctrl+C to stop"))
				if err := w.Run(ctx); err != nil {
					return err
				}
				fmt.Fprintln(c.errOut, styleMuted.Render("Watcher stopped"))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag applied to every upload (repeatable)")
	cmd.Flags().BoolVar(&existing, "existing", false, "also upload files already in the folder")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before uploading")
	return cmd
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
