package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/app"
	"github.com/five82/matdeck/internal/satapi"
)

func (c *cli) listCommand() *cobra.Command {
	var (
		tags   []string
		output string
	)
	cmd := &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"ls"},
		Short:   "List assets",
		Long: `List assets, newest first.

Examples:
  matdeck list
  matdeck list wood --tag pbr
  matdeck list --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			query := satapi.ListQuery{Tags: tags}
			if len(args) == 1 {
				query.Query = args[0]
			}
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Actions.List(ctx, query)
				if err != nil {
					return fmt.Errorf("list assets: %w", err)
				}
				return writeAssets(c.out, output, items)
			})
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only assets with this tag (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}

func (c *cli) showCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one asset with textures and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				a, err := env.Actions.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get %s: %w", args[0], err)
				}
				return writeAssetDetail(c.out, output, a)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}

func (c *cli) uploadCommand() *cobra.Command {
	var opts actions.UploadOptions
	cmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload .sbs or .sbsar files",
		Long: `Upload one or more material files. Every file is checked for type and
size before anything is sent. --name only applies to a single file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				res := env.Actions.Upload(ctx, expandArgs(args), opts)
				for _, a := range res.Uploaded {
					fmt.Fprintf(c.out, "%s\t%s\n", a.ID, a.Name)
				}
				if len(res.Rejected) > 0 || len(res.Failed) > 0 {
					fmt.Fprintln(c.errOut, formatWarning(fmt.Sprintf("%d uploaded, %d rejected, %d failed",
						len(res.Uploaded), len(res.Rejected), len(res.Failed))))
					return errFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (single file only)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag to apply (repeatable)")
	return cmd
}

func (c *cli) editCommand() *cobra.Command {
	var (
		name, description string
		tags              []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an asset's name, description or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd actions.DetailsUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			if cmd.Flags().Changed("tag") {
				upd.Tags = &tags
			}
			if upd.Name == nil && upd.Description == nil && upd.Tags == nil {
				return fmt.Errorf("nothing to change: pass --name, --description or --tag")
			}
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				a, err := env.Actions.UpdateDetails(ctx, args[0], upd)
				if err != nil {
					return fmt.Errorf("update %s: %w", args[0], err)
				}
				fmt.Fprintln(c.out, formatSuccess("Updated "+a.Name))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags (repeatable, empty clears)")
	return cmd
}

func (c *cli) extractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [ids...]",
		Short: "Extract exposed parameters",
		Long:  "Run parameter extraction. Without ids a picker lists every asset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				ids, err := c.targets(ctx, env, args, "extract")
				if err != nil || len(ids) == 0 {
					return err
				}
				if len(ids) == 1 {
					return failed(env.Actions.ExtractParameters(ctx, ids[0]))
				}
				return batchFailed(env.Actions.BatchExtract(ctx, ids))
			})
		},
	}
}

func (c *cli) thumbnailCommand() *cobra.Command {
	var resolution int
	cmd := &cobra.Command{
		Use:   "thumbnail [ids...]",
		Short: "Generate preview thumbnails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				ids, err := c.targets(ctx, env, args, "thumbnail")
				if err != nil || len(ids) == 0 {
					return err
				}
				res := resolution
				if res <= 0 {
					res = env.Config.ThumbnailResolution
				}
				if len(ids) == 1 {
					return failed(env.Actions.GenerateThumbnail(ctx, ids[0], res))
				}
				return batchFailed(env.Actions.BatchGenerateThumbnails(ctx, ids, res))
			})
		},
	}
	cmd.Flags().IntVar(&resolution, "resolution", 0, "edge length in pixels (default from config)")
	return cmd
}

func (c *cli) deleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete [ids...]",
		Aliases: []string{"rm"},
		Short:   "Delete assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				ids, err := c.targets(ctx, env, args, "delete")
				if err != nil || len(ids) == 0 {
					return err
				}
				if !yes && !c.confirm(fmt.Sprintf("Delete %d asset(s)? This cannot be undone.", len(ids))) {
					fmt.Fprintln(c.errOut, formatInfo("Operation cancelled."))
					return nil
				}
				if len(ids) == 1 {
					return failed(env.Actions.Delete(ctx, ids[0]))
				}
				return batchFailed(env.Actions.BatchDelete(ctx, ids))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func (c *cli) confirm(question string) bool {
	fmt.Fprint(c.errOut, styleWarning.Render(question)+" [y/N] ")
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// failed maps a single-asset error, already reported by the notifier, to
// errFailed.
func failed(err error) error {
	if err != nil {
		return errFailed
	}
	return nil
}

func batchFailed(res actions.BatchResult) error {
	if len(res.Failed) > 0 {
		return errFailed
	}
	return nil
}

// expandArgs resolves a leading ~ the shell left alone, e.g. in quotes.
func expandArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, expandHome(strings.TrimSpace(a)))
	}
	return out
}
