package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"

	"github.com/five82/matdeck/internal/app"
	"github.com/five82/matdeck/internal/asset"
	"github.com/five82/matdeck/internal/satapi"
)

// fuzzyPick lets the user tick one or more assets with tab.
func fuzzyPick(items []asset.Asset, prompt string) ([]int, error) {
	return fuzzyfinder.FindMulti(
		items,
		func(i int) string {
			return items[i].Name + "  " + items[i].ID
		},
		fuzzyfinder.WithPromptString(prompt+" > "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			a := items[i]
			preview := fmt.Sprintf("Name: %s\nID: %s\nType: %s\nStages: %s",
				a.Name, a.ID, a.FileType.Label(), flags(a))
			if len(a.Tags) > 0 {
				preview += "\nTags: " + strings.Join(a.Tags, ", ")
			}
			if a.SourceFile != "" {
				preview += "\nSource: " + a.SourceFile
			}
			return preview
		}),
	)
}

// targets returns ids from args, or asks the user to pick when there are
// none. A cancelled picker yields no ids and no error.
func (c *cli) targets(ctx context.Context, env *app.Env, args []string, prompt string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	items, err := env.Actions.List(ctx, satapi.ListQuery{})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(c.errOut, formatWarning("No assets found"))
		return nil, nil
	}
	idx, err := c.pick(items, prompt)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			fmt.Fprintln(c.errOut, formatInfo("Operation cancelled."))
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(items) {
			ids = append(ids, items[i].ID)
		}
	}
	// Seed the cache so notifications can use names instead of ids.
	for _, a := range items {
		env.Store.AddAsset(a)
	}
	return ids, nil
}
