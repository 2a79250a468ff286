package main

import (
	"context"
	"fmt"

	"github.com/abgdnv/catalogsync/internal/app"
	"github.com/abgdnv/catalogsync/internal/feed"
	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Fetch pages of the remote catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1, got %d", pages)
			}
			return withDependencies(cmd, opts, func(ctx context.Context, deps *app.Dependencies) error {
				snapshot, err := browse(ctx, deps.Pager, pages)
				if err != nil {
					return err
				}
				return printJSON(cmd, snapshot)
			})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

// browse loads up to pages pages, stopping early once the feed is exhausted.
func browse(ctx context.Context, pager *feed.Pager, pages int) (feed.Snapshot, error) {
	if _, err := pager.LoadFirst(ctx); err != nil {
		return feed.Snapshot{}, err
	}
	for i := 1; i < pages && !pager.Snapshot().Exhausted; i++ {
		if _, err := pager.LoadMore(ctx); err != nil {
			return feed.Snapshot{}, err
		}
	}
	return pager.Snapshot(), nil
}
