package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tsilvers/newsdesk/internal/logger"
)

func newReloadCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Acquire and refresh feeds",
		Long:  `Downloads one feed (with --url) or every subscribed feed, parses it, applies ignore rules, and persists the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootContext()
			defer cancel()
			ctx = logger.WithReloadID(ctx, uuid.NewString())

			if err := ctrl.Reload(ctx, url); err != nil {
				return fmt.Errorf("reload: %w", err)
			}

			fmt.Printf("reloaded %d feed(s), %d unread across %d total\n",
				cnt.Count(), cnt.UnreadItemCount(), cnt.Count())
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "reload a single feed by its rss_url instead of all feeds")
	return cmd
}
