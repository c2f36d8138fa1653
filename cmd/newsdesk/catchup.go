package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatchupCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "catchup",
		Short: "Mark items read",
		Long:  `Marks every item of one feed (with --url) or every feed as read, in the cache and (if configured) on the remote API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctrl.CatchupAll(url); err != nil {
				return fmt.Errorf("catchup: %w", err)
			}
			fmt.Println("caught up")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "limit catchup to a single feed's rss_url")
	return cmd
}
