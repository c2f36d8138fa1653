package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search cached items",
		Long:  `Case-insensitive substring search over cached item titles and content, newest first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctrl.Search(args[0], url)
			if err != nil {
				return err
			}
			for _, it := range items {
				fmt.Printf("%s  %s  %s\n", it.PubDate.Format("2006-01-02"), it.FeedURL, it.Title)
			}
			fmt.Printf("%d match(es)\n", len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "limit search to a single feed's rss_url")
	return cmd
}
