package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsilvers/newsdesk/internal/container"
)

var sortCriterionByName = map[string]container.SortCriterion{
	"none":               container.SortNone,
	"firsttag":           container.SortFirstTag,
	"title":              container.SortTitle,
	"articlecount":       container.SortArticleCount,
	"unreadarticlecount": container.SortUnreadArticleCount,
	"lastupdated":        container.SortLastUpdated,
}

func newListCmd() *cobra.Command {
	var sortBy string
	var descending bool
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscribed feeds",
		Long:  `Lists every feed in the container, with unread/total item counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortBy != "" {
				crit, ok := sortCriterionByName[sortBy]
				if !ok {
					return fmt.Errorf("unknown --sort value %q", sortBy)
				}
				cnt.Sort(container.SortOrder{Criterion: crit, Ascending: !descending})
			}

			for _, f := range cnt.Snapshot() {
				if unreadOnly && f.UnreadCount() == 0 {
					continue
				}
				tags := ""
				if len(f.Tags) > 0 {
					tags = " [" + strings.Join(f.Tags, ", ") + "]"
				}
				fmt.Printf("%-8s %3d/%3d  %s%s\n", f.Status, f.UnreadCount(), f.ItemCount(), f.DisplayTitle(), tags)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by none|firsttag|title|articlecount|unreadarticlecount|lastupdated")
	cmd.Flags().BoolVar(&descending, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&unreadOnly, "unread-only", false, "only show feeds with unread items")
	return cmd
}
