package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsilvers/newsdesk/internal/urlsource"
)

func newImportOPMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-opml [path]",
		Short: "Import subscriptions from an OPML file",
		Long:  `Reads feed subscriptions out of an OPML file and appends them to the configured file-backed url source.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opml := &urlsource.OPMLProvider{Sources: args[0]}
			result, err := opml.Load()
			if err != nil {
				return fmt.Errorf("reading opml: %w", err)
			}

			file := &urlsource.FileProvider{Path: cfg.URLs.FilePath}
			existing, err := file.Load()
			if err != nil {
				return fmt.Errorf("reading existing url file: %w", err)
			}

			merged := mergeSubscriptions(existing.URLs, result.URLs)
			if err := file.Write(merged); err != nil {
				return fmt.Errorf("writing url file: %w", err)
			}

			fmt.Printf("imported %d subscription(s), %d total\n", len(result.URLs), len(merged))
			return nil
		},
	}
	return cmd
}

func mergeSubscriptions(existing, incoming []urlsource.Subscription) []urlsource.Subscription {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s.URL] = true
	}
	merged := append([]urlsource.Subscription(nil), existing...)
	for _, s := range incoming {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		merged = append(merged, s)
	}
	return merged
}
