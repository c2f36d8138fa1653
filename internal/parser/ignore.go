package parser

import (
	"path/filepath"

	"github.com/tsilvers/newsdesk/internal/model"
)

// IgnoreRule pairs a feed-url glob with a compiled predicate; items of a
// matching feed that satisfy expr are dropped after parse.
type IgnoreRule struct {
	FeedURLGlob string
	Expr        IgnoreMatcher
}

// ItemRecord adapts a model.Item (plus its owning feed's url) to whatever
// attribute lookup the filter package's Record interface expects. It's
// implemented in the filter package and passed in as an interface{} here
// to avoid importing filter from parser.
type ItemRecord = interface{}

// RecordFactory builds the filter-evaluable record for an item, supplied
// by the caller so parser never needs to import the filter package.
type RecordFactory func(item *model.Item, feed *model.Feed) ItemRecord

// ApplyIgnoreRules drops items from feed.Items that match any ignore rule
// whose FeedURLGlob matches feed.RSSURL. Feeds matching a
// reset-unread-on-update glob have every surviving item flagged
// OverrideUnread, so the cache forces it back to unread on content
// change regardless of the caller's Externalize(resetUnread) default.
// Feeds matching an always-download glob have every surviving
// enclosure-bearing item marked Enqueued, so it's picked up by the
// download queue without the user visiting the feed first.
func ApplyIgnoreRules(feed *model.Feed, rules []IgnoreRule, alwaysDownloadGlobs, resetUnreadGlobs []string, mkRecord RecordFactory) error {
	resetUnread := MatchesURLGlob(resetUnreadGlobs, feed.RSSURL)
	alwaysDownload := MatchesURLGlob(alwaysDownloadGlobs, feed.RSSURL)

	kept := feed.Items[:0]
	for _, item := range feed.Items {
		drop := false
		for _, rule := range rules {
			if !globMatch(rule.FeedURLGlob, feed.RSSURL) {
				continue
			}
			rec := mkRecord(item, feed)
			matched, err := rule.Expr.Matches(rec)
			if err != nil {
				return err
			}
			if matched {
				drop = true
				break
			}
		}
		if drop {
			continue
		}

		item.OverrideUnread = resetUnread
		if alwaysDownload && item.EnclosureURL != "" {
			item.Enqueued = true
		}
		kept = append(kept, item)
	}
	feed.Items = kept

	return nil
}

// MatchesURLGlob reports whether s matches any glob in globs.
func MatchesURLGlob(globs []string, s string) bool {
	for _, g := range globs {
		if globMatch(g, s) {
			return true
		}
	}
	return false
}

func globMatch(glob, s string) bool {
	if glob == "" {
		return false
	}
	matched, err := filepath.Match(glob, s)
	return err == nil && matched
}
