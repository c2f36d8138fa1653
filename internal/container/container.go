// Package container holds the in-memory, ordered collection of feeds
// newsdesk's UI and controller operate against. It is the one place
// concurrent readers (rendering) and writers (reload results, user
// actions) meet, so every accessor is mutex-guarded and copy-returning.
package container

import (
	"sort"
	"strings"
	"sync"

	"github.com/tsilvers/newsdesk/internal/filter"
	"github.com/tsilvers/newsdesk/internal/model"
)

// SortCriterion selects how Sort orders the feed list.
type SortCriterion int

const (
	SortNone SortCriterion = iota
	SortFirstTag
	SortTitle
	SortArticleCount
	SortUnreadArticleCount
	SortLastUpdated
)

// SortOrder pairs a criterion with a direction.
type SortOrder struct {
	Criterion  SortCriterion
	Ascending bool
}

// Container is the thread-safe, ordered set of subscribed feeds.
type Container struct {
	mu    sync.RWMutex
	feeds []*model.Feed
	index map[string]int // rss_url -> position in feeds

	queryPredicates map[string]filter.Expr
}

// New returns an empty Container.
func New() *Container {
	return &Container{
		index:           make(map[string]int),
		queryPredicates: make(map[string]filter.Expr),
	}
}

// Add appends feed, or replaces the existing entry sharing its RSSURL.
func (c *Container) Add(feed *model.Feed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(feed)
}

func (c *Container) addLocked(feed *model.Feed) {
	if pos, ok := c.index[feed.RSSURL]; ok {
		c.feeds[pos] = feed
		return
	}
	c.index[feed.RSSURL] = len(c.feeds)
	c.feeds = append(c.feeds, feed)
}

// SetAll replaces the whole feed set, rebuilding the url index. Used on
// every url-set reload (spec.md: "rebuilt on each url-set reload").
func (c *Container) SetAll(feeds []*model.Feed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.feeds = make([]*model.Feed, 0, len(feeds))
	c.index = make(map[string]int, len(feeds))
	for _, f := range feeds {
		c.addLocked(f)
	}
}

// GetByIndex returns a copy of the feed at position i.
func (c *Container) GetByIndex(i int) (model.Feed, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.feeds) {
		return model.Feed{}, false
	}
	return *c.feeds[i], true
}

// GetByURL returns a copy of the feed whose RSSURL matches rssURL.
func (c *Container) GetByURL(rssURL string) (model.Feed, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.index[rssURL]
	if !ok {
		return model.Feed{}, false
	}
	return *c.feeds[pos], true
}

// Count returns the number of feeds held.
func (c *Container) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.feeds)
}

// UnreadFeedCount returns the number of feeds with at least one unread item.
func (c *Container) UnreadFeedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, f := range c.feeds {
		if f.UnreadCount() > 0 {
			n++
		}
	}
	return n
}

// UnreadItemCount returns the total unread item count across all feeds.
func (c *Container) UnreadItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, f := range c.feeds {
		n += f.UnreadCount()
	}
	return n
}

// MarkAllFeedItemsRead sets Unread false on every non-deleted item of the
// feed at index i.
func (c *Container) MarkAllFeedItemsRead(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.feeds) {
		return false
	}
	for _, it := range c.feeds[i].Items {
		if !it.Deleted {
			it.Unread = false
		}
	}
	return true
}

// ResetStatus sets every feed's Status back to StatusToBeDownloaded. When
// all is false, feeds currently in StatusError are left untouched.
func (c *Container) ResetStatus(all bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.feeds {
		if !all && f.Status == model.StatusError {
			continue
		}
		f.Status = model.StatusToBeDownloaded
	}
}

// ClearItems drops every feed's item slice. When all is false, query
// feeds are left untouched (their items are recomputed by
// PopulateQueryFeeds, not by acquisition).
func (c *Container) ClearItems(all bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.feeds {
		if !all && f.IsQueryFeed() {
			continue
		}
		f.Items = nil
	}
}

// GetFeedCountPerTag returns how many feeds carry the given tag.
func (c *Container) GetFeedCountPerTag(tag string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, f := range c.feeds {
		for _, t := range f.Tags {
			if t == tag {
				n++
				break
			}
		}
	}
	return n
}

// NextUnreadFeed returns the index of the next feed at or after fromIndex
// (wrapping around) carrying at least one unread item.
func (c *Container) NextUnreadFeed(fromIndex int) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.feeds)
	if n == 0 {
		return 0, false
	}
	for step := 0; step < n; step++ {
		i := (fromIndex + step) % n
		if c.feeds[i].UnreadCount() > 0 {
			return i, true
		}
	}
	return 0, false
}

// Sort reorders the feed list in place per order, rebuilding the url
// index to match the new positions. All variants are stable: feeds that
// compare equal keep their prior relative order.
func (c *Container) Sort(order SortOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	less := lessFuncFor(order.Criterion, c.feeds)
	if less == nil {
		return
	}
	sort.SliceStable(c.feeds, func(i, j int) bool {
		if order.Ascending {
			return less(i, j)
		}
		return less(j, i)
	})

	for i, f := range c.feeds {
		c.index[f.RSSURL] = i
	}
}

func lessFuncFor(crit SortCriterion, feeds []*model.Feed) func(i, j int) bool {
	switch crit {
	case SortNone:
		return func(i, j int) bool { return feeds[i].Order < feeds[j].Order }
	case SortFirstTag:
		return func(i, j int) bool {
			a, b := firstTag(feeds[i]), firstTag(feeds[j])
			if a == "" && b != "" {
				return false
			}
			if a != "" && b == "" {
				return true
			}
			return strings.ToLower(a) < strings.ToLower(b)
		}
	case SortTitle:
		return func(i, j int) bool {
			return strings.ToLower(feeds[i].DisplayTitle()) < strings.ToLower(feeds[j].DisplayTitle())
		}
	case SortArticleCount:
		return func(i, j int) bool { return feeds[i].ItemCount() < feeds[j].ItemCount() }
	case SortUnreadArticleCount:
		return func(i, j int) bool { return feeds[i].UnreadCount() < feeds[j].UnreadCount() }
	case SortLastUpdated:
		return func(i, j int) bool { return feeds[i].LastUpdated().Before(feeds[j].LastUpdated()) }
	default:
		return nil
	}
}

func firstTag(f *model.Feed) string {
	if len(f.Tags) == 0 {
		return ""
	}
	return f.Tags[0]
}

// Snapshot returns a copy of every feed currently held, in order.
func (c *Container) Snapshot() []model.Feed {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Feed, len(c.feeds))
	for i, f := range c.feeds {
		out[i] = *f
	}
	return out
}
