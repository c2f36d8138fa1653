package controller

import (
	"fmt"

	"github.com/tsilvers/newsdesk/internal/logger"
	"github.com/tsilvers/newsdesk/internal/model"
)

// CatchupAll marks every item of scope (a feed url, or every feed when
// scope is empty) read in the cache and the container, then — if a
// remote API is configured — asks it to do the same before clearing the
// locally-pending state, per "notify the remote API... and collect
// server ack before clearing unread-locally-pending state."
func (c *Controller) CatchupAll(scope string) error {
	if err := c.store.CatchupAll(scope); err != nil {
		return fmt.Errorf("marking cache read: %w", err)
	}

	if scope == "" {
		for i := 0; i < c.cnt.Count(); i++ {
			c.cnt.MarkAllFeedItemsRead(i)
		}
	} else if f, ok := c.cnt.GetByURL(scope); ok {
		for i := 0; i < c.cnt.Count(); i++ {
			cand, _ := c.cnt.GetByIndex(i)
			if cand.RSSURL == f.RSSURL {
				c.cnt.MarkAllFeedItemsRead(i)
				break
			}
		}
	}

	if c.allMark != nil {
		if err := c.allMark.MarkAllRead(scope); err != nil {
			return fmt.Errorf("notifying remote api of catchup: %w", err)
		}
	}
	return nil
}

// MarkArticleRead updates an item's unread state in the cache and, when a
// remote API is configured, enqueues the change for replay against the
// server. A failed replay is retried on the next successful Reload.
func (c *Controller) MarkArticleRead(feedURL, guid string, read bool) error {
	it := &model.Item{GUID: guid, Unread: !read}
	if err := c.store.UpdateItemUnreadAndEnqueued(feedURL, it); err != nil {
		return fmt.Errorf("updating cache: %w", err)
	}

	if c.readMark == nil {
		return nil
	}
	if err := c.readMark.MarkArticleRead(guid, read); err != nil {
		c.replayMu.Lock()
		c.replay = append(c.replay, pendingRead{GUID: guid, Read: read})
		c.replayMu.Unlock()
	}
	return nil
}

// drainReplayLog retries any remote-API read-state updates that failed
// when first attempted; called at the start of each Reload.
func (c *Controller) drainReplayLog() {
	if c.readMark == nil {
		return
	}
	c.replayMu.Lock()
	pending := c.replay
	c.replay = nil
	c.replayMu.Unlock()

	var stillFailing []pendingRead
	for _, p := range pending {
		if err := c.readMark.MarkArticleRead(p.GUID, p.Read); err != nil {
			stillFailing = append(stillFailing, p)
		}
	}
	if len(stillFailing) > 0 {
		c.replayMu.Lock()
		c.replay = append(c.replay, stillFailing...)
		c.replayMu.Unlock()
	}
}

// Search runs a case-insensitive title/content substring search across
// the cache, optionally scoped to a single feed.
func (c *Controller) Search(query, feedURL string) ([]*model.Item, error) {
	items, err := c.store.Search(query, feedURL)
	if err != nil {
		return nil, fmt.Errorf("searching cache: %w", err)
	}
	return items, nil
}

// EnqueueURL records an item's enclosure as enqueued for external
// download and publishes it on the Downloads channel. A full channel
// drops the notification rather than blocking the caller; the cache
// record of enqueued=true is the durable source of truth.
func (c *Controller) EnqueueURL(feedURL string, it *model.Item) error {
	it.Enqueued = true
	if err := c.store.UpdateItemUnreadAndEnqueued(feedURL, it); err != nil {
		return fmt.Errorf("recording enqueue: %w", err)
	}

	if it.EnclosureURL == "" {
		return nil
	}
	select {
	case c.downloads <- EnqueuedDownload{FeedURL: feedURL, EnclosureURL: it.EnclosureURL}:
	default:
		logger.FromContext(nil).Warn("download queue full, dropping notification", "feed_url", feedURL)
	}
	return nil
}
