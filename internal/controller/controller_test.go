package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsilvers/newsdesk/internal/cache"
	"github.com/tsilvers/newsdesk/internal/config"
	"github.com/tsilvers/newsdesk/internal/container"
	"github.com/tsilvers/newsdesk/internal/filter"
	"github.com/tsilvers/newsdesk/internal/model"
	"github.com/tsilvers/newsdesk/internal/parser"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Sample Feed</title>
<link>https://example.com</link>
<description>A sample feed</description>
<item>
<title>First post</title>
<link>https://example.com/1</link>
<guid>https://example.com/1</guid>
<pubDate>Mon, 02 Jan 2024 15:04:05 GMT</pubDate>
<description>Hello world</description>
</item>
</channel>
</rss>`

func newTestController(t *testing.T) (*Controller, *cache.Store, *container.Container, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := cache.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	feedPath := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte(sampleRSS), 0o644))

	cnt := container.New()
	cnt.Add(&model.Feed{RSSURL: "file://" + feedPath})

	cfg := &config.Config{
		Cache:  config.CacheConfig{MaxItems: 100},
		Reload: config.ReloadConfig{Threads: 2, MaxThreads: 4, HTTPTimeout: "5s", RetryBackoffInitial: "100ms", RetryBackoffMax: "1s"},
	}

	ctrl := New(cfg, store, cnt, nil, nil, nil, nil, nil)
	return ctrl, store, cnt, feedPath
}

func TestReloadSingleFeedPopulatesContainer(t *testing.T) {
	ctrl, _, cnt, feedPath := newTestController(t)

	err := ctrl.Reload(context.Background(), "file://"+feedPath)
	require.NoError(t, err)

	f, ok := cnt.GetByURL("file://" + feedPath)
	require.True(t, ok)
	assert.Equal(t, model.StatusSuccess, f.Status)
	require.Len(t, f.Items, 1)
	assert.Equal(t, "First post", f.Items[0].Title)
}

func TestReloadUnknownURLReturnsNotFound(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)

	err := ctrl.Reload(context.Background(), "file:///does/not/exist.xml")
	assert.Error(t, err)
}

func TestCatchupAllMarksEverythingRead(t *testing.T) {
	ctrl, _, cnt, feedPath := newTestController(t)
	require.NoError(t, ctrl.Reload(context.Background(), "file://"+feedPath))

	require.NoError(t, ctrl.CatchupAll(""))

	f, ok := cnt.GetByURL("file://" + feedPath)
	require.True(t, ok)
	assert.Equal(t, 0, f.UnreadCount())
}

func TestMarkArticleReadUpdatesCache(t *testing.T) {
	ctrl, store, _, feedPath := newTestController(t)
	require.NoError(t, ctrl.Reload(context.Background(), "file://"+feedPath))

	err := ctrl.MarkArticleRead("file://"+feedPath, "https://example.com/1", true)
	require.NoError(t, err)

	feed, err := store.Internalize("file://"+feedPath, nil, 100, nil)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.False(t, feed.Items[0].Unread)
}

const filteredRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Filtered Feed</title>
<link>https://example.com</link>
<description>A feed with an ignorable item</description>
<item>
<title>Good post</title>
<link>https://example.com/good</link>
<guid>https://example.com/good</guid>
<pubDate>Mon, 02 Jan 2024 15:04:05 GMT</pubDate>
<description>Worth reading</description>
<enclosure url="https://example.com/good.mp3" type="audio/mpeg" length="1000"/>
</item>
<item>
<title>Spam post</title>
<link>https://example.com/spam</link>
<guid>https://example.com/spam</guid>
<pubDate>Mon, 02 Jan 2024 16:04:05 GMT</pubDate>
<description>Buy now</description>
</item>
</channel>
</rss>`

func mkItemRecord(item *model.Item, feed *model.Feed) interface{} {
	return filter.ItemRecord{Item: item, Feed: feed}
}

// TestReloadAppliesIgnoreRulesAlwaysDownloadAndResetUnread exercises the
// ignore-rule/always-download/reset-unread-on-update subsystem end to
// end through Reload, the way real config wires it via
// buildIgnoreRules/AlwaysDownloadGlobList/ResetUnreadGlobList.
func TestReloadAppliesIgnoreRulesAlwaysDownloadAndResetUnread(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := cache.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	feedPath := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(feedPath, []byte(filteredRSS), 0o644))
	feedURL := "file://" + feedPath

	cnt := container.New()
	cnt.Add(&model.Feed{RSSURL: feedURL})

	cfg := &config.Config{
		Cache:  config.CacheConfig{MaxItems: 100},
		Reload: config.ReloadConfig{Threads: 2, MaxThreads: 4, HTTPTimeout: "5s", RetryBackoffInitial: "100ms", RetryBackoffMax: "1s"},
	}

	expr, err := filter.Parse(`title =~ "spam"`)
	require.NoError(t, err)
	rules := []parser.IgnoreRule{{FeedURLGlob: feedURL, Expr: filter.Matcher{Expr: expr}}}

	ctrl := New(cfg, store, cnt, rules, mkItemRecord, []string{feedURL}, []string{feedURL}, nil)

	require.NoError(t, ctrl.Reload(context.Background(), feedURL))

	f, ok := cnt.GetByURL(feedURL)
	require.True(t, ok)
	require.Len(t, f.Items, 1, "the spam item should have been dropped by the ignore rule")
	assert.Equal(t, "Good post", f.Items[0].Title)
	assert.True(t, f.Items[0].Enqueued, "always-download glob should enqueue the enclosure")

	// Mark it read, then reload again with changed content: the
	// reset-unread-on-update glob should force it back to unread.
	require.NoError(t, ctrl.CatchupAll(feedURL))
	f, ok = cnt.GetByURL(feedURL)
	require.True(t, ok)
	require.Equal(t, 0, f.UnreadCount())

	updatedRSS := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Filtered Feed</title>
<link>https://example.com</link>
<description>A feed with an ignorable item</description>
<item>
<title>Good post</title>
<link>https://example.com/good</link>
<guid>https://example.com/good</guid>
<pubDate>Mon, 02 Jan 2024 15:04:05 GMT</pubDate>
<description>Worth reading, updated</description>
<enclosure url="https://example.com/good.mp3" type="audio/mpeg" length="1000"/>
</item>
</channel>
</rss>`
	require.NoError(t, os.WriteFile(feedPath, []byte(updatedRSS), 0o644))

	require.NoError(t, ctrl.Reload(context.Background(), feedURL))
	f, ok = cnt.GetByURL(feedURL)
	require.True(t, ok)
	require.Len(t, f.Items, 1)
	assert.True(t, f.Items[0].Unread, "reset-unread-on-update glob should force the item back to unread")
}
