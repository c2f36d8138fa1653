package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleFeed() *model.Feed {
	now := time.Now().UTC()
	return &model.Feed{
		RSSURL: "https://example.com/feed.xml",
		Title:  "Example Feed",
		Items: []*model.Item{
			{GUID: "g1", Title: "first", PubDate: now.Add(-2 * time.Hour), Unread: true, FeedURL: "https://example.com/feed.xml"},
			{GUID: "g2", Title: "second", PubDate: now.Add(-1 * time.Hour), Unread: true, FeedURL: "https://example.com/feed.xml"},
		},
	}
}

func TestExternalizeInternalizeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()

	require.NoError(t, s.Externalize(feed, false, 0))

	got, err := s.Internalize(feed.RSSURL, nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.Equal(t, "second", got.Items[0].Title) // pub_date DESC
	require.Equal(t, "first", got.Items[1].Title)
}

func TestExternalizeResetsUnreadOnContentChange(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	require.NoError(t, s.Externalize(feed, false, 0))

	require.NoError(t, s.CatchupAll(feed.RSSURL))

	feed.Items[0].Content = "changed body"
	require.NoError(t, s.Externalize(feed, true, 0))

	got, err := s.Internalize(feed.RSSURL, nil, 0, nil)
	require.NoError(t, err)

	var first *model.Item
	for _, it := range got.Items {
		if it.GUID == "g1" {
			first = it
		}
	}
	require.NotNil(t, first)
	require.True(t, first.Unread)
}

func TestMaxItemsCapExemptsFlagged(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	feed.RSSURL = "https://example.com/capped.xml"
	for _, it := range feed.Items {
		it.FeedURL = feed.RSSURL
	}
	feed.Items[0].Flags = "f"

	require.NoError(t, s.Externalize(feed, false, 1))

	got, err := s.Internalize(feed.RSSURL, nil, 1, nil)
	require.NoError(t, err)
	// Cap is 1, but the flagged item survives alongside the newest one.
	require.Len(t, got.Items, 2)
}

func TestQueryFeedsNeverPersisted(t *testing.T) {
	s := newTestStore(t)
	feed := &model.Feed{RSSURL: "query:unread:unread = \"1\"", Items: []*model.Item{{GUID: "x"}}}
	require.NoError(t, s.Externalize(feed, false, 0))

	_, err := s.Internalize(feed.RSSURL, nil, 0, nil)
	require.Error(t, err)
}

func TestRemoveOldDeletedItemsNoOpOnEmptyLiveSet(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	require.NoError(t, s.Externalize(feed, false, 0))
	require.NoError(t, s.MarkItemDeleted(feed.RSSURL, "g1", true))

	require.NoError(t, s.RemoveOldDeletedItems(feed.RSSURL, nil))

	got, err := s.Internalize(feed.RSSURL, nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, got.Items, 1) // g1 still tombstoned, not purged, just excluded from live view
}

func TestLastModifiedNoOpOnEmptyInputs(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	require.NoError(t, s.Externalize(feed, false, 0))
	require.NoError(t, s.UpdateLastModified(feed.RSSURL, "Tue, 01 Jan 2008 00:00:00 GMT", "abc"))

	require.NoError(t, s.UpdateLastModified(feed.RSSURL, "", ""))

	lm, etag, err := s.FetchLastModified(feed.RSSURL)
	require.NoError(t, err)
	require.Equal(t, "Tue, 01 Jan 2008 00:00:00 GMT", lm)
	require.Equal(t, "abc", etag)
}

func TestCleanupCacheRemovesUnsubscribedFeeds(t *testing.T) {
	s := newTestStore(t)
	kept := sampleFeed()
	require.NoError(t, s.Externalize(kept, false, 0))

	gone := sampleFeed()
	gone.RSSURL = "https://example.com/gone.xml"
	for _, it := range gone.Items {
		it.FeedURL = gone.RSSURL
	}
	require.NoError(t, s.Externalize(gone, false, 0))

	require.NoError(t, s.CleanupCache([]string{kept.RSSURL}, false))

	got, err := s.Internalize(kept.RSSURL, nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)

	_, err = s.Internalize(gone.RSSURL, nil, 0, nil)
	require.ErrorIs(t, err, ierr.ErrFeedNotFound)
}

func TestCleanupCacheWithEmptyLiveSetDeletesEverything(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	require.NoError(t, s.Externalize(feed, false, 0))

	// Matches the original cache's unconditional-delete semantics: an
	// empty live set means every feed was unsubscribed, so cleanup
	// sweeps everything rather than silently no-op'ing.
	require.NoError(t, s.CleanupCache(nil, false))

	_, err := s.Internalize(feed.RSSURL, nil, 0, nil)
	require.ErrorIs(t, err, ierr.ErrFeedNotFound)
}

func TestCleanupCacheDeleteReadRemovesReadItemsOnly(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	require.NoError(t, s.Externalize(feed, false, 0))
	require.NoError(t, s.UpdateItemUnreadAndEnqueued(feed.RSSURL, &model.Item{GUID: "g1", Unread: false}))

	require.NoError(t, s.CleanupCache([]string{feed.RSSURL}, true))

	got, err := s.Internalize(feed.RSSURL, nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, "second", got.Items[0].Title)
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	feed := sampleFeed()
	require.NoError(t, s.Externalize(feed, false, 0))

	results, err := s.Search("FIRST", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "first", results[0].Title)
}
