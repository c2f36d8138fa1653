package container

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsilvers/newsdesk/internal/model"
)

func feedWith(rssURL, title string, tags []string, unread, total int) *model.Feed {
	items := make([]*model.Item, 0, total)
	for i := 0; i < total; i++ {
		items = append(items, &model.Item{
			GUID:   rssURL + "#" + string(rune('a'+i)),
			Unread: i < unread,
		})
	}
	return &model.Feed{RSSURL: rssURL, Title: title, Tags: tags, Items: items}
}

func TestAddAndGetByURL(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", nil, 0, 0))
	c.Add(feedWith("https://b", "B", nil, 0, 0))

	f, ok := c.GetByURL("https://b")
	require.True(t, ok)
	assert.Equal(t, "B", f.Title)

	_, ok = c.GetByURL("https://missing")
	assert.False(t, ok)
}

func TestAddReplacesExisting(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", nil, 0, 1))
	c.Add(feedWith("https://a", "A2", nil, 0, 1))

	assert.Equal(t, 1, c.Count())
	f, _ := c.GetByURL("https://a")
	assert.Equal(t, "A2", f.Title)
}

func TestSetAllRebuildsIndex(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", nil, 0, 0))
	c.SetAll([]*model.Feed{feedWith("https://b", "B", nil, 0, 0)})

	_, ok := c.GetByURL("https://a")
	assert.False(t, ok)
	_, ok = c.GetByURL("https://b")
	assert.True(t, ok)
}

func TestUnreadCounts(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", nil, 2, 3))
	c.Add(feedWith("https://b", "B", nil, 0, 3))

	assert.Equal(t, 1, c.UnreadFeedCount())
	assert.Equal(t, 2, c.UnreadItemCount())
}

func TestMarkAllFeedItemsRead(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", nil, 3, 3))

	ok := c.MarkAllFeedItemsRead(0)
	require.True(t, ok)
	assert.Equal(t, 0, c.UnreadItemCount())
}

func TestGetFeedCountPerTag(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", []string{"tech"}, 0, 0))
	c.Add(feedWith("https://b", "B", []string{"tech", "news"}, 0, 0))
	c.Add(feedWith("https://c", "C", []string{"news"}, 0, 0))

	assert.Equal(t, 2, c.GetFeedCountPerTag("tech"))
	assert.Equal(t, 2, c.GetFeedCountPerTag("news"))
	assert.Equal(t, 0, c.GetFeedCountPerTag("sports"))
}

func TestNextUnreadFeedWraps(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", nil, 0, 1))
	c.Add(feedWith("https://b", "B", nil, 0, 1))
	c.Add(feedWith("https://c", "C", nil, 1, 1))

	idx, ok := c.NextUnreadFeed(0)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = c.NextUnreadFeed(2)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestSortTitleAscendingStable(t *testing.T) {
	c := New()
	c.Add(feedWith("https://b", "Banana", nil, 0, 0))
	c.Add(feedWith("https://a", "apple", nil, 0, 0))
	c.Add(feedWith("https://c", "Cherry", nil, 0, 0))

	c.Sort(SortOrder{Criterion: SortTitle, Ascending: true})

	snap := c.Snapshot()
	assert.Equal(t, []string{"apple", "Banana", "Cherry"}, []string{snap[0].Title, snap[1].Title, snap[2].Title})
}

func TestSortFirstTagNoTagsLast(t *testing.T) {
	c := New()
	c.Add(feedWith("https://a", "A", []string{"zzz"}, 0, 0))
	c.Add(feedWith("https://b", "B", nil, 0, 0))
	c.Add(feedWith("https://c", "C", []string{"aaa"}, 0, 0))

	c.Sort(SortOrder{Criterion: SortFirstTag, Ascending: true})

	snap := c.Snapshot()
	assert.Equal(t, "C", snap[0].Title)
	assert.Equal(t, "A", snap[1].Title)
	assert.Equal(t, "B", snap[2].Title)
}

func TestSortRebuildsIndex(t *testing.T) {
	c := New()
	c.Add(feedWith("https://b", "Banana", nil, 0, 0))
	c.Add(feedWith("https://a", "apple", nil, 0, 0))

	c.Sort(SortOrder{Criterion: SortTitle, Ascending: true})

	f, ok := c.GetByIndex(0)
	require.True(t, ok)
	assert.Equal(t, "apple", f.Title)
}

func TestPopulateQueryFeedsMatches(t *testing.T) {
	c := New()
	unreadFeed := feedWith("https://a", "A", nil, 0, 0)
	unreadFeed.Items = []*model.Item{
		{GUID: "1", Title: "one", Unread: true},
		{GUID: "2", Title: "two", Unread: false},
	}
	c.Add(unreadFeed)
	c.Add(&model.Feed{RSSURL: "query:unread:unread = \"1\""})

	c.PopulateQueryFeeds()

	qf, ok := c.GetByURL("query:unread:unread = \"1\"")
	require.True(t, ok)
	require.Len(t, qf.Items, 1)
	assert.Equal(t, "one", qf.Items[0].Title)
}

func TestPopulateQueryFeedsSurfacesParseError(t *testing.T) {
	c := New()
	c.Add(&model.Feed{RSSURL: "query:broken:title ==="})

	c.PopulateQueryFeeds()

	qf, ok := c.GetByURL("query:broken:title ===")
	require.True(t, ok)
	require.Len(t, qf.Items, 1)
	assert.Equal(t, "query feed error", qf.Items[0].Title)
}

func TestLastUpdatedSort(t *testing.T) {
	c := New()
	older := feedWith("https://a", "A", nil, 0, 0)
	older.Items = []*model.Item{{PubDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}}
	newer := feedWith("https://b", "B", nil, 0, 0)
	newer.Items = []*model.Item{{PubDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
	c.Add(older)
	c.Add(newer)

	c.Sort(SortOrder{Criterion: SortLastUpdated, Ascending: false})

	snap := c.Snapshot()
	assert.Equal(t, "B", snap[0].Title)
}
