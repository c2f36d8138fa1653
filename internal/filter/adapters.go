package filter

import (
	"strconv"
	"strings"

	"github.com/tsilvers/newsdesk/internal/model"
)

// ItemRecord exposes a model.Item (and its owning feed, for attributes
// like unread_count that span the whole subscription) as a Record.
type ItemRecord struct {
	Item *model.Item
	Feed *model.Feed
}

func (r ItemRecord) HasAttribute(name string) bool {
	_, ok := itemAttr(r.Item, r.Feed, name)
	return ok
}

func (r ItemRecord) GetAttribute(name string) string {
	v, _ := itemAttr(r.Item, r.Feed, name)
	return v
}

func itemAttr(it *model.Item, feed *model.Feed, name string) (string, bool) {
	switch name {
	case "title":
		return it.Title, true
	case "author":
		return it.Author, true
	case "link":
		return it.Link, true
	case "guid":
		return it.GUID, true
	case "content":
		return it.Content, true
	case "description":
		return it.Description, true
	case "flags":
		return it.Flags, true
	case "age":
		return strconv.Itoa(int(it.PubDate.Unix())), true
	case "unread":
		return boolStr(it.Unread), true
	case "deleted":
		return boolStr(it.Deleted), true
	case "enclosure_url":
		return it.EnclosureURL, true
	case "enclosure_type":
		return it.EnclosureType, true
	case "feedtitle":
		if feed != nil {
			return feed.DisplayTitle(), true
		}
		return "", false
	case "feedurl", "rssurl":
		if feed != nil {
			return feed.RSSURL, true
		}
		return "", false
	case "unread_count":
		if feed != nil {
			return strconv.Itoa(feed.UnreadCount()), true
		}
		return "", false
	default:
		return "", false
	}
}

// FeedRecord exposes a model.Feed as a Record, for query feeds and
// feed-level ignore rules.
type FeedRecord struct {
	Feed *model.Feed
}

func (r FeedRecord) HasAttribute(name string) bool {
	_, ok := feedAttr(r.Feed, name)
	return ok
}

func (r FeedRecord) GetAttribute(name string) string {
	v, _ := feedAttr(r.Feed, name)
	return v
}

func feedAttr(f *model.Feed, name string) (string, bool) {
	switch name {
	case "title":
		return f.DisplayTitle(), true
	case "rssurl", "feedurl":
		return f.RSSURL, true
	case "link":
		return f.Link, true
	case "description":
		return f.Description, true
	case "language":
		return f.Language, true
	case "tags":
		return strings.Join(f.Tags, " "), true
	case "unread_count":
		return strconv.Itoa(f.UnreadCount()), true
	case "total_count":
		return strconv.Itoa(f.ItemCount()), true
	default:
		return "", false
	}
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
