package parser

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/model"
)

// IgnoreMatcher decides whether an item should be dropped before it's
// handed downstream; the filter package's compiled Expr satisfies this.
type IgnoreMatcher interface {
	Matches(rec interface{}) (bool, error)
}

// Parser turns raw feed bytes into a neutral model.Feed.
type Parser struct {
	gofeedParser *gofeed.Parser
	httpTimeout  time.Duration
}

// NewParser builds a Parser. httpTimeout bounds gofeed's own embedded
// http.Client, used only when gofeed is asked to fetch a url directly
// (newsdesk always feeds it bytes via ParseBytes, but the client is kept
// consistent with the Acquirer's bounded transport for parity).
func NewParser(httpTimeout time.Duration) *Parser {
	gp := gofeed.NewParser()
	gp.Client = &http.Client{
		Timeout:   httpTimeout,
		Transport: &boundedBodyTransport{base: http.DefaultTransport, limit: 16 << 20},
	}
	return &Parser{gofeedParser: gp, httpTimeout: httpTimeout}
}

// Parse decodes raw bytes into a model.Feed. feedURL is used for relative
// link resolution and guid synthesis when an item carries none of the
// usual identifying fields.
func (p *Parser) Parse(raw []byte, feedURL string) (*model.Feed, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, ierr.ErrUnsupportedFormat.WithCause(err)
	}

	feed := &model.Feed{
		RSSURL:      feedURL,
		Link:        parsed.Link,
		Title:       parsed.Title,
		Description: parsed.Description,
		Language:    parsed.Language,
		IsRTL:       model.IsRTLLanguage(parsed.Language),
		Status:      model.StatusSuccess,
	}
	if parsed.PublishedParsed != nil {
		feed.PubDate = parsed.PublishedParsed.UTC()
	} else if parsed.UpdatedParsed != nil {
		feed.PubDate = parsed.UpdatedParsed.UTC()
	}

	baseURL := feed.Link
	if baseURL == "" {
		baseURL = feedURL
	}

	items := make([]*model.Item, 0, len(parsed.Items))
	for i, it := range parsed.Items {
		item, err := p.convertItem(it, feedURL, baseURL, i)
		if err != nil {
			return nil, fmt.Errorf("converting item %d: %w", i, err)
		}
		items = append(items, item)
	}
	feed.Items = items

	return feed, nil
}

func (p *Parser) convertItem(it *gofeed.Item, feedURL, baseURL string, position int) (*model.Item, error) {
	title := it.Title
	author := authorOf(it)
	link := it.Link
	content := firstNonEmpty(it.Content, it.Description)
	description := it.Description
	if content == "" && description == "" {
		if summary := itunesSummary(it); summary != "" {
			content, description = summary, summary
		}
	}

	pubDateRaw := it.Published
	if pubDateRaw == "" {
		pubDateRaw = it.Updated
	}
	if pubDateRaw == "" {
		pubDateRaw = dublinCoreDate(it)
	}

	var pubDate time.Time
	if it.PublishedParsed != nil {
		pubDate = it.PublishedParsed.UTC()
	} else if it.UpdatedParsed != nil {
		pubDate = it.UpdatedParsed.UTC()
	} else if t, ok := parsePubDate(pubDateRaw); ok {
		pubDate = t
	}

	sanitizedContent, sanitizedDescription, err := sanitizeItemContent(content, description, baseURL)
	if err != nil {
		return nil, err
	}

	guid := deriveGUID(it.GUID, link, pubDateRaw, title, feedURL, position)

	item := &model.Item{
		GUID:        guid,
		Title:       title,
		Author:      author,
		Link:        link,
		Description: sanitizedDescription,
		Content:     sanitizedContent,
		PubDate:     pubDate,
		BaseURL:     baseURL,
		Unread:      true,
		FeedURL:     feedURL,
	}

	item.Enclosures = append(allEnclosures(it), mediaEnclosures(it)...)
	if enc := firstEnclosure(it); enc != nil {
		item.EnclosureURL = enc.URL
		item.EnclosureType = enc.Type
	} else if len(item.Enclosures) > 0 {
		item.EnclosureURL = item.Enclosures[0].URL
		item.EnclosureType = item.Enclosures[0].Type
	}

	return item, nil
}

func authorOf(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return it.Author.Name
	}
	for _, a := range it.Authors {
		if a.Name != "" {
			return a.Name
		}
	}
	if it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0 && it.DublinCoreExt.Creator[0] != "" {
		return it.DublinCoreExt.Creator[0]
	}
	if it.ITunesExt != nil && it.ITunesExt.Author != "" {
		return it.ITunesExt.Author
	}
	return ""
}

// itunesSummary returns an item's <itunes:summary>, used as a content
// fallback when neither <content:encoded> nor <description> is present.
func itunesSummary(it *gofeed.Item) string {
	if it.ITunesExt == nil {
		return ""
	}
	return it.ITunesExt.Summary
}

// dublinCoreDate returns an item's <dc:date>, used as a pubDate fallback
// when the feed carries neither <pubDate> nor <updated>.
func dublinCoreDate(it *gofeed.Item) string {
	if it.DublinCoreExt == nil || len(it.DublinCoreExt.Date) == 0 {
		return ""
	}
	return it.DublinCoreExt.Date[0]
}

// mediaEnclosures extracts Media RSS <media:content> entries, including
// those nested inside a <media:group>, as enclosures. gofeed has no typed
// Media RSS extension, so these are read from its generic Extensions map.
func mediaEnclosures(it *gofeed.Item) []model.Enclosure {
	media := it.Extensions["media"]
	if media == nil {
		return nil
	}

	var out []model.Enclosure
	out = append(out, mediaContentEnclosures(media["content"])...)
	for _, group := range media["group"] {
		out = append(out, mediaContentEnclosures(group.Children["content"])...)
	}
	return out
}

func mediaContentEnclosures(contents []ext.Extension) []model.Enclosure {
	out := make([]model.Enclosure, 0, len(contents))
	for _, c := range contents {
		url := c.Attrs["url"]
		if url == "" {
			continue
		}
		out = append(out, model.Enclosure{
			URL:    url,
			Type:   c.Attrs["type"],
			Length: parseLength(c.Attrs["fileSize"]),
		})
	}
	return out
}

func firstEnclosure(it *gofeed.Item) *model.Enclosure {
	if len(it.Enclosures) == 0 {
		return nil
	}
	e := it.Enclosures[0]
	return &model.Enclosure{URL: e.URL, Type: e.Type, Length: parseLength(e.Length)}
}

func allEnclosures(it *gofeed.Item) []model.Enclosure {
	out := make([]model.Enclosure, 0, len(it.Enclosures))
	for _, e := range it.Enclosures {
		out = append(out, model.Enclosure{URL: e.URL, Type: e.Type, Length: parseLength(e.Length)})
	}
	return out
}

func parseLength(s string) int64 {
	var n int64
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}
