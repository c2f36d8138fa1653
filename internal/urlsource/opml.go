package urlsource

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tsilvers/newsdesk/internal/logger"
)

// OPMLProvider loads from one or more OPML documents (space-separated
// paths in Sources); it is read-only.
type OPMLProvider struct {
	Sources string
}

type opmlDocument struct {
	XMLName xml.Name    `xml:"opml"`
	Body    opmlBody    `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	XMLURL    string        `xml:"xmlUrl,attr"`
	URL       string        `xml:"url,attr"`
	Text      string        `xml:"text,attr"`
	Title     string        `xml:"title,attr"`
	FilterCmd string        `xml:"filtercmd,attr"`
	Type      string        `xml:"type,attr"`
	Outlines  []opmlOutline `xml:"outline"`
}

func (p *OPMLProvider) Load() (*Result, error) {
	var subs []Subscription

	for _, path := range strings.Fields(p.Sources) {
		theseSubs, err := loadOneOPML(path)
		if err != nil {
			logger.New(slog.LevelWarn).Warn("skipping unreadable OPML source", "path", path, "error", err)
			continue
		}
		subs = append(subs, theseSubs...)
	}

	return newResult(subs), nil
}

func (p *OPMLProvider) Write(urls []Subscription) error {
	// OPML sources are read-only; writing back is a silent no-op by contract.
	return nil
}

func loadOneOPML(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var subs []Subscription
	walkOutlines(doc.Body.Outlines, nil, &subs)
	return subs, nil
}

// walkOutlines recurses an <outline> tree, building the "/"-separated
// hierarchical tag path from each ancestor's text/title as it descends.
func walkOutlines(outlines []opmlOutline, tagPath []string, out *[]Subscription) {
	for _, o := range outlines {
		label := firstNonEmptyStr(o.Text, o.Title)

		feedURL := firstNonEmptyStr(o.XMLURL, o.URL)
		if feedURL != "" {
			tags := make([]string, 0, len(tagPath)+2)
			tags = append(tags, tagPath...)
			if label != "" {
				hierarchical := strings.Join(append(append([]string{}, tagPath...), label), "/")
				tags = append(tags, label, hierarchical)
			}

			url := feedURL
			switch {
			case strings.HasPrefix(url, "|"):
				url = "exec:" + strings.TrimPrefix(url, "|")
			case o.FilterCmd != "":
				url = fmt.Sprintf("filter:%s:%s", o.FilterCmd, url)
			}

			*out = append(*out, Subscription{URL: url, Tags: tags})
		}

		if len(o.Outlines) > 0 {
			nextPath := tagPath
			if label != "" {
				nextPath = append(append([]string{}, tagPath...), label)
			}
			walkOutlines(o.Outlines, nextPath, out)
		}
	}
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
