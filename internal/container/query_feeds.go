package container

import (
	"strings"

	"github.com/tsilvers/newsdesk/internal/filter"
	"github.com/tsilvers/newsdesk/internal/model"
)

// queryFeedParts splits a "query:<name>:<predicate>" url into its name
// and filter-expression predicate. The predicate may itself contain
// colons (regex literals, "between" ranges), so only the second colon
// (after the "query:" prefix and the name) is treated as the splitter.
func queryFeedParts(rssURL string) (name, predicate string, ok bool) {
	rest := strings.TrimPrefix(rssURL, "query:")
	if rest == rssURL {
		return "", "", false
	}
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// PopulateQueryFeeds re-scans every non-query feed's items against each
// query feed's predicate and replaces that query feed's item set with the
// matches. A predicate that fails to parse, or that fails to evaluate
// against some item, surfaces as that query feed's sole item: a synthetic
// entry whose description carries the error, per the "query feed displays
// its parser error as its sole line; other feeds are unaffected" rule.
func (c *Container) PopulateQueryFeeds() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, qf := range c.feeds {
		if !qf.IsQueryFeed() {
			continue
		}

		expr, parseErr := c.compiledPredicate(qf.RSSURL)
		if parseErr != nil {
			qf.Items = []*model.Item{errorItem(qf.RSSURL, parseErr.Error())}
			continue
		}

		var matches []*model.Item
		var evalErr error
		for _, other := range c.feeds {
			if other == qf || other.IsQueryFeed() {
				continue
			}
			for _, it := range other.Items {
				if it.Deleted {
					continue
				}
				ok, err := expr.Eval(filter.ItemRecord{Item: it, Feed: other})
				if err != nil {
					evalErr = err
					break
				}
				if ok {
					matches = append(matches, it)
				}
			}
			if evalErr != nil {
				break
			}
		}

		if evalErr != nil {
			qf.Items = []*model.Item{errorItem(qf.RSSURL, evalErr.Error())}
			continue
		}
		qf.Items = matches
	}
}

// compiledPredicate parses (and caches) the filter expression embedded in
// a query feed's url.
func (c *Container) compiledPredicate(rssURL string) (filter.Expr, error) {
	if expr, ok := c.queryPredicates[rssURL]; ok {
		return expr, nil
	}
	_, predicate, ok := queryFeedParts(rssURL)
	if !ok {
		return nil, &queryFeedURLError{rssURL: rssURL}
	}
	expr, err := filter.Parse(predicate)
	if err != nil {
		return nil, err
	}
	c.queryPredicates[rssURL] = expr
	return expr, nil
}

type queryFeedURLError struct{ rssURL string }

func (e *queryFeedURLError) Error() string {
	return "malformed query feed url: " + e.rssURL
}

func errorItem(feedURL, message string) *model.Item {
	return &model.Item{
		Title:       "query feed error",
		Description: message,
		FeedURL:     feedURL,
		Unread:      true,
	}
}
