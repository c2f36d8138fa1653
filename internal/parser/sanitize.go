package parser

import (
	"bytes"
	htmlstd "html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	htmlnode "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var htmlTagPattern = regexp.MustCompile(`(?i)<[a-z][\s\S]*>`)

// sanitizeItemContent prepares an item's content/description for storage,
// absolutizing relative links/images against baseURL and stripping markup
// the container's pager doesn't need to render.
func sanitizeItemContent(content, description, baseURL string) (string, string, error) {
	raw := firstNonEmpty(content, description)

	var sanitizedContent string
	var err error
	if strings.TrimSpace(raw) != "" {
		sanitizedContent, err = sanitizeHTML(raw, baseURL)
		if err != nil {
			return "", "", err
		}
	}

	desc := sanitizePlainText(description)
	if desc == "" {
		desc = sanitizePlainText(sanitizedContent)
	}

	return sanitizedContent, desc, nil
}

func sanitizeHTML(raw, baseURL string) (string, error) {
	markup := ensureHTML(raw)
	absoluteMarkup, err := absolutizeMarkup(markup, baseURL)
	if err != nil {
		return "", err
	}

	policy := bluemonday.UGCPolicy()
	allowRichContent(policy)

	return policy.Sanitize(absoluteMarkup), nil
}

func ensureHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if htmlTagPattern.MatchString(trimmed) {
		return raw
	}
	return "<pre>" + htmlstd.EscapeString(trimmed) + "</pre>"
}

func absolutizeMarkup(input, base string) (string, error) {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(base) == "" {
		return input, nil
	}

	parsedBase, err := url.Parse(base)
	if err != nil || !parsedBase.IsAbs() {
		return input, nil
	}

	container := &htmlnode.Node{Type: htmlnode.ElementNode, DataAtom: atom.Div, Data: "div"}
	nodes, err := htmlnode.ParseFragment(strings.NewReader(input), container)
	if err != nil {
		return input, err
	}

	for _, n := range nodes {
		rewriteRelativeURLs(n, parsedBase)
		container.AppendChild(n)
	}

	var buf bytes.Buffer
	for child := container.FirstChild; child != nil; child = child.NextSibling {
		if err := htmlnode.Render(&buf, child); err != nil {
			return input, err
		}
	}

	return buf.String(), nil
}

func rewriteRelativeURLs(node *htmlnode.Node, base *url.URL) {
	if node.Type == htmlnode.ElementNode {
		for i, attr := range node.Attr {
			switch attr.Key {
			case "href", "src":
				if resolved := absolutize(attr.Val, base); resolved != "" {
					node.Attr[i].Val = resolved
				}
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		rewriteRelativeURLs(child, base)
	}
}

func absolutize(value string, base *url.URL) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	parsed, err := url.Parse(s)
	if err != nil || parsed.IsAbs() {
		return s
	}
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return s
	}
	return base.ResolveReference(parsed).String()
}

func allowRichContent(policy *bluemonday.Policy) {
	policy.AllowElements("pre", "code", "img", "figure", "figcaption")
	policy.AllowAttrs("src", "alt", "title", "width", "height", "loading").OnElements("img")
	policy.AllowURLSchemes("http", "https")
	policy.AllowAttrs("class").OnElements("code", "pre")
}

func sanitizePlainText(input string) string {
	cleaner := bluemonday.StrictPolicy()
	return strings.TrimSpace(cleaner.Sanitize(input))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
