package urlsource

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

// FileProvider reads/writes the flat urls file: one url per line,
// `#`-prefixed lines are comments, trailing tokens are tags, and any
// token containing whitespace must be double-quoted with backslash
// escapes for `"`, `\`, and control letters.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Load() (*Result, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return newResult(nil), nil
		}
		return nil, ierr.New(ierr.KindConfig, "opening urls file").WithCause(err)
	}
	defer f.Close()

	var subs []Subscription
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens, err := tokenizeLine(line)
		if err != nil {
			return nil, ierr.New(ierr.KindConfig, "parsing urls file").WithCause(err)
		}
		if len(tokens) == 0 {
			continue
		}

		subs = append(subs, Subscription{URL: tokens[0], Tags: tokens[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, ierr.New(ierr.KindConfig, "reading urls file").WithCause(err)
	}

	return newResult(subs), nil
}

func (p *FileProvider) Write(urls []Subscription) error {
	f, err := os.Create(p.Path)
	if err != nil {
		return ierr.New(ierr.KindConfig, "creating urls file").WithCause(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range urls {
		fmt.Fprint(w, s.URL)
		for _, tag := range s.Tags {
			fmt.Fprintf(w, " %s", quoteToken(tag))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// tokenizeLine splits a urls-file line into whitespace-separated tokens,
// honoring double-quoted tokens with backslash escapes.
func tokenizeLine(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	haveToken := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuotes && c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(unescapeChar(line[i]))
		case inQuotes && c == '"':
			inQuotes = false
		case !inQuotes && c == '"':
			inQuotes = true
			haveToken = true
		case !inQuotes && (c == ' ' || c == '\t'):
			if haveToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				haveToken = false
			}
		default:
			cur.WriteByte(c)
			haveToken = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted token")
	}
	if haveToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

func unescapeChar(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

// quoteToken wraps tag in double quotes (with escaping) if it contains
// whitespace; otherwise returns it unchanged.
func quoteToken(tag string) string {
	if !strings.ContainsAny(tag, " \t") {
		return tag
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}
