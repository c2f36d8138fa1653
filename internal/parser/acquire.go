// Package parser acquires raw feed bytes by URL scheme, parses them into
// neutral model.Feed/model.Item records, and applies ignore rules.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/logger"
)

// RemoteFetcher is satisfied by a remoteapi client capable of fetching a
// feed's body on the acquirer's behalf, for API-backed urls.
type RemoteFetcher interface {
	FetchFeed(ctx context.Context, rssURL string) ([]byte, error)
}

// Options configures an Acquirer.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	ProxyURL        string // e.g. socks5://host:port
	MaxBodyBytes    int64
	DownloadRetries int
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration
	Remote          RemoteFetcher
}

// Acquirer fetches the raw bytes for a subscription's url, dispatching by
// scheme prefix.
type Acquirer struct {
	opts   Options
	client *http.Client
}

// NewAcquirer builds an Acquirer from opts, wiring a bounded-body HTTP
// transport and an optional SOCKS/HTTP proxy dialer.
func NewAcquirer(opts Options) (*Acquirer, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 16 << 20
	}

	base := http.DefaultTransport
	if opts.ProxyURL != "" {
		dialer, err := proxyDialer(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("configuring proxy: %w", err)
		}
		base = &proxyRoundTripper{dialer: dialer}
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: &boundedBodyTransport{base: base, limit: opts.MaxBodyBytes},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	return &Acquirer{opts: opts, client: client}, nil
}

func proxyDialer(rawURL string) (proxy.Dialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return proxy.FromURL(u, proxy.Direct)
}

type proxyRoundTripper struct {
	dialer proxy.Dialer
}

func (p *proxyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// http.Transport.Dial is the simplest integration point for a
	// proxy.Dialer that doesn't speak context-aware dialing.
	rt := &http.Transport{Dial: p.dialer.Dial}
	return rt.RoundTrip(req)
}

// AcquireResult carries the raw body plus conditional-GET bookkeeping the
// caller should persist for the next reload.
type AcquireResult struct {
	Body         []byte
	ETag         string
	LastModified string
	NotModified  bool
}

// Acquire dispatches rssURL by scheme and returns its raw bytes.
func (a *Acquirer) Acquire(ctx context.Context, rssURL, etag, lastModified string) (*AcquireResult, error) {
	log := logger.FromContext(ctx)

	switch {
	case strings.HasPrefix(rssURL, "http://") || strings.HasPrefix(rssURL, "https://"):
		return a.acquireHTTP(ctx, rssURL, etag, lastModified)

	case strings.HasPrefix(rssURL, "file://"):
		body, err := readFile(strings.TrimPrefix(rssURL, "file://"))
		if err != nil {
			return nil, ierr.New(ierr.KindTransport, "reading file url").WithCause(err)
		}
		return &AcquireResult{Body: body}, nil

	case strings.HasPrefix(rssURL, "exec:"):
		body, err := runShell(ctx, strings.TrimPrefix(rssURL, "exec:"), nil)
		if err != nil {
			return nil, ierr.New(ierr.KindTransport, "running exec url").WithCause(err)
		}
		return &AcquireResult{Body: body}, nil

	case strings.HasPrefix(rssURL, "filter:"):
		rest := strings.TrimPrefix(rssURL, "filter:")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return nil, ierr.New(ierr.KindConfig, "filter: url missing cmd:url separator")
		}
		cmd, inner := parts[0], parts[1]
		innerResult, err := a.Acquire(ctx, inner, "", "")
		if err != nil {
			return nil, err
		}
		body, err := runShell(ctx, cmd, innerResult.Body)
		if err != nil {
			return nil, ierr.New(ierr.KindTransport, "running filter cmd").WithCause(err)
		}
		return &AcquireResult{Body: body}, nil

	case strings.HasPrefix(rssURL, "query:"):
		// Query feeds are materialized by the controller/container; the
		// acquirer has nothing to fetch.
		return &AcquireResult{}, nil

	default:
		if a.opts.Remote != nil {
			body, err := a.opts.Remote.FetchFeed(ctx, rssURL)
			if err != nil {
				return nil, ierr.New(ierr.KindTransport, "fetching via remote api").WithCause(err)
			}
			return &AcquireResult{Body: body}, nil
		}
		log.Warn("no acquisition strategy for url", "url", censorURL(rssURL))
		return nil, ierr.New(ierr.KindConfig, "no acquisition strategy for url scheme")
	}
}

func (a *Acquirer) acquireHTTP(ctx context.Context, rssURL, etag, lastModified string) (*AcquireResult, error) {
	var lastErr error
	retries := a.opts.DownloadRetries
	if retries < 0 {
		retries = 0
	}

	backoff := a.opts.RetryBackoffMin
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	maxBackoff := a.opts.RetryBackoffMax
	if maxBackoff <= 0 {
		maxBackoff = 10 * time.Second
	}

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		result, err := a.doHTTPOnce(ctx, rssURL, etag, lastModified)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var appErr *ierr.AppError
		if errors.As(err, &appErr) && appErr.Kind != ierr.KindTransport {
			return nil, err // parse/config-class errors never retry
		}
	}

	return nil, ierr.New(ierr.KindTransport, "acquiring feed over http").WithCause(lastErr)
}

func (a *Acquirer) doHTTPOnce(ctx context.Context, rssURL, etag, lastModified string) (*AcquireResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rssURL, nil)
	if err != nil {
		return nil, ierr.New(ierr.KindConfig, "building request").WithCause(err)
	}

	if a.opts.UserAgent != "" {
		req.Header.Set("User-Agent", a.opts.UserAgent)
	}
	// Leave Accept-Encoding unset: net/http adds "gzip" itself and
	// transparently decodes it, which only happens when the caller
	// hasn't set the header explicitly.
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, ierr.New(ierr.KindTransport, "http request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &AcquireResult{NotModified: true, ETag: etag, LastModified: lastModified}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, ierr.New(ierr.KindTransport, fmt.Sprintf("http status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		var tooLarge *bodyTooLargeError
		if errors.As(err, &tooLarge) {
			return nil, ierr.ErrFeedBodyTooLarge.WithCause(err)
		}
		return nil, ierr.New(ierr.KindTransport, "reading response body").WithCause(err)
	}

	return &AcquireResult{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func runShell(ctx context.Context, cmd string, stdin []byte) ([]byte, error) {
	c := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	if stdin != nil {
		c.Stdin = bytes.NewReader(stdin)
	}
	var out bytes.Buffer
	c.Stdout = &out
	if err := c.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// censorURL hides basic-auth credentials embedded in a url before it's
// logged, mirroring the redaction discipline used elsewhere in the stack.
func censorURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	u.User = url.UserPassword("*censored*", "*censored*")
	return u.String()
}
