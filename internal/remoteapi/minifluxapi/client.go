// Package minifluxapi implements remoteapi.API against a Miniflux
// instance's REST API.
package minifluxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/remoteapi"
)

// Client talks to a Miniflux server using an API key (preferred) or
// basic auth as a fallback.
type Client struct {
	baseURL    string
	apiKey     string
	user       string
	password   string
	httpClient *http.Client
}

// Config configures a new Client.
type Config struct {
	BaseURL  string
	APIKey   string
	User     string
	Password string
	Timeout  time.Duration
}

// New builds a Miniflux client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Authenticate verifies the configured credentials against /v1/me.
func (c *Client) Authenticate() error {
	_, err := c.do(context.Background(), http.MethodGet, "/v1/me", nil)
	return err
}

type minifluxFeed struct {
	ID        int64  `json:"id"`
	FeedURL   string `json:"feed_url"`
	Title     string `json:"title"`
	Category  struct {
		Title string `json:"title"`
	} `json:"category"`
}

// ListSubscriptions lists every feed on the account.
func (c *Client) ListSubscriptions() ([]remoteapi.Subscription, error) {
	body, err := c.do(context.Background(), http.MethodGet, "/v1/feeds", nil)
	if err != nil {
		return nil, err
	}

	var feeds []minifluxFeed
	if err := json.Unmarshal(body, &feeds); err != nil {
		return nil, ierr.New(ierr.KindParse, "decoding miniflux feed list").WithCause(err)
	}

	subs := make([]remoteapi.Subscription, 0, len(feeds))
	for _, f := range feeds {
		rssURL := fmt.Sprintf("%s#miniflux-%d", f.FeedURL, f.ID)
		tags := []string(nil)
		if f.Category.Title != "" {
			tags = append(tags, f.Category.Title)
		}
		subs = append(subs, remoteapi.Subscription{RSSURL: rssURL, Title: f.Title, Tags: tags})
	}
	return subs, nil
}

// MarkAllRead marks every entry read, account-wide when rssURL is empty.
func (c *Client) MarkAllRead(rssURL string) error {
	path := "/v1/entries"
	if rssURL != "" {
		feedID, err := feedIDFromRSSURL(rssURL)
		if err != nil {
			return err
		}
		path = fmt.Sprintf("/v1/feeds/%d/mark-all-as-read", feedID)
	}
	_, err := c.do(context.Background(), http.MethodPut, path, map[string]interface{}{"status": "read"})
	return err
}

// MarkArticleRead marks a single entry's status, where guid carries the
// Miniflux entry id after "#miniflux-entry-".
func (c *Client) MarkArticleRead(guid string, read bool) error {
	status := "unread"
	if read {
		status = "read"
	}
	_, err := c.do(context.Background(), http.MethodPut, "/v1/entries", map[string]interface{}{
		"entry_ids": []string{guid},
		"status":    status,
	})
	return err
}

func feedIDFromRSSURL(rssURL string) (int64, error) {
	var id int64
	idx := len(rssURL)
	for i := len(rssURL) - 1; i >= 0; i-- {
		if rssURL[i] == '-' {
			idx = i + 1
			break
		}
	}
	_, err := fmt.Sscanf(rssURL[idx:], "%d", &id)
	if err != nil {
		return 0, ierr.New(ierr.KindConfig, "rss url missing embedded miniflux feed id").WithCause(err)
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, ierr.New(ierr.KindConfig, "encoding miniflux request").WithCause(err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, ierr.New(ierr.KindConfig, "building miniflux request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	} else {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ierr.New(ierr.KindTransport, "miniflux request failed").WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.New(ierr.KindTransport, "reading miniflux response").WithCause(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ierr.New(ierr.KindAuth, "miniflux authentication failed")
	}
	if resp.StatusCode >= 400 {
		return nil, ierr.New(ierr.KindTransport, fmt.Sprintf("miniflux http status %d", resp.StatusCode))
	}

	return respBody, nil
}
