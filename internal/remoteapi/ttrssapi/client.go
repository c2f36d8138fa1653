// Package ttrssapi implements remoteapi.API against a Tiny Tiny RSS
// instance's JSON-RPC API.
package ttrssapi

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

// Client talks to a Tiny Tiny RSS server's api/ JSON-RPC endpoint.
type Client struct {
	baseURL    string
	user       string
	password   string
	sessionID  string
	httpClient *http.Client
}

// Config configures a new Client.
type Config struct {
	BaseURL  string
	User     string
	Password string
	Timeout  time.Duration
}

// New builds a TT-RSS client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		user:       cfg.User,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcResponse struct {
	Status  int             `json:"status"`
	Content json.RawMessage `json:"content"`
}

// Authenticate logs in and stores the returned session id for subsequent
// calls.
func (c *Client) Authenticate() error {
	body, err := c.call("login", map[string]interface{}{
		"user":     c.user,
		"password": c.password,
	})
	if err != nil {
		return err
	}

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return ierr.New(ierr.KindParse, "decoding ttrss login response").WithCause(err)
	}
	if result.SessionID == "" {
		return ierr.New(ierr.KindAuth, "ttrss login did not return a session id")
	}
	c.sessionID = result.SessionID
	return nil
}

type ttrssFeed struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	FeedURL string `json:"feed_url"`
	Cat   int64  `json:"cat_id"`
}

// ListSubscriptions lists every feed on the account.
func (c *Client) ListSubscriptions() ([]remoteapi.Subscription, error) {
	body, err := c.call("getFeeds", map[string]interface{}{"cat_id": -3})
	if err != nil {
		return nil, err
	}

	var feeds []ttrssFeed
	if err := json.Unmarshal(body, &feeds); err != nil {
		return nil, ierr.New(ierr.KindParse, "decoding ttrss feed list").WithCause(err)
	}

	subs := make([]remoteapi.Subscription, 0, len(feeds))
	for _, f := range feeds {
		rssURL := fmt.Sprintf("%s#ttrss-%d", f.FeedURL, f.ID)
		subs = append(subs, remoteapi.Subscription{RSSURL: rssURL, Title: f.Title})
	}
	return subs, nil
}

// MarkAllRead marks a feed (or, with rssURL empty, every feed) fully read.
func (c *Client) MarkAllRead(rssURL string) error {
	feedID := "-4" // TT-RSS's "all feeds" virtual category
	if rssURL != "" {
		id, err := feedIDFromRSSURL(rssURL)
		if err != nil {
			return err
		}
		feedID = fmt.Sprintf("%d", id)
	}
	_, err := c.call("catchupFeed", map[string]interface{}{"feed_id": feedID})
	return err
}

// MarkArticleRead marks a single article's unread state.
func (c *Client) MarkArticleRead(guid string, read bool) error {
	articleID, err := feedIDFromRSSURL(guid)
	if err != nil {
		return err
	}
	mode := 0
	if !read {
		mode = 1
	}
	_, err = c.call("updateArticle", map[string]interface{}{
		"article_ids": fmt.Sprintf("%d", articleID),
		"mode":        mode,
		"field":       2, // unread field
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
		return 0, ierr.New(ierr.KindConfig, "rss url missing embedded ttrss id").WithCause(err)
	}
	return id, nil
}

func (c *Client) call(op string, extra map[string]interface{}) ([]byte, error) {
	payload := map[string]interface{}{"op": op}
	if c.sessionID != "" {
		payload["sid"] = c.sessionID
	}
	for k, v := range extra {
		payload[k] = v
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.New(ierr.KindConfig, "encoding ttrss request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.baseURL+"/api/", bytes.NewReader(buf))
	if err != nil {
		return nil, ierr.New(ierr.KindConfig, "building ttrss request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ierr.New(ierr.KindTransport, "ttrss request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.New(ierr.KindTransport, "reading ttrss response").WithCause(err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, ierr.New(ierr.KindParse, "decoding ttrss envelope").WithCause(err)
	}
	if rpcResp.Status != 0 {
		return nil, ierr.New(ierr.KindAuth, "ttrss rpc error: "+string(rpcResp.Content))
	}

	return rpcResp.Content, nil
}
