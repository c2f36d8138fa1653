// Package controller drives the end-to-end reload pipeline — acquire,
// parse, ignore-filter, persist, and publish into the in-memory feed
// container — plus the read/unread and enqueue actions the UI triggers.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tsilvers/newsdesk/internal/cache"
	"github.com/tsilvers/newsdesk/internal/config"
	"github.com/tsilvers/newsdesk/internal/container"
	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/lock"
	"github.com/tsilvers/newsdesk/internal/logger"
	"github.com/tsilvers/newsdesk/internal/model"
	"github.com/tsilvers/newsdesk/internal/parser"
	"github.com/tsilvers/newsdesk/internal/remoteapi"
)

// EnqueuedDownload is published whenever EnqueueURL records an item for
// external download; an out-of-scope collaborator drains the channel.
type EnqueuedDownload struct {
	FeedURL      string
	EnclosureURL string
}

// Controller wires together the cache, container, and acquisition layers
// into the operations the CLI exposes.
type Controller struct {
	cfg                 *config.Config
	store               *cache.Store
	cnt                 *container.Container
	rules               []parser.IgnoreRule
	mk                  parser.RecordFactory
	alwaysDownloadGlobs []string
	resetUnreadGlobs    []string

	remote   remoteapi.API
	readMark remoteapi.ArticleReadMarker
	allMark  remoteapi.AllReadMarker

	downloads chan EnqueuedDownload

	replayMu sync.Mutex
	replay   []pendingRead

	procLock *lock.Lock
}

type pendingRead struct {
	GUID string
	Read bool
}

// New builds a Controller over an already-open cache store and container.
// rules/mk configure the ignore-filter stage, alwaysDownloadGlobs/
// resetUnreadGlobs the always-download and reset-unread-on-update feed-url
// globs; remote, if non-nil, is the optional remote API used for
// catchup/read-state sync.
func New(cfg *config.Config, store *cache.Store, cnt *container.Container, rules []parser.IgnoreRule, mk parser.RecordFactory, alwaysDownloadGlobs, resetUnreadGlobs []string, remote remoteapi.API) *Controller {
	c := &Controller{
		cfg:                 cfg,
		store:               store,
		cnt:                 cnt,
		rules:               rules,
		mk:                  mk,
		alwaysDownloadGlobs: alwaysDownloadGlobs,
		resetUnreadGlobs:    resetUnreadGlobs,
		remote:              remote,
		downloads:           make(chan EnqueuedDownload, 64),
	}
	if remote != nil {
		if m, ok := remote.(remoteapi.ArticleReadMarker); ok {
			c.readMark = m
		}
		if m, ok := remote.(remoteapi.AllReadMarker); ok {
			c.allMark = m
		}
	}
	return c
}

// Downloads returns the channel an external download-queue collaborator
// drains EnqueuedDownload values from.
func (c *Controller) Downloads() <-chan EnqueuedDownload {
	return c.downloads
}

// Open acquires the process-wide filesystem lock alongside the cache
// store's lock file, so a second instance started against the same
// cache aborts instead of racing writes. lockPath is typically the cache
// path with a ".lock" suffix.
func (c *Controller) Open(lockPath string) error {
	l, err := lock.Acquire(lockPath)
	if err != nil {
		return err
	}
	c.procLock = l
	return nil
}

// Close releases the process-wide lock and, if configured, cleans up the
// cache per Config.Cache.CleanupShutdown/DeleteRead.
func (c *Controller) Close() error {
	if c.cfg.Cache.CleanupShutdown {
		liveFeeds := make([]string, 0, c.cnt.Count())
		for _, f := range c.cnt.Snapshot() {
			if !f.IsQueryFeed() {
				liveFeeds = append(liveFeeds, f.RSSURL)
			}
		}
		if err := c.store.CleanupCache(liveFeeds, c.cfg.Cache.DeleteRead); err != nil {
			logger.FromContext(nil).Error("cache cleanup on shutdown failed", "error", err.Error())
		}
	}
	return c.procLock.Release()
}

func (c *Controller) newAcquirer() (*parser.Acquirer, error) {
	httpTimeout, _ := time.ParseDuration(c.cfg.Reload.HTTPTimeout)
	backoffMin, _ := time.ParseDuration(c.cfg.Reload.RetryBackoffInitial)
	backoffMax, _ := time.ParseDuration(c.cfg.Reload.RetryBackoffMax)

	var remoteFetcher parser.RemoteFetcher
	if ff, ok := c.remote.(parser.RemoteFetcher); ok {
		remoteFetcher = ff
	}

	return parser.NewAcquirer(parser.Options{
		UserAgent:       c.cfg.Reload.UserAgent,
		Timeout:         httpTimeout,
		ProxyURL:        c.cfg.Reload.Proxy,
		MaxBodyBytes:    c.cfg.Reload.MaxFeedBytes,
		DownloadRetries: c.cfg.Reload.DownloadRetries,
		RetryBackoffMin: backoffMin,
		RetryBackoffMax: backoffMax,
		Remote:          remoteFetcher,
	})
}

// Reload downloads and refreshes one feed (url non-empty) or every feed
// currently held in the container (url empty), with fan-out bounded by
// Config.Reload.Threads (clamped to MaxThreads). Per-feed failures are
// logged and leave that feed's status at Error; Reload itself only
// returns an error for setup failures (acquirer construction) or
// cancellation.
func (c *Controller) Reload(ctx context.Context, url string) error {
	log := logger.FromContext(ctx)
	c.drainReplayLog()

	var targets []model.Feed
	if url != "" {
		f, ok := c.cnt.GetByURL(url)
		if !ok {
			return ierr.ErrFeedNotFound
		}
		targets = []model.Feed{f}
	} else {
		targets = c.cnt.Snapshot()
	}

	threads := int64(c.cfg.Reload.Threads)
	if threads < 1 {
		threads = 1
	}
	if max := int64(c.cfg.Reload.MaxThreads); max > 0 && threads > max {
		threads = max
	}
	sem := semaphore.NewWeighted(threads)

	var wg sync.WaitGroup
	for _, feed := range targets {
		if feed.IsQueryFeed() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(rssURL string) {
			defer wg.Done()
			defer sem.Release(1)

			feedCtx := logger.WithFeedURL(ctx, rssURL)
			if err := c.reloadOne(feedCtx, rssURL); err != nil {
				logger.FromContext(feedCtx).Error("reload failed", "error", err.Error())
			}
		}(feed.RSSURL)
	}
	wg.Wait()

	c.cnt.PopulateQueryFeeds()
	if err := ctx.Err(); err != nil {
		log.Info("reload cancelled", "error", err.Error())
		return err
	}
	return nil
}

func (c *Controller) reloadOne(ctx context.Context, rssURL string) error {
	log := logger.FromContext(ctx)

	existing, _ := c.cnt.GetByURL(rssURL)
	existing.Status = model.StatusDuringDownload
	c.cnt.Add(&existing)

	acq, err := c.newAcquirer()
	if err != nil {
		existing.Status = model.StatusError
		c.cnt.Add(&existing)
		return fmt.Errorf("building acquirer: %w", err)
	}

	lastModified, etag, err := c.store.FetchLastModified(rssURL)
	if err != nil {
		log.Warn("fetching cached conditional-get state", "error", err.Error())
	}

	result, err := acq.Acquire(ctx, rssURL, etag, lastModified)
	if err != nil {
		existing.Status = model.StatusError
		c.cnt.Add(&existing)
		return fmt.Errorf("acquiring %s: %w", rssURL, err)
	}
	if result.NotModified {
		existing.Status = model.StatusSuccess
		c.cnt.Add(&existing)
		return nil
	}

	p := parser.NewParser(30 * time.Second)
	feed, err := p.Parse(result.Body, rssURL)
	if err != nil {
		existing.Status = model.StatusError
		c.cnt.Add(&existing)
		return fmt.Errorf("parsing %s: %w", rssURL, err)
	}
	feed.ETag = result.ETag
	feed.LastModified = result.LastModified
	feed.Tags = existing.Tags
	feed.Order = existing.Order

	if err := parser.ApplyIgnoreRules(feed, c.rules, c.alwaysDownloadGlobs, c.resetUnreadGlobs, c.mk); err != nil {
		return fmt.Errorf("applying ignore rules to %s: %w", rssURL, err)
	}

	resetUnread := parser.MatchesURLGlob(c.resetUnreadGlobs, rssURL)
	if err := c.store.Externalize(feed, resetUnread, c.cfg.Cache.MaxItems); err != nil {
		existing.Status = model.StatusError
		c.cnt.Add(&existing)
		return fmt.Errorf("persisting %s: %w", rssURL, err)
	}

	merged, err := c.store.Internalize(rssURL, nil, c.cfg.Cache.MaxItems, nil)
	if err != nil {
		return fmt.Errorf("re-reading %s after persist: %w", rssURL, err)
	}
	merged.Status = model.StatusSuccess
	merged.Tags = feed.Tags
	merged.Order = feed.Order
	c.cnt.Add(merged)

	return nil
}
