package cache

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/model"
)

// IgnoreMatcher mirrors parser.IgnoreMatcher structurally so cache can
// apply ignore rules on internalize without importing the parser package.
type IgnoreMatcher interface {
	Matches(rec interface{}) (bool, error)
}

// IgnoreRule pairs a feed-url glob with a compiled predicate.
type IgnoreRule struct {
	FeedURLGlob string
	Expr        IgnoreMatcher
}

// RecordFactory builds whatever Record shape the ignore rule's Expr
// expects for a given item.
type RecordFactory func(item *model.Item, feed *model.Feed) interface{}

// Externalize upserts feed and its items into the cache. Items are
// processed oldest-first to preserve insertion order on ties. Query feeds
// are never persisted. maxItems <= 0 means unbounded; flagged items are
// exempt from the cap.
func (s *Store) Externalize(feed *model.Feed, resetUnread bool, maxItems int) error {
	if feed.IsQueryFeed() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := truncateForPersist(feed.Items, maxItems)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		fr := feedRow{
			RSSURL:       feed.RSSURL,
			URL:          feed.Link,
			Title:        feed.Title,
			Description:  feed.Description,
			Language:     feed.Language,
			IsRTL:        feed.IsRTL,
			LastModified: feed.LastModified,
			ETag:         feed.ETag,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rss_url"}},
			DoUpdates: clause.AssignmentColumns([]string{"url", "title", "description", "language", "is_rtl"}),
		}).Create(&fr).Error; err != nil {
			return err
		}

		oldestFirst := make([]*model.Item, len(items))
		copy(oldestFirst, items)
		sort.SliceStable(oldestFirst, func(i, j int) bool {
			return oldestFirst[i].PubDate.Before(oldestFirst[j].PubDate)
		})

		for _, it := range oldestFirst {
			if err := upsertItem(tx, feed.RSSURL, it, resetUnread); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ierr.NewDbError("externalize", err)
	}
	return nil
}

func upsertItem(tx *gorm.DB, feedURL string, it *model.Item, resetUnread bool) error {
	var existing itemRow
	res := tx.Where("feed_url = ? AND guid = ?", feedURL, it.GUID).Limit(1).Find(&existing)
	if res.Error != nil {
		return res.Error
	}

	unread := it.Unread
	if res.RowsAffected > 0 {
		contentChanged := existing.Content != it.Content || existing.Description != it.Description
		if resetUnread && contentChanged {
			unread = true
		} else if it.OverrideUnread {
			unread = it.Unread
		} else {
			unread = existing.Unread
		}
	}

	row := itemRow{
		GUID:          it.GUID,
		Title:         it.Title,
		Author:        it.Author,
		URL:           it.Link,
		FeedURL:       feedURL,
		PubDate:       it.PubDate,
		Content:       it.Content,
		Description:   it.Description,
		BaseURL:       it.BaseURL,
		Unread:        unread,
		EnclosureURL:  it.EnclosureURL,
		EnclosureType: it.EnclosureType,
		Enqueued:      it.Enqueued,
		Flags:         it.Flags,
		Deleted:       false,
	}
	if res.RowsAffected > 0 {
		row.ID = existing.ID
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "author", "url", "pub_date", "content", "description",
			"base_url", "unread", "enclosure_url", "enclosure_type", "flags", "deleted",
		}),
	}).Create(&row).Error
}

// truncateForPersist caps items at maxItems, keeping the most recent ones
// plus every flagged item regardless of cap.
func truncateForPersist(items []*model.Item, maxItems int) []*model.Item {
	if maxItems <= 0 || len(items) <= maxItems {
		return items
	}

	sorted := make([]*model.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PubDate.After(sorted[j].PubDate)
	})

	kept := make([]*model.Item, 0, len(sorted))
	for i, it := range sorted {
		if i < maxItems || it.Flags != "" {
			kept = append(kept, it)
		}
	}
	return kept
}

// Internalize loads a feed's header and non-deleted items, newest first,
// applying ignore rules and the max-items cap (flagged items exempt).
func (s *Store) Internalize(rssURL string, rules []IgnoreRule, maxItems int, mkRecord RecordFactory) (*model.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fr feedRow
	if err := s.db.Where("rss_url = ?", rssURL).First(&fr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierr.ErrFeedNotFound
		}
		return nil, ierr.NewDbError("internalize: load feed", err)
	}

	var rows []itemRow
	if err := s.db.Where("feed_url = ? AND deleted = ?", rssURL, false).
		Order("pub_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, ierr.NewDbError("internalize: load items", err)
	}

	feed := feedFromRow(fr)
	feed.Items = make([]*model.Item, 0, len(rows))
	for _, r := range rows {
		feed.Items = append(feed.Items, itemFromRow(r, rssURL))
	}

	for _, rule := range rules {
		if !globMatch(rule.FeedURLGlob, rssURL) {
			continue
		}
		kept := feed.Items[:0]
		for _, it := range feed.Items {
			matched, err := rule.Expr.Matches(mkRecord(it, feed))
			if err != nil {
				return nil, err
			}
			if !matched {
				kept = append(kept, it)
			}
		}
		feed.Items = kept
	}

	if maxItems > 0 && len(feed.Items) > maxItems {
		kept := make([]*model.Item, 0, len(feed.Items))
		for i, it := range feed.Items {
			if i < maxItems || it.Flags != "" {
				kept = append(kept, it)
			}
		}
		feed.Items = kept
	}

	return feed, nil
}

func globMatch(glob, s string) bool {
	if glob == "" {
		return true
	}
	matched, err := filepath.Match(glob, s)
	return err == nil && matched
}

func feedFromRow(fr feedRow) *model.Feed {
	return &model.Feed{
		RSSURL:       fr.RSSURL,
		Link:         fr.URL,
		Title:        fr.Title,
		Description:  fr.Description,
		Language:     fr.Language,
		IsRTL:        fr.IsRTL,
		ETag:         fr.ETag,
		LastModified: fr.LastModified,
	}
}

func itemFromRow(r itemRow, feedURL string) *model.Item {
	return &model.Item{
		GUID:          r.GUID,
		Title:         r.Title,
		Author:        r.Author,
		Link:          r.URL,
		Description:   r.Description,
		Content:       r.Content,
		PubDate:       r.PubDate,
		BaseURL:       r.BaseURL,
		EnclosureURL:  r.EnclosureURL,
		EnclosureType: r.EnclosureType,
		Unread:        r.Unread,
		Enqueued:      r.Enqueued,
		Flags:         r.Flags,
		FeedURL:       feedURL,
		Deleted:       r.Deleted,
	}
}

// FetchLastModified returns the stored conditional-GET bookkeeping for a
// feed url.
func (s *Store) FetchLastModified(rssURL string) (lastModified, etag string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fr feedRow
	if dbErr := s.db.Select("last_modified", "etag").Where("rss_url = ?", rssURL).First(&fr).Error; dbErr != nil {
		if dbErr == gorm.ErrRecordNotFound {
			return "", "", nil
		}
		return "", "", ierr.NewDbError("fetch_last_modified", dbErr)
	}
	return fr.LastModified, fr.ETag, nil
}

// UpdateLastModified persists conditional-GET bookkeeping; a no-op if both
// inputs are empty, so a 304 response never clobbers existing values.
func (s *Store) UpdateLastModified(rssURL, lastModified, etag string) error {
	if lastModified == "" && etag == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Model(&feedRow{}).Where("rss_url = ?", rssURL).
		Updates(map[string]interface{}{"last_modified": lastModified, "etag": etag}).Error
	if err != nil {
		return ierr.NewDbError("update_last_modified", err)
	}
	return nil
}

// MarkItemDeleted sets or clears an item's tombstone flag by guid.
func (s *Store) MarkItemDeleted(feedURL, guid string, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Model(&itemRow{}).Where("feed_url = ? AND guid = ?", feedURL, guid).
		Update("deleted", deleted).Error
	if err != nil {
		return ierr.NewDbError("mark_item_deleted", err)
	}
	return nil
}

// RemoveOldDeletedItems purges tombstoned items whose guid is absent from
// liveGUIDs. A no-op when liveGUIDs is empty, protecting history from a
// parse failure that would otherwise wipe every guid.
func (s *Store) RemoveOldDeletedItems(rssURL string, liveGUIDs []string) error {
	if len(liveGUIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Where("feed_url = ? AND deleted = ? AND guid NOT IN ?", rssURL, true, liveGUIDs).
		Delete(&itemRow{}).Error
	if err != nil {
		return ierr.NewDbError("remove_old_deleted_items", err)
	}
	return nil
}

// CatchupAll marks items unread=false, scoped to a feed url, or globally
// when rssURL is empty.
func (s *Store) CatchupAll(rssURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Model(&itemRow{}).Where("deleted = ?", false)
	if rssURL != "" {
		q = q.Where("feed_url = ?", rssURL)
	}
	if err := q.Update("unread", false).Error; err != nil {
		return ierr.NewDbError("catchup_all", err)
	}
	return nil
}

// UpdateItemUnreadAndEnqueued writes an item's unread/enqueued flags.
func (s *Store) UpdateItemUnreadAndEnqueued(feedURL string, it *model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Model(&itemRow{}).Where("feed_url = ? AND guid = ?", feedURL, it.GUID).
		Updates(map[string]interface{}{"unread": it.Unread, "enqueued": it.Enqueued}).Error
	if err != nil {
		return ierr.NewDbError("update_item_unread_and_enqueued", err)
	}
	return nil
}

// UpdateItemFlags writes an item's flags string.
func (s *Store) UpdateItemFlags(feedURL string, it *model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Model(&itemRow{}).Where("feed_url = ? AND guid = ?", feedURL, it.GUID).
		Update("flags", model.NormalizeFlags(it.Flags)).Error
	if err != nil {
		return ierr.NewDbError("update_item_flags", err)
	}
	return nil
}

// CleanOldArticles deletes items older than keepDays, when keepDays > 0.
func (s *Store) CleanOldArticles(keepDays int) error {
	if keepDays <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowUTC().Add(-time.Duration(keepDays) * 24 * time.Hour)
	if err := s.db.Where("pub_date < ?", cutoff).Delete(&itemRow{}).Error; err != nil {
		return ierr.NewDbError("clean_old_articles", err)
	}
	return nil
}

// CleanupCache deletes every feed/item row whose url is not in liveFeeds,
// and optionally every read item, for use at shutdown. Runs unconditionally,
// even when liveFeeds is empty — an empty subscription list means the user
// unsubscribed from everything, so everything is swept, not skipped. A
// sentinel empty-string entry keeps the NOT IN clause non-empty (an empty
// slice would otherwise make every row vacuously match "not in").
func (s *Store) CleanupCache(liveFeeds []string, deleteRead bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := append(append([]string{}, liveFeeds...), "")

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feed_url NOT IN ?", keep).Delete(&itemRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("rss_url NOT IN ?", keep).Delete(&feedRow{}).Error; err != nil {
			return err
		}
		if deleteRead {
			if err := tx.Where("unread = ?", false).Delete(&itemRow{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Search performs a case-insensitive substring match over title and
// content, optionally scoped to a single feed, ordered newest first.
func (s *Store) Search(query, feedURL string) ([]*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + strings.ToLower(query) + "%"
	q := s.db.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	if feedURL != "" {
		q = q.Where("feed_url = ?", feedURL)
	}

	var rows []itemRow
	if err := q.Order("pub_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, ierr.NewDbError("search", err)
	}

	items := make([]*model.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, itemFromRow(r, r.FeedURL))
	}
	return items, nil
}
