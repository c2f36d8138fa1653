// Package cache persists feeds and items to a single SQLite file via
// GORM, with conditional-GET bookkeeping, soft-delete tombstones, and
// the retention/cleanup policies the container depends on at startup
// and shutdown.
package cache

import "time"

// feedRow is the rss_feed table.
type feedRow struct {
	RSSURL       string `gorm:"column:rss_url;primaryKey"`
	URL          string `gorm:"column:url"`
	Title        string `gorm:"column:title"`
	Description  string `gorm:"column:description"`
	Language     string `gorm:"column:language"`
	IsRTL        bool   `gorm:"column:is_rtl"`
	LastModified string `gorm:"column:last_modified"`
	ETag         string `gorm:"column:etag"`
}

func (feedRow) TableName() string { return "rss_feed" }

// itemRow is the rss_item table.
type itemRow struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement"`
	GUID          string    `gorm:"column:guid;index"`
	Title         string    `gorm:"column:title"`
	Author        string    `gorm:"column:author"`
	URL           string    `gorm:"column:url"`
	FeedURL       string    `gorm:"column:feed_url;index"`
	PubDate       time.Time `gorm:"column:pub_date;index:idx_pub_date"`
	Content       string    `gorm:"column:content"`
	Description   string    `gorm:"column:description"`
	BaseURL       string    `gorm:"column:base_url"`
	Unread        bool      `gorm:"column:unread"`
	EnclosureURL  string    `gorm:"column:enclosure_url"`
	EnclosureType string    `gorm:"column:enclosure_type"`
	Enqueued      bool      `gorm:"column:enqueued"`
	Flags         string    `gorm:"column:flags"`
	Deleted       bool      `gorm:"column:deleted;index"`
}

func (itemRow) TableName() string { return "rss_item" }
