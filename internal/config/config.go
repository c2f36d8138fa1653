package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the main config for the application.
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	URLs      URLsConfig      `mapstructure:"urls"`
	Reload    ReloadConfig    `mapstructure:"reload"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Retention RetentionConfig `mapstructure:"retention"`
	Filters   FiltersConfig   `mapstructure:"filters"`
}

// CacheConfig is the config for the on-disk item cache.
type CacheConfig struct {
	Path            string `mapstructure:"path"`
	MaxItems        int    `mapstructure:"max_items"`
	CleanupShutdown bool   `mapstructure:"cleanup_on_shutdown"`
	DeleteRead      bool   `mapstructure:"delete_read_on_cleanup"`
}

// URLsConfig selects and configures the subscription list provider.
type URLsConfig struct {
	Provider    string `mapstructure:"provider"` // "file" | "opml" | "remote"
	FilePath    string `mapstructure:"file_path"`
	OPMLSources string `mapstructure:"opml_sources"` // comma-separated
}

// ReloadConfig controls feed acquisition concurrency and HTTP behavior.
type ReloadConfig struct {
	Threads             int    `mapstructure:"threads"`
	MaxThreads          int    `mapstructure:"max_threads"`
	HTTPTimeout         string `mapstructure:"http_timeout"`
	DownloadRetries     int    `mapstructure:"download_retries"`
	RetryBackoffInitial string `mapstructure:"retry_backoff_initial"`
	RetryBackoffMax     string `mapstructure:"retry_backoff_max"`
	UserAgent           string `mapstructure:"user_agent"`
	Proxy               string `mapstructure:"proxy"`
	MaxFeedBytes        int64  `mapstructure:"max_feed_bytes"`
}

// RemoteConfig configures an optional Remote API-backed subscription source.
type RemoteConfig struct {
	Kind                string `mapstructure:"kind"` // "miniflux" | "ttrss" | ""
	URL                 string `mapstructure:"url"`
	User                string `mapstructure:"user"`
	Password            string `mapstructure:"password"`
	PasswordFile        string `mapstructure:"password_file"`
	PasswordCommand     string `mapstructure:"password_command"`
	IncludeSpecialFeeds bool   `mapstructure:"include_special_feeds"`
}

// RetentionConfig controls the cache's retention sweep.
type RetentionConfig struct {
	KeepArticlesDays int `mapstructure:"keep_articles_days"`
}

// FiltersConfig configures the per-feed ignore-rule/always-download/
// reset-unread-on-update subsystem applied after every parse.
type FiltersConfig struct {
	// IgnoreRules is a semicolon-separated list of "feed_url_glob::filter_expression"
	// pairs; items of a matching feed satisfying the expression are dropped.
	IgnoreRules string `mapstructure:"ignore_rules"`
	// AlwaysDownloadGlobs is a comma-separated list of feed_url globs whose
	// enclosures are enqueued for download automatically on reload.
	AlwaysDownloadGlobs string `mapstructure:"always_download_globs"`
	// ResetUnreadGlobs is a comma-separated list of feed_url globs whose
	// items are forced back to unread when their content changes on update.
	ResetUnreadGlobs string `mapstructure:"reset_unread_on_update_globs"`
}

// IgnoreRuleSpec is one parsed (feed_url_glob, filter_expression) pair.
type IgnoreRuleSpec struct {
	FeedURLGlob string
	Expr        string
}

// ParsedIgnoreRules splits Filters.IgnoreRules into individual specs.
func (c *Config) ParsedIgnoreRules() ([]IgnoreRuleSpec, error) {
	var specs []IgnoreRuleSpec
	for _, pair := range strings.Split(c.Filters.IgnoreRules, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "::", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("ignore rule %q missing glob::expr separator", pair)
		}
		specs = append(specs, IgnoreRuleSpec{
			FeedURLGlob: strings.TrimSpace(parts[0]),
			Expr:        strings.TrimSpace(parts[1]),
		})
	}
	return specs, nil
}

// AlwaysDownloadGlobList splits Filters.AlwaysDownloadGlobs on commas.
func (c *Config) AlwaysDownloadGlobList() []string {
	return splitGlobList(c.Filters.AlwaysDownloadGlobs)
}

// ResetUnreadGlobList splits Filters.ResetUnreadGlobs on commas.
func (c *Config) ResetUnreadGlobList() []string {
	return splitGlobList(c.Filters.ResetUnreadGlobs)
}

func splitGlobList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads the configuration with the following priority:
// 1. Environment variables (e.g., from .env file or system)
// 2. Default values set in the code.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Step 1: Set default values. This is the lowest priority.
	setDefaults(v)

	// Step 2 (Optional): Load .env file. This will override defaults.
	// We look in the current directory for the .env file.
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Only return an error if the file was found but couldn't be read.
			// If the file is not found, we can proceed with defaults/env vars.
			return nil, fmt.Errorf("error reading .env file: %w", err)
		}
	}

	// Step 3: Enable reading from environment variables.
	// This has the highest priority and will override .env and defaults.
	// e.g., CACHE_PATH will override the value in .env.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables to their corresponding config keys.
	// This ensures that v.Unmarshal works correctly with AutomaticEnv.
	bindEnvironmentVariables(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Handle special parsing for complex types.
	if err := config.postProcess(v); err != nil {
		return nil, fmt.Errorf("config post-processing failed: %w", err)
	}

	// Validate configuration.
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults configures default values for the application.
func setDefaults(v *viper.Viper) {
	// Cache defaults.
	v.SetDefault("cache.path", filepath.Join(".", "cache.db"))
	v.SetDefault("cache.max_items", 0) // 0 == unbounded
	v.SetDefault("cache.cleanup_on_shutdown", false)
	v.SetDefault("cache.delete_read_on_cleanup", false)

	// Url source defaults.
	v.SetDefault("urls.provider", "file")
	v.SetDefault("urls.file_path", filepath.Join(".", "urls"))
	v.SetDefault("urls.opml_sources", "")

	// Reload defaults.
	v.SetDefault("reload.threads", 1)
	v.SetDefault("reload.max_threads", 16)
	v.SetDefault("reload.http_timeout", "30s")
	v.SetDefault("reload.download_retries", 1)
	v.SetDefault("reload.retry_backoff_initial", "500ms")
	v.SetDefault("reload.retry_backoff_max", "10s")
	v.SetDefault("reload.user_agent", "newsdesk/1.0 (+https://github.com/tsilvers/newsdesk)")
	v.SetDefault("reload.proxy", "")
	v.SetDefault("reload.max_feed_bytes", 16777216)

	// Remote API defaults.
	v.SetDefault("remote.kind", "")
	v.SetDefault("remote.include_special_feeds", true)

	// Retention defaults.
	v.SetDefault("retention.keep_articles_days", 0)

	// Filters defaults.
	v.SetDefault("filters.ignore_rules", "")
	v.SetDefault("filters.always_download_globs", "")
	v.SetDefault("filters.reset_unread_on_update_globs", "")
}

// validate performs basic validation on the loaded configuration.
func (c *Config) validate() error {
	if c.Cache.Path == "" {
		return fmt.Errorf("cache path cannot be empty")
	}
	if c.Cache.MaxItems < 0 {
		return fmt.Errorf("cache max items must not be negative")
	}

	switch c.URLs.Provider {
	case "file", "opml", "remote":
	default:
		return fmt.Errorf("urls provider must be one of file|opml|remote, got %q", c.URLs.Provider)
	}
	if c.URLs.Provider == "file" && c.URLs.FilePath == "" {
		return fmt.Errorf("urls file path cannot be empty when provider is file")
	}
	if c.URLs.Provider == "opml" && c.URLs.OPMLSources == "" {
		return fmt.Errorf("urls opml sources cannot be empty when provider is opml")
	}

	if c.Reload.Threads <= 0 {
		return fmt.Errorf("reload threads must be positive")
	}
	if c.Reload.MaxThreads <= 0 {
		return fmt.Errorf("reload max threads must be positive")
	}
	if c.Reload.Threads > c.Reload.MaxThreads {
		c.Reload.Threads = c.Reload.MaxThreads
	}
	if c.Reload.HTTPTimeout == "" {
		return fmt.Errorf("reload http timeout cannot be empty")
	}
	if c.Reload.RetryBackoffInitial == "" {
		return fmt.Errorf("reload retry backoff initial cannot be empty")
	}
	if c.Reload.RetryBackoffMax == "" {
		return fmt.Errorf("reload retry backoff max cannot be empty")
	}
	if c.Reload.MaxFeedBytes <= 0 {
		return fmt.Errorf("reload max feed bytes must be positive")
	}

	if c.URLs.Provider == "remote" || c.Remote.Kind != "" {
		if c.Remote.Kind != "miniflux" && c.Remote.Kind != "ttrss" {
			return fmt.Errorf("remote kind must be one of miniflux|ttrss, got %q", c.Remote.Kind)
		}
		if c.Remote.URL == "" {
			return fmt.Errorf("remote url cannot be empty")
		}
	}

	if c.Retention.KeepArticlesDays < 0 {
		return fmt.Errorf("retention keep articles days must not be negative")
	}

	if _, err := c.ParsedIgnoreRules(); err != nil {
		return fmt.Errorf("filters.ignore_rules: %w", err)
	}

	return nil
}

// bindEnvironmentVariables binds specific environment variables to handle special cases.
func bindEnvironmentVariables(v *viper.Viper) {
	envBindings := []string{
		"cache.path",
		"cache.max_items",
		"cache.cleanup_on_shutdown",
		"cache.delete_read_on_cleanup",
		"urls.provider",
		"urls.file_path",
		"urls.opml_sources",
		"reload.threads",
		"reload.max_threads",
		"reload.http_timeout",
		"reload.download_retries",
		"reload.retry_backoff_initial",
		"reload.retry_backoff_max",
		"reload.user_agent",
		"reload.proxy",
		"reload.max_feed_bytes",
		"remote.kind",
		"remote.url",
		"remote.user",
		"remote.password",
		"remote.password_file",
		"remote.password_command",
		"remote.include_special_feeds",
		"retention.keep_articles_days",
		"filters.ignore_rules",
		"filters.always_download_globs",
		"filters.reset_unread_on_update_globs",
	}

	for _, key := range envBindings {
		// This will bind "cache.path" to "NEWSDESK_CACHE_PATH" when
		// SetEnvPrefix is configured; AutomaticEnv here binds it bare
		// (e.g. "CACHE_PATH"), matching the teacher's convention.
		_ = v.BindEnv(key)
	}
}

// postProcess handles special parsing for complex types like comma-separated lists.
func (c *Config) postProcess(v *viper.Viper) error {
	// Normalize opml_sources: trim whitespace around each comma-separated entry.
	if c.URLs.OPMLSources != "" && strings.Contains(c.URLs.OPMLSources, ",") {
		parts := strings.Split(c.URLs.OPMLSources, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		c.URLs.OPMLSources = strings.Join(parts, ",")
	}
	return nil
}
