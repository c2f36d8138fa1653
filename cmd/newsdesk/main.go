// Command newsdesk is a terminal RSS/Atom aggregator core: it reloads
// subscribed feeds, persists them to a local cache, and exposes
// read/catchup/search operations over that cache from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tsilvers/newsdesk/internal/cache"
	"github.com/tsilvers/newsdesk/internal/config"
	"github.com/tsilvers/newsdesk/internal/container"
	"github.com/tsilvers/newsdesk/internal/controller"
	"github.com/tsilvers/newsdesk/internal/filter"
	"github.com/tsilvers/newsdesk/internal/ierr"
	"github.com/tsilvers/newsdesk/internal/logger"
	"github.com/tsilvers/newsdesk/internal/model"
	"github.com/tsilvers/newsdesk/internal/parser"
	"github.com/tsilvers/newsdesk/internal/remoteapi"
	"github.com/tsilvers/newsdesk/internal/remoteapi/minifluxapi"
	"github.com/tsilvers/newsdesk/internal/remoteapi/ttrssapi"
	"github.com/tsilvers/newsdesk/internal/urlsource"
)

var (
	cfg  *config.Config
	ctrl *controller.Controller
	cnt  *container.Container
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initializing log file: %v\n", err)
	}
	defer logger.Close()

	rootCmd := &cobra.Command{
		Use:   "newsdesk",
		Short: "newsdesk RSS/Atom aggregator",
		Long:  `A terminal RSS/Atom aggregator core: reload feeds, browse the cache, and sync read state.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return bootstrap()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ctrl == nil {
				return nil
			}
			return ctrl.Close()
		},
	}

	rootCmd.AddCommand(newReloadCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCatchupCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newImportOPMLCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// bootstrap loads config, opens the cache and process lock, loads the
// subscription list into the container, and wires the Controller — the
// shared setup every subcommand except help/completion needs.
func bootstrap() error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	cnt = container.New()

	provider, err := buildURLProvider(cfg)
	if err != nil {
		return fmt.Errorf("configuring subscription source: %w", err)
	}
	result, err := provider.Load()
	if err != nil {
		return fmt.Errorf("loading subscriptions: %w", err)
	}
	for i, sub := range result.URLs {
		feed, loadErr := store.Internalize(sub.URL, nil, cfg.Cache.MaxItems, nil)
		if loadErr != nil && !errors.Is(loadErr, ierr.ErrFeedNotFound) {
			return fmt.Errorf("loading cached feed %s: %w", sub.URL, loadErr)
		}
		if loadErr != nil {
			feed = &model.Feed{RSSURL: sub.URL, Status: model.StatusToBeDownloaded}
		}
		feed.Tags = sub.Tags
		feed.Order = i
		cnt.Add(feed)
	}

	remote, err := buildRemoteAPI(cfg)
	if err != nil {
		return fmt.Errorf("configuring remote api: %w", err)
	}

	rules, err := buildIgnoreRules(cfg)
	if err != nil {
		return fmt.Errorf("configuring ignore rules: %w", err)
	}

	ctrl = controller.New(cfg, store, cnt, rules, mkItemRecord,
		cfg.AlwaysDownloadGlobList(), cfg.ResetUnreadGlobList(), remote)
	if err := ctrl.Open(cfg.Cache.Path + ".lock"); err != nil {
		return err
	}
	return nil
}

// mkItemRecord adapts an item/feed pair to the filter package's Record
// interface, letting parser/cache apply ignore rules without importing
// filter themselves.
func mkItemRecord(item *model.Item, feed *model.Feed) interface{} {
	return filter.ItemRecord{Item: item, Feed: feed}
}

// buildIgnoreRules compiles every configured "feed_url_glob::expr" pair
// into a parser.IgnoreRule, ready for Controller.Reload's ignore-filter
// stage.
func buildIgnoreRules(cfg *config.Config) ([]parser.IgnoreRule, error) {
	specs, err := cfg.ParsedIgnoreRules()
	if err != nil {
		return nil, err
	}

	rules := make([]parser.IgnoreRule, 0, len(specs))
	for _, spec := range specs {
		expr, err := filter.Parse(spec.Expr)
		if err != nil {
			return nil, fmt.Errorf("parsing ignore rule %q for %q: %w", spec.Expr, spec.FeedURLGlob, err)
		}
		rules = append(rules, parser.IgnoreRule{
			FeedURLGlob: spec.FeedURLGlob,
			Expr:        filter.Matcher{Expr: expr},
		})
	}
	return rules, nil
}

func buildURLProvider(cfg *config.Config) (urlsource.Provider, error) {
	switch cfg.URLs.Provider {
	case "file":
		return &urlsource.FileProvider{Path: cfg.URLs.FilePath}, nil
	case "opml":
		return &urlsource.OPMLProvider{Sources: cfg.URLs.OPMLSources}, nil
	case "remote":
		remote, err := buildRemoteAPI(cfg)
		if err != nil {
			return nil, err
		}
		lister, ok := remote.(remoteapi.SubscriptionLister)
		if !ok {
			return nil, ierr.New(ierr.KindConfig, "remote url provider configured but remote api does not list subscriptions")
		}
		return &urlsource.RemoteProvider{Client: lister, IncludeSpecialFeeds: cfg.Remote.IncludeSpecialFeeds}, nil
	default:
		return nil, ierr.New(ierr.KindConfig, "unknown urls.provider: "+cfg.URLs.Provider)
	}
}

func buildRemoteAPI(cfg *config.Config) (remoteapi.API, error) {
	if cfg.Remote.Kind == "" {
		return nil, nil
	}

	creds, err := remoteapi.Resolve(remoteapi.CredentialSource{
		User:            cfg.Remote.User,
		Password:        cfg.Remote.Password,
		PasswordFile:    cfg.Remote.PasswordFile,
		PasswordCommand: cfg.Remote.PasswordCommand,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Remote.Kind {
	case "miniflux":
		client := minifluxapi.New(minifluxapi.Config{BaseURL: cfg.Remote.URL, User: creds.User, Password: creds.Password})
		return client, nil
	case "ttrss":
		client := ttrssapi.New(ttrssapi.Config{BaseURL: cfg.Remote.URL, User: creds.User, Password: creds.Password})
		return client, nil
	default:
		return nil, ierr.New(ierr.KindConfig, "unknown remote.kind: "+cfg.Remote.Kind)
	}
}

func exitCodeFor(err error) int {
	var appErr *ierr.AppError
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case ierr.KindConfig:
			return 2
		case ierr.KindLock:
			return 3
		case ierr.KindAuth:
			return 4
		default:
			return 1
		}
	}
	var lockErr *ierr.LockError
	if errors.As(err, &lockErr) {
		return 3
	}
	return 1
}

// rootContext returns a context canceled on SIGINT/SIGTERM, so an
// in-progress Reload stops dispatching new feeds cooperatively on
// Ctrl-C rather than being hard-killed mid-request.
func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
