// Package app initializes and holds the long-lived application
// services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"pageinsights/internal/api"
	"pageinsights/internal/archive"
	"pageinsights/internal/cache"
	"pageinsights/internal/clock"
	"pageinsights/internal/clock/system"
	"pageinsights/internal/config"
	"pageinsights/internal/ingest"
	"pageinsights/internal/insights"
	"pageinsights/internal/logging"
	"pageinsights/internal/scraper"
	"pageinsights/internal/storage/postgres"
	"pageinsights/internal/summary"
	"pageinsights/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App wires every subsystem together: storage, scraper, pipeline,
// cache and the HTTP surface. Initialized once at startup; Close
// releases everything in reverse order.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Pool       *pgxpool.Pool
	Pages      *postgres.PageRepository
	Posts      *postgres.PostRepository
	Comments   *postgres.CommentRepository
	Users      *postgres.UserRepository
	Cache      *cache.Cache
	Navigator  *scraper.Navigator
	Crawler    *scraper.PageCrawler
	Pipeline   *ingest.Pipeline
	Insights   *insights.Service
	Summarizer *summary.Summarizer
	Server     *api.Server

	gcsClient *gcstorage.Client
}

// New builds the full service graph from configuration. It fails fast:
// any unreachable critical dependency aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	telemetry.Init()

	a := &App{Config: cfg, Logger: logger}
	clk := system.Clock{}

	a.Pool, err = postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetime) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, a.Pool); err != nil {
		a.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	a.Pages = postgres.NewPageRepository(a.Pool)
	a.Posts = postgres.NewPostRepository(a.Pool)
	a.Comments = postgres.NewCommentRepository(a.Pool)
	a.Users = postgres.NewUserRepository(a.Pool)

	if cfg.Cache.Enabled {
		a.Cache, err = cache.New(ctx, cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL(),
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init cache: %w", err)
		}
	} else {
		a.Cache = cache.Disabled()
	}

	snapshots, err := a.buildSnapshotSink(ctx, clk)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Navigator = scraper.NewNavigator(scraper.NavigatorConfig{
		Headless:          cfg.Scraper.Headless,
		UserAgent:         cfg.Scraper.UserAgent,
		PageLoadTimeout:   time.Duration(cfg.Scraper.PageLoadTimeout) * time.Second,
		NavigationTimeout: time.Duration(cfg.Scraper.NavigationTimeout) * time.Second,
		RetryAttempts:     cfg.Scraper.RetryAttempts,
		RetryDelay:        cfg.Scraper.RetryDelay(),
	}, logger)

	a.Crawler = scraper.NewPageCrawler(a.Navigator, snapshots, clk, scraper.CrawlerConfig{
		BaseURL:      cfg.Scraper.BaseURL,
		PostLimit:    cfg.Scraper.PostLimit,
		CommentLimit: cfg.Scraper.CommentLimit,
	}, logger)

	a.Pipeline = ingest.New(a.Pages, a.Posts, a.Comments, a.Users, clk, logger)
	a.Insights = insights.NewService(a.Pages, a.Posts, a.Comments, a.Users)
	a.Summarizer = summary.New(summary.Config{
		APIKey:    cfg.Summary.APIKey,
		Model:     cfg.Summary.Model,
		MaxTokens: cfg.Summary.MaxTokens,
		Timeout:   time.Duration(cfg.Summary.TimeoutSec) * time.Second,
	}, logger)

	a.Server = api.NewServer(api.Deps{
		Crawler:    a.Crawler,
		Ingestor:   a.Pipeline,
		Pages:      a.Pages,
		Posts:      a.Posts,
		Comments:   a.Comments,
		Users:      a.Users,
		Insights:   a.Insights,
		Summarizer: a.Summarizer,
		Cache:      a.Cache,
		Ready:      a.Pool.Ping,
		Logger:     logger,
	})

	logger.Info("application services initialized",
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.String("archive", cfg.Archive.Backend),
		zap.Bool("summary", a.Summarizer.Available()),
	)
	return a, nil
}

func (a *App) buildSnapshotSink(ctx context.Context, clk clock.Clock) (scraper.SnapshotSink, error) {
	switch a.Config.Archive.Backend {
	case "":
		return nil, nil
	case "local":
		sink, err := archive.NewLocalSink(archive.LocalConfig{BaseDir: a.Config.Archive.BaseDir}, clk)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return sink, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.gcsClient = client
		sink, err := archive.NewGCSSink(client, archive.GCSConfig{Bucket: a.Config.Archive.Bucket}, clk)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", a.Config.Archive.Backend)
	}
}

// Close shuts every service down; safe to call on a partially built App.
func (a *App) Close() {
	if a.Navigator != nil {
		a.Navigator.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("closing cache", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.Logger.Warn("closing gcs client", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	_ = a.Logger.Sync()
}
