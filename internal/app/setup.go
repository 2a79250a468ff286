// Package app wires the catalog components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalogsync/internal/config"
	"github.com/abgdnv/catalogsync/internal/feed"
	"github.com/abgdnv/catalogsync/internal/idgen"
	"github.com/abgdnv/catalogsync/internal/media"
	"github.com/abgdnv/catalogsync/internal/service"
	"github.com/abgdnv/catalogsync/internal/session"
	"github.com/abgdnv/catalogsync/internal/store"
	"github.com/abgdnv/catalogsync/internal/transport/rest"
	"github.com/abgdnv/catalogsync/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/catalogsync/pkg/config"
	"github.com/abgdnv/catalogsync/pkg/messaging"
	"github.com/abgdnv/catalogsync/pkg/messaging/events"
	natsclient "github.com/abgdnv/catalogsync/pkg/nats"
	"github.com/abgdnv/catalogsync/pkg/server"
)

type Dependencies struct {
	Catalog service.CatalogService
	Pager   *feed.Pager
	Gate    session.Gate
	Logger  *slog.Logger

	closers []func() error
}

// Close releases every resource opened by SetupDependencies, in reverse order.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// SetupDependencies opens the store, blob store and optional broker, and builds the services on top.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	catalog, err := deps.openStore(ctx, cfg.Store)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	uploader, err := newUploader(ctx, cfg.Blob, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	publisher, err := deps.openPublisher(ctx, cfg.NATS, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	feedClient, err := feed.NewHTTPClient(cfg.Feed, &http.Client{}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	gate, err := session.NewIdentityGate(cfg.Auth, &http.Client{}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	deps.Catalog = service.NewService(catalog, uploader, idgen.UUIDv7{}, publisher, cfg.Store.Timeout, logger)
	deps.Pager = feed.NewPager(feedClient, cfg.Feed.PageSize, logger)
	deps.Gate = gate
	return deps, nil
}

func (d *Dependencies) openStore(ctx context.Context, cfg pkgconfig.StoreConfig) (store.CatalogStore, error) {
	switch cfg.Driver {
	case pkgconfig.StoreDriverRedis:
		client, err := bootstrap.NewRedisClient(ctx, cfg.Redis, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, client.Close)
		d.Logger.Info("Connected to redis store", "addr", cfg.Redis.Addr)
		return store.NewRedisStore(client), nil
	default:
		db, err := bootstrap.NewBoltDB(cfg.Path, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, db.Close)
		d.Logger.Info("Opened bolt store", "path", cfg.Path)
		return store.NewBoltStore(db)
	}
}

func newUploader(ctx context.Context, cfg pkgconfig.BlobConfig, logger *slog.Logger) (*media.Uploader, error) {
	client, err := bootstrap.NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := media.NewMinioBlobStore(client, cfg.Bucket, cfg.PublicURL)
	if err != nil {
		return nil, err
	}
	bucketCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := blobs.EnsureBucket(bucketCtx); err != nil {
		// uploads report the failure when they happen
		logger.Warn("Blob bucket is not reachable", "bucket", cfg.Bucket, "error", err)
	}
	return media.NewUploader(blobs, cfg.Prefix, cfg.Timeout, logger), nil
}

func (d *Dependencies) openPublisher(ctx context.Context, cfg pkgconfig.NATSConfig, logger *slog.Logger) (messaging.Publisher, error) {
	if !cfg.Enabled {
		return messaging.NewLogPublisher(logger), nil
	}
	nc, err := natsclient.NewClient(cfg.Url, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() error { return nc.Drain() })
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := natsclient.EnsureStream(streamCtx, js, events.CatalogStream, events.CatalogSubjects); err != nil {
		return nil, fmt.Errorf("failed to prepare catalog stream: %w", err)
	}
	logger.Info("Publishing catalog events", "url", cfg.Url, "stream", events.CatalogStream)
	return natsclient.NewNatsPublisher(js), nil
}

// SetupHttpHandler builds the router with the local API routes.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	rest.NewHandler(deps.Catalog, deps.Pager, deps.Gate, deps.Logger).RegisterRoutes(mux)
	return mux
}

// SetupHttpServer creates the local API server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	httpCfg := server.HTTPConfig{
		Host:           cfg.HTTPServer.Host,
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, SetupHttpHandler(deps))
}
