package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"parcel-dispatch-service/internal/adapters/cache"
	"parcel-dispatch-service/internal/adapters/events"
	"parcel-dispatch-service/internal/adapters/filestore"
	"parcel-dispatch-service/internal/adapters/geocoding"
	"parcel-dispatch-service/internal/adapters/repositories"
	"parcel-dispatch-service/internal/api"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/platform/db"
	"parcel-dispatch-service/internal/platform/logging"
	"parcel-dispatch-service/internal/ports"
	"parcel-dispatch-service/internal/services"
	"syscall"
	"time"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, geocoder, cache, NATS) behind ports and starts the HTTP server.
func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := repositories.InitSchema(ctx, conn); err != nil {
		return err
	}

	geocoder, closeCache, err := buildGeocoder(ctx, cfg, conn)
	if err != nil {
		return err
	}
	defer closeCache()

	var publisher ports.StatusEventPublisher
	if cfg.NATS.URL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, status events disabled", "err", err)
		} else {
			defer nc.Close()
			publisher = nc
		}
	}

	repo := repositories.NewPostgresParcelRepository(conn)
	planner := services.NewRoutePlanner(repo, geocoder,
		services.WithConcurrency(cfg.Geocoder.Concurrency),
		services.WithRetryBackoff(cfg.Geocoder.RetryBackoff()),
	)
	updater := services.NewStatusUpdater(repo, filestore.NewOSFileStore(cfg.Storage.ProofDir), publisher)

	router := api.NewRouter(api.Dependencies{
		Planner:        planner,
		Queries:        services.NewAgentParcels(repo),
		Updater:        updater,
		RequestTimeout: cfg.Server.RequestTimeoutDuration(),
		MaxUploadBytes: int64(cfg.Server.MaxUploadBytes),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "geocoder", cfg.Geocoder.Provider, "cache", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildGeocoder selects the geocoding provider and wraps it with the configured cache backend.
func buildGeocoder(ctx context.Context, cfg *config.Config, conn *sql.DB) (ports.Geocoder, func(), error) {
	var base ports.Geocoder
	switch cfg.Geocoder.Provider {
	case "ors":
		g, err := geocoding.NewORSGeocoder(cfg.Geocoder.ORSAPIKey, cfg.Geocoder.ORSURL, cfg.Geocoder.Country)
		if err != nil {
			return nil, nil, err
		}
		base = g
	default:
		base = geocoding.NewNominatimGeocoder(cfg.Geocoder.NominatimURL, cfg.Geocoder.UserAgent, cfg.Geocoder.RegionSuffix)
	}

	noop := func() {}

	switch cfg.Cache.Backend {
	case "postgres":
		return geocoding.NewCachingGeocoder(base, cache.NewPostgresGeocodeCache(conn)), noop, nil
	case "sqlite":
		c, err := cache.OpenSqliteGeocodeCache(cfg.Cache.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return geocoding.NewCachingGeocoder(base, c), closeQuietly(c), nil
	case "redis":
		c, err := cache.OpenRedisGeocodeCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL())
		if err != nil {
			slog.Warn("redis unavailable, geocoding without cache", "err", err)
			return base, noop, nil
		}
		return geocoding.NewCachingGeocoder(base, c), closeQuietly(c), nil
	default:
		return base, noop, nil
	}
}

func closeQuietly(c io.Closer) func() {
	return func() { _ = c.Close() }
}
