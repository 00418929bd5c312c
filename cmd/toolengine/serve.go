package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opsconductor/toolengine/internal/audit"
	"github.com/opsconductor/toolengine/internal/catalog"
	"github.com/opsconductor/toolengine/internal/config"
	"github.com/opsconductor/toolengine/internal/daemon/api"
	"github.com/opsconductor/toolengine/internal/database"
	"github.com/opsconductor/toolengine/internal/observability"
	"github.com/opsconductor/toolengine/internal/runner"
	"github.com/opsconductor/toolengine/internal/selector"
)

// cachePurgeInterval bounds how long an expired cache entry can linger
// without read traffic before the eviction counter reflects it.
const cachePurgeInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	dbCfg := database.DefaultConfig(cfg.Database.Path)
	dbCfg.MaxOpenConns = cfg.Database.MaxConnections
	dbCfg.BusyTimeout = cfg.Database.BusyTimeout

	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	registry, err := buildRegistry(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	sel := selector.New(selector.NewFTSSource(db), cfg.Selector, metrics, logger)
	run := runner.New(registry, cfg.Runner, metrics, logger)

	destination, err := buildDestination(cfg, db, logger)
	if err != nil {
		return err
	}
	sink := audit.NewSink(destination, cfg.Audit.QueueSize, logger)
	sink.Start(ctx)
	defer sink.Stop()

	server := api.NewServer(*cfg, registry, sel, run, sink, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	// SIGHUP reloads the catalog without a restart. A failed refresh keeps
	// the previous index serving.
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				result, err := registry.Refresh(gctx)
				if err != nil {
					continue
				}
				if cfg.Catalog.Source != "database" {
					if err := syncCatalogToDatabase(gctx, registry, db); err != nil {
						logger.Error("failed to sync refreshed catalog into search index", "error", err)
						continue
					}
				}
				logger.Info("catalog reloaded on SIGHUP",
					"loaded", result.Loaded,
					"skipped", result.Skipped)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(cachePurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if removed := sel.PurgeExpired(); removed > 0 {
					logger.Debug("purged expired cache entries", "removed", removed)
				}
			}
		}
	})

	err = g.Wait()
	logger.Info("engine stopped")
	return err
}

// buildRegistry loads the catalog from the configured source. File-sourced
// catalogs are also synced into the tool_specs table so the FTS index
// serves candidate search. A failed first load is fatal: the engine never
// starts with an empty catalog.
func buildRegistry(ctx context.Context, cfg *config.Config, db *database.DB, logger *slog.Logger) (*catalog.Registry, error) {
	var store catalog.Store
	switch cfg.Catalog.Source {
	case "database":
		store = catalog.NewDBStore(db)
	default:
		store = catalog.NewFileStore(cfg.Catalog.Path)
	}

	registry := catalog.NewRegistry(store, logger)
	result, err := registry.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}
	logger.Info("tool catalog loaded",
		"source", cfg.Catalog.Source,
		"loaded", result.Loaded,
		"skipped", result.Skipped)

	if cfg.Catalog.Source != "database" {
		if err := syncCatalogToDatabase(ctx, registry, db); err != nil {
			return nil, fmt.Errorf("failed to sync catalog into search index: %w", err)
		}
	}

	return registry, nil
}

// syncCatalogToDatabase replaces the persisted spec rows with the
// registry's current contents. The FTS triggers keep the search index in
// step with the table.
func syncCatalogToDatabase(ctx context.Context, registry *catalog.Registry, db *database.DB) error {
	dao := database.NewToolSpecDAO(db)
	if err := dao.DeleteAll(ctx); err != nil {
		return err
	}
	for _, spec := range registry.List("", "") {
		if err := dao.Upsert(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// buildDestination maps the configured audit destination onto a writer.
func buildDestination(cfg *config.Config, db *database.DB, logger *slog.Logger) (audit.Destination, error) {
	switch cfg.Audit.Destination {
	case "log":
		return audit.NewLogDestination(logger), nil
	case "stdout":
		return audit.NewStreamDestination(os.Stdout), nil
	case "database":
		return audit.NewDBDestination(db), nil
	default:
		return nil, fmt.Errorf("unknown audit destination %q", cfg.Audit.Destination)
	}
}
