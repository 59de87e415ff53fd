package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tarkov-dev/site/internal/api"
	"github.com/tarkov-dev/site/internal/catalog"
	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/mapview"
	"github.com/tarkov-dev/site/internal/overlay"
	"github.com/tarkov-dev/site/internal/quests"
	"github.com/tarkov-dev/site/internal/server"
	"github.com/tarkov-dev/site/internal/storage"
	"github.com/tarkov-dev/site/pkg/core"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map pages, the map API and live map views",
	Long: `Loads the map catalog and the cached snapshot documents, then serves

  /maps/{id}          rendered map page
  /api/maps[/{id}]    map listing and map views as JSON
  /api/quests         quest store snapshot
  /ws/maps            live map view sessions

until interrupted.

Map annotations come from data.annotationsFile and from the cached maps
document. When both describe a map, the file wins for that map.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataCfg := config.GetDataConfig()
	if dataCfg.MapsFile == "" {
		return errors.New("data.mapsFile is not set")
	}
	maps, err := catalog.LoadFile(dataCfg.MapsFile, Logger)
	if err != nil {
		return err
	}
	Logger.Info("Loaded map catalog", "file", dataCfg.MapsFile, "maps", maps.Len())

	backend, err := openStorage(config.GetStorageConfig(), config.GetDatabaseConfig(), DBLogger, Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Warn("Failed to close storage backend", "error", err)
		}
	}()

	live, err := catalog.LoadLiveMaps(ctx, backend)
	if err != nil {
		// the static catalog is enough to serve
		Logger.Warn("Cached maps unavailable", "error", err)
	}
	maps = maps.WithBosses(live)

	annotations, err := loadAnnotations(dataCfg.AnnotationsFile, live)
	if err != nil {
		return err
	}

	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.URL, apiCfg.Timeout)
	store := quests.New(client, Logger.With("component", "quests"))
	if n, err := seedQuests(ctx, backend, store); err != nil {
		Logger.Warn("Cached quests unavailable", "error", err)
	} else {
		Logger.Info("Seeded quest store", "quests", n)
	}

	deps := server.Dependencies{
		Catalog:     maps,
		Annotations: annotations,
		Quests:      store,
		Engines:     mapview.SceneFactory{},
		Logger:      Logger.With("component", "server"),
	}
	if metrics := connectInflux(ctx); metrics != nil {
		defer func() { _ = metrics.Close() }()
		deps.Views = metrics
	}

	siteCfg := config.GetSiteConfig()
	overlayCfg := config.GetOverlayConfig()
	srv, err := server.New(deps, server.Options{
		Address: config.GetString("server.address"),
		View: mapview.Options{
			Resolver:        overlay.Resolver{AssetOrigin: config.GetString("assets.origin")},
			PublicURL:       siteCfg.PublicURL,
			SiteOrigin:      siteCfg.Origin,
			ShowAnnotations: overlayCfg.ShowAnnotations,
			MarkersVisible:  overlayCfg.MarkersVisible,
		},
		RefreshTimeout: apiCfg.Timeout,
		AllowedOrigin:  config.GetString("server.allowedOrigin"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			Logger.Warn("Failed to close server", "error", err)
		}
	}()

	if config.GetBool("server.refreshQuestsOnStart") {
		if err := srv.RefreshQuests(); err != nil {
			Logger.Warn("Failed to queue quest refresh", "error", err)
		}
	}

	err = srv.ListenAndServe(ctx)
	Logger.Info("Server stopped")
	return err
}

// seedQuests loads the quests written by the last cache run into the store.
func seedQuests(ctx context.Context, r storage.Backend, store *quests.Store) (int, error) {
	var cached []core.Quest
	err := r.ReadDocument(ctx, storage.DocQuests, &cached)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	store.Seed(cached)
	return len(cached), nil
}

// loadAnnotations merges the annotation file with the annotations of the cached maps.
// The file wins for every map it lists.
func loadAnnotations(path string, live []core.MapData) (core.Annotations, error) {
	fileAnnotations, err := catalog.LoadAnnotations(path)
	if err != nil {
		return nil, err
	}
	return catalog.MergeAnnotations(fileAnnotations, catalog.AnnotationsFromMaps(live)), nil
}
