package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/Alexander-D-Karpov/campanula/internal/audio"
	"github.com/Alexander-D-Karpov/campanula/internal/config"
	"github.com/Alexander-D-Karpov/campanula/internal/handlers"
	"github.com/Alexander-D-Karpov/campanula/internal/logger"
	"github.com/Alexander-D-Karpov/campanula/internal/media"
	"github.com/Alexander-D-Karpov/campanula/internal/playback"
	"github.com/Alexander-D-Karpov/campanula/internal/registry"
	"github.com/Alexander-D-Karpov/campanula/internal/storage"
	"github.com/Alexander-D-Karpov/campanula/internal/ui"
)

const appID = "moe.caelum.campanula"

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	catalogPath = flag.String("catalog", "", "Path to a YAML catalog of works (overrides config)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	Version     = "dev"
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "campanula: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
	if *catalogPath != "" {
		cfg.Gallery.CatalogPath = *catalogPath
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting campanula",
		zap.String("version", Version),
		zap.String("database", cfg.Storage.DatabasePath),
		zap.String("cache_dir", cfg.Storage.CacheDir),
		zap.String("catalog", cfg.Gallery.CatalogPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("open cache database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("error closing database", zap.Error(err))
		}
	}()
	go pruneCache(ctx, db, cfg.Storage.MaxCacheMB, log)

	fetcher := audio.NewFetcher(audio.OptionsFromConfig(cfg), db, log)

	out, err := audio.Speaker(cfg.Audio.SampleRate, time.Duration(cfg.Audio.BufferMs)*time.Millisecond, log)
	if err != nil {
		// The gallery stays browsable; every play request reports the failure.
		log.Error("audio output unavailable", zap.Error(err))
	}
	defer audio.CloseSpeaker()

	factory := audio.NewFactory(fetcher, out, audio.HandleOptions{
		Tick:            time.Duration(cfg.Audio.TickMs) * time.Millisecond,
		ResampleQuality: cfg.Audio.ResampleQuality,
	}, log)

	images := media.NewImageLoader(fetcher, media.LoaderOptions{
		Timeout: time.Duration(cfg.Fetch.Timeout) * time.Second,
	}, log)
	defer images.Close()

	works, err := registry.Load(cfg.Gallery.CatalogPath, log)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	coord := playback.NewCoordinator(handlers.NewEventBus(), log,
		playback.WithVolume(cfg.Audio.DefaultVolume))

	gallery, err := ui.NewApp(ctx, app.NewWithID(appID), cfg, ui.Deps{
		Registry:    works,
		Coordinator: coord,
		Factory:     factory,
		Covers:      images,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer gallery.Close()

	covers := make([]string, 0, works.Len())
	for _, w := range works.Items() {
		covers = append(covers, w.Album.Cover)
	}
	images.Preload(covers)

	setupGracefulShutdown(cancel, gallery, log)
	gallery.ShowAndRun()
	return nil
}

func pruneCache(ctx context.Context, db *storage.Database, maxMB int64, log *zap.Logger) {
	if maxMB <= 0 {
		return
	}
	n, err := db.Prune(ctx, maxMB*1024*1024)
	if err != nil {
		log.Warn("cache prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("pruned cached files", zap.Int("removed", n), zap.Int64("limit_mb", maxMB))
	}
}

func setupGracefulShutdown(cancel context.CancelFunc, gallery *ui.App, log *zap.Logger) {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		sig := <-c
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))

		cancel()
		gallery.Close()
		audio.CloseSpeaker()
		_ = log.Sync()
		os.Exit(0)
	}()
}
