package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/substudio/subtitle-translator/internal/config"
	"github.com/substudio/subtitle-translator/internal/httpapi"
	"github.com/substudio/subtitle-translator/internal/jobs"
	"github.com/substudio/subtitle-translator/internal/persistence"
	"github.com/substudio/subtitle-translator/internal/service"
	"github.com/substudio/subtitle-translator/internal/storage"
	"github.com/substudio/subtitle-translator/internal/translate"
	"github.com/substudio/subtitle-translator/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.LogLevel))

	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to open job store: %v", err)
	}
	defer store.Close()

	files, err := storage.NewManager(cfg.Storage.UploadDir, cfg.Storage.OutputDir, cfg.Storage.MaxFileSizeMB)
	if err != nil {
		log.Fatal("Failed to prepare storage directories: %v", err)
	}

	engine := translate.NewEngine(translate.Config{
		GeminiAPIKey: cfg.Translate.GeminiAPIKey,
		GeminiModel:  cfg.Translate.GeminiModel,
		DeepLAPIKey:  cfg.Translate.DeepLAPIKey,
		YandexAPIKey: cfg.Translate.YandexAPIKey,
	})
	log.Info("Available translation services: %v", engine.AvailableServices())

	queue := jobs.NewQueue(cfg.Jobs.Workers, store)
	executor := service.NewExecutor(engine, files, queue, cfg.Jobs.FileConcurrency)
	queue.Start(executor.Run)
	defer queue.Stop()

	cronRunner := cron.New()
	cleanup := service.NewCleanupService(
		store,
		queue,
		files,
		cronRunner,
		cfg.Jobs.CleanupCronExpr,
		time.Duration(cfg.Jobs.JobTTLHours)*time.Hour,
	)

	server := httpapi.NewServer(
		engine,
		queue,
		files,
		httpapi.WithUploadLimits(cfg.Storage.MaxFilesPerBatch, cfg.Storage.MaxFileSizeMB),
		httpapi.WithContextDefaults(cfg.Translate.UseContextPreservation, cfg.Translate.ContextWindowSize),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, cleanup, cronRunner, server); err != nil {
		log.Fatal("Server exited with error: %v", err)
	}
	log.Info("Shutdown complete")
}

func runWithComponents(ctx context.Context, cfg *config.Config, cleanup scheduler, cronRunner cronEngine, server httpServer) error {
	if err := cleanup.Schedule(ctx); err != nil {
		return err
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.Server.Addr())
		errCh <- server.ListenAndServe(cfg.Server.Addr())
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
