package main

import (
	"context"
	"errors"
	"fmt"
	"kaizencoach/plan-service/internal/api"
	"kaizencoach/plan-service/internal/config"
	"kaizencoach/plan-service/internal/lock"
	"kaizencoach/plan-service/internal/logger"
	"kaizencoach/plan-service/internal/metrics"
	"kaizencoach/plan-service/internal/repository"
	"kaizencoach/plan-service/internal/repository/memory"
	"kaizencoach/plan-service/internal/repository/mongo"
	"kaizencoach/plan-service/internal/service"
	"kaizencoach/plan-service/internal/storage"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	live     repository.LivePlanRepository
	archive  repository.PlanArchiveRepository
	profiles repository.AthleteProfileRepository
	close    func()
}

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited with error", "error", err)
	}
	log.Info("Server exiting.")
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	log.Info("Starting plan service",
		"database", cfg.Database.Backend,
		"storage", cfg.Storage.Backend,
		"lock", cfg.Lock.Backend,
	)

	// --- Repositories ---
	repos, err := openRepositories(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer repos.close()

	// --- Snapshot Storage ---
	fileStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	// --- Athlete Lock ---
	locker, closeLocker, err := openLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	// --- Services ---
	m := metrics.New()
	archiveService := service.NewArchiveService(repos.archive, fileStorage, cfg.Archive, m, log)
	athleteService := service.NewAthleteService(repos.profiles)
	planService := service.NewPlanService(repos.live, archiveService, athleteService, locker, m, log)

	// --- HTTP ---
	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log))
	api.SetupRoutes(router, cfg.JWT.Secret, planService, archiveService, athleteService, m, log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*repositories, error) {
	if cfg.Backend == "memory" {
		log.Warn("Using in-memory repositories; plans are lost on restart")
		return &repositories{
			live:     memory.NewLivePlanRepository(),
			archive:  memory.NewPlanArchiveRepository(),
			profiles: memory.NewAthleteProfileRepository(),
			close:    func() {},
		}, nil
	}

	client, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.Name)

	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx, db); err != nil {
		_ = mongo.DisconnectDB(client)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("Database connection established", "name", cfg.Name)

	return &repositories{
		live:     mongo.NewMongoLivePlanRepository(db),
		archive:  mongo.NewMongoPlanArchiveRepository(db),
		profiles: mongo.NewMongoAthleteProfileRepository(db),
		close: func() {
			if err := mongo.DisconnectDB(client); err != nil {
				log.Error("Failed to disconnect MongoDB", "error", err)
			}
		},
	}, nil
}

// openStorage returns nil when oversized snapshots should stay inline.
func openStorage(ctx context.Context, cfg config.Config, log *logger.Logger) (storage.FileStorage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		fs, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("initialize S3 storage: %w", err)
		}
		return fs, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, nil
	}
}

func openLocker(ctx context.Context, cfg config.Config, log *logger.Logger) (lock.Locker, func(), error) {
	if cfg.Lock.Backend != "redis" {
		return lock.NewMutexMap(), func() {}, nil
	}
	rl, err := lock.NewRedisLocker(ctx, cfg.Redis, cfg.Lock, log)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize redis lock: %w", err)
	}
	return rl, func() { _ = rl.Close() }, nil
}
