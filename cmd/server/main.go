package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/api"
	"github.com/khabaznak/gym-tracker/internal/config"
	"github.com/khabaznak/gym-tracker/internal/logging"
	"github.com/khabaznak/gym-tracker/internal/metrics"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/repository/memory"
	"github.com/khabaznak/gym-tracker/internal/repository/mongo"
	"github.com/khabaznak/gym-tracker/internal/repository/postgres"
	"github.com/khabaznak/gym-tracker/internal/service"
	"github.com/khabaznak/gym-tracker/internal/storage"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	closeLog := logging.Setup(cfg.Log)
	defer closeLog()
	log.Println("starting gym tracker server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Metrics ---
	var (
		metricsManager *metrics.Manager
		gatherer       prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metricsManager = metrics.NewManager(cfg.Metrics.Namespace, "server", reg)
		gatherer = reg
	}

	// --- Store ---
	store, closeStore := openStore(ctx, cfg.Database)
	defer closeStore()

	// --- File Storage ---
	var files storage.FileStorage
	if cfg.S3.Enabled() {
		files, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("failed to initialize s3 storage: %v", err)
		}
		log.Printf("video uploads go to bucket %s", cfg.S3.BucketName)
	} else {
		log.Warn("s3 is not configured, video uploads are disabled")
	}

	// --- Services ---
	opts := []service.Option{service.WithMetrics(metricsManager)}
	services := api.Services{
		Exercises: service.NewExerciseService(store, files, opts...),
		Workouts:  service.NewWorkoutService(store, opts...),
		Plans:     service.NewPlanService(store, opts...),
		Sessions:  service.NewSessionService(store, opts...),
	}

	gin.SetMode(cfg.Server.GinMode)
	router := api.NewRouter(services, metricsManager, gatherer)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.MethodOverride(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		log.Printf("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen and serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	log.Println("server exiting")
}

// openStore connects the configured driver. A driver without a connection
// URI yields a store that answers every call with "not configured", so the
// server still starts and reports the problem per request.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, func()) {
	noop := func() {}

	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), noop

	case config.DriverMongo:
		if cfg.URI == "" {
			log.Warn("database uri is empty, requests will fail with 501")
			return repository.Unconfigured{}, noop
		}
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			log.Fatalf("could not connect to mongodb: %v", err)
		}
		db := client.Database(cfg.Name)
		go func() {
			idxCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			mongo.EnsureIndexes(idxCtx, db)
		}()
		return mongo.NewStore(db), func() {
			if err := mongo.DisconnectDB(client); err != nil {
				log.Errorf("failed to disconnect mongodb: %v", err)
			}
		}

	default:
		if cfg.URI == "" {
			log.Warn("database uri is empty, requests will fail with 501")
			return repository.Unconfigured{}, noop
		}
		pool, err := postgres.NewDBPool(ctx, cfg.URI)
		if err != nil {
			log.Fatalf("could not connect to postgres: %v", err)
		}
		return postgres.NewStore(pool), pool.Close
	}
}
