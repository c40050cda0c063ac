package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/auth"
	"pos-service/internal/broker"
	"pos-service/internal/memstore"
	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/seed"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pos service")

	tp, err := util.InitTracer("pos-service", cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer util.ShutdownTracer(tp)

	decimal.MarshalJSONWithoutQuotes = true

	repo, err := openRepository(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer repo.Close()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := initRepository(initCtx, repo, cfg.Auth); err != nil {
		initCancel()
		log.Fatalf("Failed to initialize store: %v", err)
	}
	initCancel()
	logger.Info("Store ready", zap.String("driver", cfg.Database.Driver))

	var cache service.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBill)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicBill))
	}

	cartPolicy, err := service.NewCartPolicy(cfg.Business.CartPolicy)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	statusPolicy, err := service.NewStatusPolicy(cfg.Business.StatusPolicy)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	seq := service.SequenceFormat{Prefix: cfg.Business.SequencePrefix, Width: cfg.Business.SequenceWidth}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	reportService := service.NewReportService(repo, cache, cfg.Business.ReportCacheTTL, cfg.Business.Location())
	services := api.Services{
		Auth:    service.NewAuthService(repo, tokens),
		Catalog: service.NewCatalogService(repo, cache, cfg.Business.CatalogTTL),
		Billing: service.NewBillingService(repo, repo, publisher, reportService, cartPolicy, seq),
		Refunds: service.NewRefundService(repo, publisher, reportService, statusPolicy),
		Reports: reportService,
		Store:   repo,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var reportWorker *worker.ReportCacheWorker
	if cfg.Kafka.Enabled && cfg.Redis.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBill, cfg.Kafka.ConsumerGroup)
		reportWorker = worker.NewReportCacheWorker(consumer, reportService)
		go func() {
			if err := reportWorker.Start(workerCtx); err != nil {
				logger.Error("Report cache worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, cfg.Auth)
	handler.SetupRoutes(router, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if reportWorker != nil {
		if err := reportWorker.Stop(); err != nil {
			logger.Warn("Failed to stop report cache worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func openRepository(cfg config.DatabaseConfig) (service.Repository, error) {
	switch cfg.Driver {
	case "postgres", "":
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
}

// initRepository applies the schema and seeds operators and, optionally, the menu.
// Existing rows are left alone.
func initRepository(ctx context.Context, repo service.Repository, cfg config.AuthConfig) error {
	accounts := seed.Accounts(cfg.SeedAdminPassword, cfg.SeedStaffUsername, cfg.SeedStaffPassword)
	operators := make([]models.Operator, 0, len(accounts))
	for _, a := range accounts {
		hash, err := auth.HashPassword(a.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", a.Username, err)
		}
		operators = append(operators, models.Operator{Username: a.Username, PasswordHash: hash, Role: a.Role})
	}

	var menu []models.Item
	if cfg.SeedCatalog {
		menu = seed.Menu()
	}
	return repo.Init(ctx, operators, menu)
}
