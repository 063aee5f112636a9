package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lendhub/internal/api"
	"lendhub/internal/config"
	"lendhub/internal/database"
	"lendhub/internal/domain"
	"lendhub/internal/events"
	"lendhub/internal/export"
	"lendhub/internal/google"
	"lendhub/internal/logging"
	"lendhub/internal/metrics"
	"lendhub/internal/models"
	"lendhub/internal/notify"
	"lendhub/internal/repository"
	"lendhub/internal/service"
	"lendhub/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedData(db, &logger); err != nil {
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache := buildAnnotationCache(cfg, redisClient, &logger)
	bus := events.NewEventBus()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := initSyncWorker(ctx, cfg, db, redisClient, &logger)
	initNotifier(cfg, bus, db, &logger)

	clock := service.SystemClock()
	bookingService := service.NewBookingService(db, db, db, clock, bus, syncWorker, cache, &logger)
	itemService := service.NewItemService(db, db, db, db, cache, clock, &logger)
	userService := service.NewUserService(db, &logger)
	exporter := export.NewExporter(db, db, db, exportsPath(), &logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, itemService, userService, exporter, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedData loads optional users/items from SEED_PATH into an empty database.
func seedData(db *database.DB, logger *zerolog.Logger) error {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = "configs/seed.yaml"
	}
	data, err := os.ReadFile(seedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read seed")
		return err
	}

	var seed struct {
		Users []models.User `yaml:"users"`
		Items []models.Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse seed")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := db.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for i := range seed.Users {
		if err := db.CreateUser(ctx, &seed.Users[i]); err != nil {
			return fmt.Errorf("seed user %q: %w", seed.Users[i].Name, err)
		}
	}
	for i := range seed.Items {
		if err := db.CreateItem(ctx, &seed.Items[i]); err != nil {
			return fmt.Errorf("seed item %q: %w", seed.Items[i].Name, err)
		}
	}
	logger.Info().Int("users", len(seed.Users)).Int("items", len(seed.Items)).Msg("seed data loaded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildAnnotationCache prefers Redis with an in-memory failover; without
// Redis the in-memory cache serves alone.
func buildAnnotationCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.AnnotationCache {
	ttl := time.Duration(cfg.Cache.AnnotationTTLSeconds) * time.Second
	memory := repository.NewMemoryAnnotationCache(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisAnnotationCache(redisClient, ttl)
	return repository.NewFailoverAnnotationCache(primary, memory, logger)
}

func initSyncWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if !cfg.Sync.Enabled {
		return nil
	}
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		logger.Warn().Msg("sync enabled but google sheets is not configured, skipping")
		return nil
	}

	sheets, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sync")
		return nil
	}
	logger.Info().Msg("google sheets connected")

	workerLogger := logger.With().Str("component", "sync-worker").Logger()
	syncWorker := worker.NewSyncWorker(db, sheets, redisClient, worker.RetryPolicy{
		MaxRetries: cfg.Sync.MaxRetries,
	}, &workerLogger)
	go syncWorker.Start(ctx)
	return syncWorker
}

func initNotifier(cfg *config.Config, bus *events.EventBus, items domain.ItemDirectory, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.Chats) == 0 {
		return
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	bot.Debug = cfg.Telegram.Debug

	notifierLogger := logger.With().Str("component", "notify").Logger()
	notifier := notify.NewNotifier(bot, items, cfg.Telegram.Chats, &notifierLogger)
	notifier.Register(bus)
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
}

func exportsPath() string {
	if path := os.Getenv("EXPORTS_PATH"); path != "" {
		return path
	}
	return "exports"
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
