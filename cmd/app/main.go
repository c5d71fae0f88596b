package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lastmile/cmd"
	"lastmile/internal/adapters/out/kafka"
	"lastmile/internal/adapters/out/postgres"
	"lastmile/internal/adapters/out/redis"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	goredis "github.com/redis/go-redis/v9"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(".env"); err != nil {
		logger.Info("No .env file loaded, using the process environment")
	}
	configs, err := cmd.LoadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	gormDB, err := gorm.Open(gormpostgres.Open(configs.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err = postgres.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var notifications kafka.MessageWriter
	if len(configs.KafkaBrokers) > 0 {
		writer := kafka.NewWriter(configs.KafkaBrokers, configs.KafkaDeliveryStatusTopic)
		defer func() { _ = writer.Close() }()
		notifications = writer
	}

	var redisClient goredis.Cmdable
	if configs.RedisAddr != "" {
		client := redis.NewClient(configs.RedisAddr)
		defer func() { _ = client.Close() }()
		redisClient = client
	}

	app, err := cmd.NewCompositionRoot(configs, gormDB, notifications, redisClient, logger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Failed to start jobs: %v", err)
	}
	defer jobManager.StopAll()

	startWebServer(app, configs.HTTPPort, logger)
}

func startWebServer(app cmd.CompositionRoot, port string, logger *slog.Logger) {
	e, err := app.CreateRouter()
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}
