// Command cron runs a single publisher tick: due posts, then the retry
// queue. It is meant to be invoked by the system scheduler.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/ghst/configs"
	job "github.com/maheshrc27/ghst/internal/jobs"
	"github.com/maheshrc27/ghst/internal/platform"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/pkg/utils"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file", "error", err.Error())
	}
	cfg := config.LoadConfig()

	if cfg.PostgresURI == "" {
		slog.Error("POSTGRES_URI is required")
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelRun := context.WithTimeout(ctx, job.MaxTickDuration)
	defer cancelRun()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		slog.Error("failed to connect to database", "error", err.Error())
		return 1
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		slog.Error("database is unreachable", "error", err.Error())
		return 1
	}

	cipher, err := utils.NewTokenCipher(cfg.TokenKey())
	if err != nil {
		slog.Error("failed to create token cipher", "error", err.Error())
		return 1
	}

	publisher := job.NewPublisherJob(repository.NewPostgresRepositories(db), platform.NewDefaultRegistry(platform.Config{}), cipher, job.PublisherConfig{
		PostBatchSize:  cfg.Publisher.PostBatchSize,
		RetryBatchSize: cfg.Publisher.RetryBatchSize,
		RetryDelay:     cfg.Publisher.RetryDelay,
		MaxAttempts:    cfg.Publisher.RetryMaxAttempts,
	})

	start := time.Now()
	if err := publisher.Tick(ctx); err != nil {
		slog.Error("publisher tick failed", "error", err.Error())
		return 1
	}
	slog.Info("publisher tick complete", "duration", time.Since(start).String())
	return 0
}
