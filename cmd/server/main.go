package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/ghst/configs"
	"github.com/maheshrc27/ghst/internal/api/handlers"
	"github.com/maheshrc27/ghst/internal/api/middleware"
	job "github.com/maheshrc27/ghst/internal/jobs"
	"github.com/maheshrc27/ghst/internal/platform"
	"github.com/maheshrc27/ghst/internal/queue"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/repository/memory"
	"github.com/maheshrc27/ghst/internal/service"
	"github.com/maheshrc27/ghst/internal/storage"
	"github.com/maheshrc27/ghst/internal/webhook"
	"github.com/maheshrc27/ghst/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file", "error", err.Error())
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	var (
		db    *sql.DB
		repos *repository.Repositories
	)
	if cfg.PostgresURI != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			fatal("failed to connect to database", err)
		}
		if err := db.PingContext(ctx); err != nil {
			fatal("database is unreachable", err)
		}
		repos = repository.NewPostgresRepositories(db)
	} else {
		slog.Warn("POSTGRES_URI is not set, using the in-memory store")
		repos = memory.NewRepositories()
	}

	var store storage.ObjectStore
	if cfg.R2.Configured() {
		r2, err := storage.NewR2Store(ctx, cfg.R2)
		if err != nil {
			fatal("failed to configure R2", err)
		}
		store = r2
	} else {
		slog.Warn("R2 is not configured, media is kept in memory")
		store = storage.NewMemoryStore(cfg.BaseURL + "/media")
	}

	if cfg.SecretKey == "" {
		slog.Warn("SECRET_KEY is not set, sessions and stored tokens are not protected")
	}
	cipher, err := utils.NewTokenCipher(cfg.TokenKey())
	if err != nil {
		fatal("failed to create token cipher", err)
	}

	if !cfg.LinkedInVerificationEnabled() {
		slog.Warn("LINKEDIN_WEBHOOK_SECRET is not set, LinkedIn webhooks are accepted without signature verification")
	}

	analyticsService := service.NewAnalyticsService(repos.PostAnalytics, repos.Followers, repos.Posts, repos.Accounts)
	postService := service.NewPostService(repos, store)
	accountService := service.NewAccountService(repos.Accounts, cipher)
	shareService := service.NewShareService(repos, store, cfg.BaseURL)
	reportService := service.NewReportService(repos, store)
	apiKeyService := service.NewApiKeyService(repos.ApiKeys)

	publisher := job.NewPublisherJob(repos, platform.NewDefaultRegistry(platform.Config{}), cipher, job.PublisherConfig{
		PostBatchSize:  cfg.Publisher.PostBatchSize,
		RetryBatchSize: cfg.Publisher.RetryBatchSize,
		RetryDelay:     cfg.Publisher.RetryDelay,
		MaxAttempts:    cfg.Publisher.RetryMaxAttempts,
	})
	oauthConfigs := platform.OAuthConfigs(cfg)
	refreshTokenJob := job.NewTokenRefreshJob(repos.Accounts, cipher, oauthConfigs)

	var (
		scheduler   queue.Scheduler
		asynqServer *asynq.Server
	)
	if cfg.RedisURI != "" {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client := asynq.NewClient(redisConn)
		defer client.Close()
		scheduler = queue.NewAsynqScheduler(client)

		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})
		queueW := queue.NewQueue(publisher)

		go func() {
			slog.Info("starting the asynq server")
			if err := asynqServer.Run(queueW.Mux()); err != nil {
				fatal("could not start asynq server", err)
			}
		}()
	} else {
		slog.Warn("REDIS_URI is not set, scheduled posts are published by the cron sweep only")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:        2 * time.Minute,
		WriteTimeout:       2 * time.Minute,
		BodyLimit:          100 * 1024 * 1024, // 100 MB
		JSONEncoder:        json.Marshal,
		JSONDecoder:        json.Unmarshal,
		ProxyHeader:        cfg.ProxyHeader,
		EnableIPValidation: cfg.ProxyHeader != "",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error("request failed", "path", c.Path(), "error", err.Error())
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if db != nil {
			if err := db.PingContext(c.Context()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "database unreachable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// public routes are registered before the /api group so the auth
	// middleware never sees platform deliveries
	deps := webhook.Deps{Accounts: repos.Accounts, Posts: repos.Posts, Sink: analyticsService}
	hooks := handlers.NewWebhookHandler(repos.WebhookLogs, cfg.Webhooks,
		webhook.NewFacebookProcessor(deps),
		webhook.NewTwitterProcessor(deps),
		webhook.NewLinkedInProcessor(deps),
	)
	app.Get("/api/webhooks/analytics/:platform", hooks.Verify)
	app.Post("/api/webhooks/analytics/:platform", hooks.Receive)
	app.All("/api/webhooks/analytics/:platform", hooks.MethodNotAllowed)

	sessions := session.New(session.Config{
		Expiration:     12 * time.Hour,
		KeyLookup:      "cookie:ghst_share",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.ProxyHeader != "",
	})
	shares := handlers.NewShareHandler(shareService, sessions)
	app.Get("/shared/report", shares.SharedReport)
	app.Post("/shared/report", shares.UnlockReport)
	app.Get("/shared/campaign", shares.SharedCampaign)
	app.Post("/shared/campaign", shares.UnlockCampaign)

	tick := job.NewTickGuard(publisher, job.MaxTickDuration)
	cronHandler := handlers.NewCronHandler(tick, cfg.CronSecret)
	app.Get("/cron", cronHandler.Run)
	app.Post("/cron", cronHandler.Run)

	authMiddleware := middleware.NewAuthMiddleware(cfg, apiKeyService)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, scheduler)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/history", post.PostHistory)
	api.Post("/posts/remove", post.RemovePost)
	api.Post("/media/upload", post.UploadMedia)
	api.Get("/retry_queue", post.RetryQueue)

	connect := handlers.NewPlatformHandler(service.NewPlatformService(cfg.SecretKey, oauthConfigs, accountService), cfg)
	app.Get("/auth/:platform/callback", connect.CallbackHandler)
	api.Get("/accounts/oauth/:platform", connect.AddSocialAccount)

	accounts := handlers.NewAccountHandler(accountService)
	api.Post("/accounts/connect", accounts.ConnectAccount)
	api.Get("/accounts", accounts.ListAccounts)
	api.Post("/accounts/remove", accounts.DeactivateAccount)

	analytics := handlers.NewAnalyticsHandler(analyticsService)
	api.Get("/analytics/posts", analytics.PostAnalytics)
	api.Get("/analytics/followers", analytics.FollowerHistory)

	reports := handlers.NewReportHandler(reportService)
	api.Post("/reports/create", reports.CreateReport)
	api.Post("/campaigns/create", reports.CreateCampaign)

	api.Post("/shares/create", shares.CreateShare)
	api.Get("/shares", shares.ListShares)
	api.Post("/shares/revoke", shares.RevokeShare)
	api.Get("/shares/access_log", shares.AccessLogs)

	// cron jobs
	c := cron.New()
	if err := c.AddFunc(cfg.Publisher.CronSchedule, func() {
		if err := tick.Tick(context.Background()); err != nil {
			slog.Error("publisher tick failed", "error", err.Error())
		}
	}); err != nil {
		fatal("invalid CRON_SCHEDULE", err)
	}
	if err := c.AddFunc("@every 00h10m00s", func() {
		if err := refreshTokenJob.RefreshTokens(context.Background()); err != nil {
			slog.Error("token refresh failed", "error", err.Error())
		}
	}); err != nil {
		fatal("invalid token refresh schedule", err)
	}
	c.Start()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			fatal("failed to start server", err)
		}
	}()
	slog.Info("server is running", "addr", "http://localhost:"+cfg.Port)

	gracefulShutdown(app, db, c, asynqServer)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err.Error())
	os.Exit(1)
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, c *cron.Cron, asynqServer *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	c.Stop()
	if asynqServer != nil {
		asynqServer.Shutdown()
	}
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		fatal("failed to shut down server", err)
	}

	closeDB(db)
	slog.Info("server shutdown complete")
}
