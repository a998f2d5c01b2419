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

	"daily-bars/internal/bot"
	"daily-bars/internal/cache"
	"daily-bars/internal/config"
	"daily-bars/internal/db"
	"daily-bars/internal/handler"
	"daily-bars/internal/job"
	"daily-bars/internal/provider"
	"daily-bars/internal/quota"
	"daily-bars/internal/repository"
	"daily-bars/internal/service"
	"daily-bars/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newBarRepoFunc   = repository.NewBarRepository
	newSchedulerFunc = job.NewScheduler
	startSchedulerFunc = func(s *job.Scheduler, ctx context.Context) {
		go func() {
			if err := s.Run(ctx); err != nil {
				log.Fatalf("scheduler stopped: %v", err)
			}
		}()
	}
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Repository and migrations
	barRepo := newBarRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := barRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Provider, quota tracker, and services
	avClient := provider.NewAlphaVantageClient(tracer, cfg.AlphaVantageAPIKey,
		time.Duration(cfg.CallDelaySecs)*time.Second)
	tracker := quota.NewFileTracker(cfg.QuotaFile)

	ingestService := service.NewIngestService(tracer, avClient, barRepo, tracker, cache.Client)
	backfillService := service.NewBackfillService(tracer, barRepo, cfg.IndicatorWindow)

	// Daily ingest scheduler (background goroutine, stopped by ctx cancel)
	scheduler := newSchedulerFunc(tracer, tracker, ingestService, backfillService,
		cfg.Symbols, cfg.MaxCallsPerDay)
	startSchedulerFunc(scheduler, ctx)

	// Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(ingestService, cfg.Symbols, cfg.MaxCallsPerDay)

	// Handlers and routes
	h := newHandlerFunc(tracer, ingestService, cfg.Symbols, cfg.MaxCallsPerDay)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("daily-bars"))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
