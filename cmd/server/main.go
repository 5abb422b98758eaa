package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/yiyuan-he/agentic-enablement-eval/internal/config"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/database"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/handler"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/middleware"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/queue"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/repository"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/router"
	publisher "github.com/yiyuan-he/agentic-enablement-eval/internal/service"
	"github.com/yiyuan-he/agentic-enablement-eval/internal/storage"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s3Client, err := storage.NewS3Client(ctx, storage.Options{
		Region:       cfg.Region,
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		log.Fatalf("storage client: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadHeaderTimeout = 5 * time.Second
	if cfg.Env == "dev" {
		e.Logger.SetLevel(gommonlog.DEBUG)
	} else {
		e.Logger.SetLevel(gommonlog.INFO)
	}
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s status=%d latency=%s request_id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e, handler.NewHealthHandler(cfg.ServiceName))

	buckets := handler.NewBucketHandler(storage.NewS3Lister(s3Client), cfg.BucketsErrorStatus, cfg.ServiceName, cfg.Region)
	auditCfg := config.LoadAuditConfig()
	if auditCfg.Enabled {
		buckets.Recorder = publisher.NewListingPublisher(auditCfg.URL, auditCfg.Queue)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Printf("redis not configured or unreachable; response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	api := router.RegisterBuckets(e, buckets, router.APIMiddleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	if dbCfg := config.LoadDBConfig(); dbCfg.Enabled() {
		db, err := database.Open(ctx, dbCfg)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		listings := repository.NewBucketListingRepo(db)
		if err := listings.EnsureSchema(ctx); err != nil {
			log.Fatalf("database schema: %v", err)
		}
		router.RegisterHistory(api, handler.NewHistoryHandler(listings), cfg.JWTSecret)
		if auditCfg.ConsumerEnabled {
			go func() {
				if err := queue.StartListingConsumer(ctx, auditCfg.URL, auditCfg.Queue, listings); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("listing-consumer: stopped: %v", err)
				}
			}()
		}
	} else if auditCfg.ConsumerEnabled {
		log.Printf("AUDIT_CONSUMER_ENABLED set without DB_HOST/DB_NAME; consumer not started")
	}

	go func() {
		log.Printf("starting %s on port %d (env=%s, region=%s)", cfg.ServiceName, cfg.Port, cfg.Env, cfg.Region)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err) // Log and exit if the listener fails
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
