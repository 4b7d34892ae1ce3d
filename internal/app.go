package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"media-portfolio-api/config"
	"media-portfolio-api/internal/application/ports"
	"media-portfolio-api/internal/application/services"
	domain "media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/infrastructure/batchstatus"
	"media-portfolio-api/internal/infrastructure/db/postgres"
	"media-portfolio-api/internal/infrastructure/db/postgres/media"
	"media-portfolio-api/internal/infrastructure/jwt"
	"media-portfolio-api/internal/infrastructure/metrics"
	"media-portfolio-api/internal/infrastructure/mq"
	"media-portfolio-api/internal/infrastructure/s3"
	"media-portfolio-api/internal/interface/api/rest"
	"media-portfolio-api/internal/interface/api/rest/middleware"
	"media-portfolio-api/pkg/rmqconsumer"
)

type App struct {
	logger     *zap.Logger
	cfg        config.Config
	db         *pgxpool.Pool
	mediaRepo  domain.Repository
	redis      *redis.Client
	s3         ports.BlobStore
	statuses   ports.BatchStatusStore
	httpSrv    *http.Server
	router     *gin.Engine
	mCounter   *prometheus.CounterVec
	blobTiming *prometheus.HistogramVec
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer
}

func NewApp(ctx context.Context) (*App, error) {
	// logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// config
	if err = godotenv.Load(".env"); err != nil {
		logger.Warn("no .env file, using process environment", zap.Error(err))
	}
	cfg := config.Load()

	// metrics
	mCounter := metrics.NewCounter()
	blobTiming := metrics.NewBlobDuration()

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogGin(logger, mCounter))

	// httpServer
	httpSrv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		logger.Fatal("DB config error", zap.Error(err))
	}
	dbPool, err := postgres.New(ctx, logger, dbDsn, cfg.DB.MaxConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// s3
	s3Client, err := s3.New(ctx, logger, cfg.S3)
	if err != nil {
		logger.Fatal("failed to connect to S3", zap.Error(err))
	}

	// batch statuses
	var (
		redisClient *redis.Client
		statuses    ports.BatchStatusStore
	)
	if addr := cfg.RedisAddr(); addr != "" {
		redisClient, err = batchstatus.Connect(ctx, logger, addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		statuses = batchstatus.NewRedis(redisClient, cfg.Redis.StatusTTL)
	} else {
		logger.Info("redis not configured, batch statuses kept in memory")
		statuses = batchstatus.NewMemory(cfg.Redis.StatusTTL)
	}

	// rabbitMQ
	rabbitDsn, err := cfg.AMQPDSN()
	if err != nil {
		logger.Fatal("RabbitMQ config error", zap.Error(err))
	}
	rbMQ := mq.New(cfg.MQ, logger)
	if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
		logger.Fatal("failed to connect to rabbitMQ", zap.Error(err))
	}
	if err = rbMQ.Init(); err != nil {
		logger.Fatal("failed init rabbitMQ", zap.Error(err))
	}
	// rmqConsumer: orphaned blob reconciliation
	mediaRepo := media.NewRepository(dbPool)
	rmqConsumer := rmqconsumer.New(cfg.MQ, logger, s3Client, mediaRepo, mCounter)
	if err = rmqConsumer.Connect(rabbitDsn); err != nil {
		logger.Fatal("failed to connect rabbitMQ consumer", zap.Error(err))
	}
	if err = rmqConsumer.Init(); err != nil {
		logger.Fatal("failed to init rabbitMQ consumer", zap.Error(err))
	}

	return &App{
		logger:     logger,
		cfg:        cfg,
		db:         dbPool,
		mediaRepo:  mediaRepo,
		redis:      redisClient,
		s3:         s3Client,
		statuses:   statuses,
		httpSrv:    httpSrv,
		router:     r,
		mCounter:   mCounter,
		blobTiming: blobTiming,
		mq:         rbMQ,
		mqConsumer: rmqConsumer,
	}, nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mq.GetConn() != nil {
		a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.cfg.App.Host+":"+a.cfg.App.Port))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	// the publisher outlives the http server so events from draining
	// requests still reach the buffer before it is flushed
	pubCtx, pubCancel := context.WithCancel(context.Background())
	defer pubCancel()
	g.Go(func() error {
		a.mq.PublisherWorker(pubCtx)
		return nil
	})

	g.Go(func() error {
		a.mqConsumer.DeliveryWorker(ctx)
		return nil
	})

	<-ctx.Done()

	// uploads in flight run on a detached context, give them time to land
	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := stopServing(shutdownCtx, a.httpSrv, pubCancel); err != nil {
		a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
		_ = g.Wait()
		return err
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

// stopServing waits for in-flight requests, then stops the publisher. The
// publisher flushes its buffer once stopPublisher is called.
func stopServing(ctx context.Context, srv *http.Server, stopPublisher context.CancelFunc) error {
	defer stopPublisher()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

func (a *App) InitControllers() {
	// services
	jwtService := jwt.New(a.cfg.App.JWTSecret)
	quota := services.NewQuotaTracker(a.mediaRepo, services.Limits{
		MaxImages:    a.cfg.Media.MaxImages,
		MaxVideos:    a.cfg.Media.MaxVideos,
		MaxFileBytes: a.cfg.Media.MaxFileBytes,
	})
	uploadService := services.NewUploadService(
		a.s3,
		a.mediaRepo,
		quota,
		a.statuses,
		a.mq,
		a.logger,
		a.mCounter,
		a.blobTiming,
		services.UploadOptions{
			Concurrency:          a.cfg.Media.UploadConcurrency,
			ThumbnailPlaceholder: a.cfg.Media.ThumbnailPlaceholder,
		},
	)
	lifecycleService := services.NewLifecycleService(
		a.mediaRepo,
		a.s3,
		quota,
		a.mq,
		a.logger,
		a.mCounter,
		a.blobTiming,
		a.cfg.Media.ThumbnailPlaceholder,
	)

	// controllers
	rest.NewMediaController(a.router, uploadService, lifecycleService, a.logger, jwtService, a.cfg.Media)
	rest.NewBatchController(a.router, uploadService, a.logger, jwtService)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) Logger() *zap.Logger { return a.logger }
