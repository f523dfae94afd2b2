package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskpulse/backend/api/handler"
	"github.com/taskpulse/backend/internal/config"
	"github.com/taskpulse/backend/internal/infrastructure/buffer"
	"github.com/taskpulse/backend/internal/infrastructure/delivery"
	"github.com/taskpulse/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskpulse/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskpulse/backend/internal/infrastructure/redis"
	"github.com/taskpulse/backend/internal/router"
	"github.com/taskpulse/backend/internal/services"
	"github.com/taskpulse/backend/internal/services/shutdown"
	"github.com/taskpulse/backend/pkg/httpcontext"
	"github.com/taskpulse/backend/pkg/logger"
	"github.com/taskpulse/backend/repository/postgres"
	redisRepo "github.com/taskpulse/backend/repository/redis"
	"github.com/taskpulse/backend/usecase/lifecycle"
	"github.com/taskpulse/backend/usecase/notify"
	"github.com/taskpulse/backend/usecase/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := shutdown.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "buffer")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool, redisClient, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	searchCache := redisRepo.NewCache(redisClient, cfg.Cache.SearchTTL)

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		taskRepo,
		notificationRepo,
		zapLogger,
		services.ProcessorConfig{
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
		},
	)
	bufferBridge := services.NewBufferBridge(bufferProcessor)

	dispatcher := notify.NewDispatcher(
		delivery.NewLogEmailSender(cfg.Delivery.EmailFrom, zapLogger),
		delivery.NewLogPushSender(zapLogger),
		zapLogger,
	)
	engine := notify.NewEngine(
		taskRepo,
		userRepo,
		notificationRepo,
		projectRepo,
		dispatcher,
		bufferBridge,
		cfg.Jobs.DueSoonWindow,
		zapLogger,
	)
	machine := lifecycle.New(taskRepo, engine, zapLogger)
	searchService := search.New(taskRepo, searchCache, cfg.Cache.SearchTTL, zapLogger)

	retention := time.Duration(cfg.Buffer.RetentionHours) * time.Hour
	scheduler, err := services.NewScheduler(cfg.Jobs, machine, engine, bufferProcessor, retention, zapLogger)
	if err != nil {
		zapLogger.Fatal("scheduler setup failed", zap.Error(err))
	}
	scheduler.Start()
	manager.Register("scheduler", func(ctx context.Context) error {
		scheduler.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	handlers := router.Handlers{
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		Search: apiHandler.NewSearchHandler(searchService, ctxAdapter, zapLogger),
	}
	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("worker started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
