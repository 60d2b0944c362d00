package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamjudge/internal/common/cache"
	commonmw "streamjudge/internal/common/http/middleware"
	"streamjudge/internal/common/mq"
	"streamjudge/internal/common/storage"
	"streamjudge/internal/judge/controller"
	"streamjudge/internal/judge/execclient"
	"streamjudge/internal/judge/problemstore"
	"streamjudge/internal/judge/repository"
	"streamjudge/internal/judge/service"
	"streamjudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judged.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	// Redis is optional; without it every run resolves manifests from
	// object storage directly.
	var problemCache cache.Cache
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = redisCache.Close()
		}()
		problemCache = redisCache
	}

	problems, err := problemstore.NewStore(objStorage, problemCache, appCfg.Problem)
	if err != nil {
		logger.Error(context.Background(), "init problem store failed", zap.Error(err))
		return
	}

	backend, err := execclient.NewClient(appCfg.Backend)
	if err != nil {
		logger.Error(context.Background(), "init execution backend client failed", zap.Error(err))
		return
	}

	// Kafka is optional; without it run summaries are not published.
	var publisher repository.RunEventPublisher
	if len(appCfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = producer.Close()
		}()
		publisher = repository.NewMQRunEventPublisher(producer, appCfg.Judge.RunTopic)
	}

	judgeSvc, err := service.NewService(service.Config{
		Problems:    problems,
		Executor:    backend,
		Publisher:   publisher,
		OutputCap:   appCfg.Judge.OutputCap,
		EventBuffer: appCfg.Judge.EventBuffer,
	})
	if err != nil {
		logger.Error(context.Background(), "init judge service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, judgeSvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judged http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, judgeSvc *service.Service) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	judgeController := controller.NewJudgeController(judgeSvc)
	router.GET("/healthz", judgeController.Health)

	api := router.Group("/api/v1")
	api.POST("/judge", judgeController.Submit)
	api.GET("/problems", judgeController.ListProblems)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
