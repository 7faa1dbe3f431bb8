package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/health"

	grpchealth "github.com/dtroode/kychat-server/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/kychat-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/kychat-server/internal/api/grpc/server"
	httpcontext "github.com/dtroode/kychat-server/internal/api/http/context"
	httprouter "github.com/dtroode/kychat-server/internal/api/http/router"
	httpserver "github.com/dtroode/kychat-server/internal/api/http/server"
	"github.com/dtroode/kychat-server/internal/config"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/realtime"
	"github.com/dtroode/kychat-server/internal/repository/memory"
	"github.com/dtroode/kychat-server/internal/repository/postgres"
	"github.com/dtroode/kychat-server/internal/repository/redis"
	"github.com/dtroode/kychat-server/internal/server"
	"github.com/dtroode/kychat-server/internal/service"
	storage "github.com/dtroode/kychat-server/internal/storage/minio"
	"github.com/dtroode/kychat-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	checker := grpchealth.NewChecker(health.NewServer(), cfg.GRPC.HealthInterval, logger)
	checker.Add("postgres", db)

	queue, closeQueue := newQueue(ctx, cfg, db, checker, logger)
	defer closeQueue()

	storageClient, err := storage.New(ctx, storage.Options{
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Bucket:        cfg.Storage.Bucket,
		UseSSL:        cfg.Storage.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	userRepo := postgres.NewUserRepository(db)
	channelRepo := postgres.NewChannelRepository(db)
	joinRequestRepo := postgres.NewJoinRequestRepository(db)
	publicKeyRepo := postgres.NewPublicKeyRepository(db)
	fileRepo := postgres.NewFileRepository(db)

	registry := realtime.NewRegistry(logger)
	deliveryRouter := realtime.NewRouter(registry, queue, logger,
		realtime.WithQueueOnWriteFailure(cfg.Realtime.QueueOnWriteFailure))

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	tokenService := service.NewTokenService(tokenManager, logger)
	authService := service.NewAuth(userRepo, service.NewPasswordHasher(bcrypt.DefaultCost), tokenService, logger)
	userService := service.NewUser(userRepo, storageClient, logger)
	channelService := service.NewChannel(channelRepo, joinRequestRepo, publicKeyRepo, userRepo, deliveryRouter, logger)
	fileService := service.NewFiles(fileRepo, storageClient, cfg.Files.TTL, cfg.HTTP.MaxUploadBytes, logger)
	cleaner := service.NewFileCleaner(fileRepo, storageClient, cfg.Files.CleanupInterval, cfg.Files.CleanupBatch, logger)

	wsHandler := realtime.NewHandler(tokenService, registry, deliveryRouter, queue, realtime.HandlerOptions{
		Conn: realtime.ConnOptions{
			WriteTimeout:    cfg.Realtime.WriteTimeout,
			PingInterval:    cfg.Realtime.PingInterval,
			MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
		},
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
		EventRate:      cfg.Realtime.EventRate,
		EventBurst:     cfg.Realtime.EventBurst,
	}, logger)

	api := httprouter.New(
		httprouter.Services{
			Auth:    authService,
			User:    userService,
			Channel: channelService,
			File:    fileService,
			Token:   tokenService,
		},
		wsHandler,
		db,
		registry,
		httpcontext.NewManager(),
		httprouter.Config{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AuthRPS:        cfg.RateLimit.AuthRPS,
			AuthBurst:      cfg.RateLimit.AuthBurst,
			MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		},
		logger,
	)

	httpSrv := httpserver.NewHTTPServer(api.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), wsHandler.Shutdown)
	grpcSrv := grpcserver.NewGRPCServer(grpcrouter.New(checker.Server(), logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	servers := []struct {
		server model.Server
		layer  model.SecurityLayer
	}{
		{httpSrv, server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName, server.ProtoHTTP1)},
		{grpcSrv, server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName, server.ProtoH2)},
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s.server, s.layer)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		checker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		cleaner.Run(ctx)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newQueue builds the offline queue selected by REALTIME_QUEUE_BACKEND.
func newQueue(ctx context.Context, cfg *config.Config, db *postgres.Connection, checker *grpchealth.Checker, logger *logger.Logger) (model.MessageQueue, func()) {
	switch cfg.Realtime.QueueBackend {
	case config.QueueBackendRedis:
		q, err := redis.NewQueue(ctx, cfg.Redis.URL, logger)
		if err != nil {
			logger.Fatal("failed to initialize redis queue", "error", err)
		}
		checker.Add("redis", q)
		return q, func() { _ = q.Close() }
	case config.QueueBackendMemory:
		logger.Warn("offline queue is in memory; queued messages are lost on restart")
		return memory.NewQueue(), func() {}
	default:
		return postgres.NewQueuedMessageRepository(db), func() {}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
