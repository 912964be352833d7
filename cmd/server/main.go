package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio-chat/auth"
	"folio-chat/contract"
	httpapi "folio-chat/infrastructure/http"
	"folio-chat/infrastructure/pubsub"
	"folio-chat/infrastructure/websocket"
	"folio-chat/internal"
	"folio-chat/moderation"
	"folio-chat/observability"
	"folio-chat/registry"
	"folio-chat/repositories"
	"folio-chat/repositories/postgres"
	"folio-chat/runtime"
	"folio-chat/runtime/workers"
	"folio-chat/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "folio-chat"

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Shared registry
	var (
		sharedRegistry contract.SharedRegistry
		redisClient    *redis.Client
	)
	if config.RedisURL != "" {
		client, err := registry.Connect(ctx, config.RedisURL)
		if err != nil {
			return exitRuntime, err
		}
		defer func() {
			log.Info("Closing Redis client...")
			_ = client.Close()
		}()
		redisClient = client
		sharedRegistry = registry.NewRedisRegistry(client)
	} else {
		log.Warn("REDIS_URL is empty, using the in-process registry (single instance only)")
		sharedRegistry = registry.NewMemoryRegistry()
	}

	// 3. Message store
	repository, closeStore, err := openStore(ctx, log, config)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	// 4. Moderation
	var censor contract.Censor
	if config.ModerationEnabled {
		moderator, err := newModerator(log, config.ModerationReplacement)
		if err != nil {
			return exitConfig, err
		}
		censor = moderator
	}

	// 5. Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(promRegistry)

	// 6. Messaging core
	hub := runtime.NewHub()
	localEmitter := runtime.NewLocalEmitter(log, hub, config.DeliveryTimeout, metrics)
	sup := workers.NewSupervisor(log, config.RestartInterval)

	var emitter contract.Emitter = localEmitter
	if redisClient != nil {
		emitter = pubsub.NewRedisEmitter(log, redisClient, config.PubSubChannel, localEmitter)
		sup.Add(pubsub.NewRelay(log, redisClient, config.PubSubChannel, localEmitter))
	}

	registrar := runtime.NewRegistrar(sharedRegistry, hub, config.SocketTTL)
	limiter := runtime.NewRateLimiter(sharedRegistry, config.RateLimitWindow, config.RateLimitMax)
	lifecycle := runtime.NewLifecycleManager(log, sharedRegistry, registrar, hub, emitter, config.TrustClientIdentity, metrics)
	dispatcher := runtime.NewDispatcher(log, sharedRegistry, limiter, repository, emitter, censor, config.MaxMessageLength, metrics)

	// 7. Transports
	resolver := auth.NewTokenResolver(config.JWTSecret)
	wsHandler := websocket.NewHandler(log, resolver, lifecycle, dispatcher, config.ConnectionBufferSize, config.TrustClientIdentity)
	apiHandler := httpapi.NewHandler(log, services.NewChatService(log, repository), sharedRegistry,
		config.DefaultPageLimit, config.MaxPageLimit, config.TrustClientIdentity)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           httpapi.NewRouter(apiHandler, resolver, wsHandler, promRegistry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}

	// 8. Background workers
	sup.Add(
		workers.NewHeartbeatWorker(log, metrics, config.HeartbeatInterval),
		workers.NewHealthProbeWorker(log, sharedRegistry, healthServer, serviceName, config.HealthProbeInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting gRPC health server", "address", grpcAddress)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 10. Final Cleanup: sockets first so their registry state is removed while the registry is still open
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	wsHandler.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	sup.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return code, runErr
}

// openStore returns the configured message repository and its cleanup.
func openStore(ctx context.Context, log *slog.Logger, config internal.Config) (contract.MessageRepository, func(), error) {
	switch config.StoreDriver {
	case internal.StorePostgres:
		db, err := postgres.Connect(ctx, log, config.PostgresDSN, config.PostgresMaxConns)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			log.Info("Closing Postgres pool...")
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if err := postgres.RunMigrations(ctx, log, db); err != nil {
			closeDB()
			return nil, nil, err
		}
		return postgres.NewMessageRepository(db), closeDB, nil
	default:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return repositories.NewBadgerMessageRepository(db, log), func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	}
}

func newModerator(log *slog.Logger, replacement string) (*moderation.Moderator, error) {
	char, err := internal.CharacterRune(replacement)
	if err != nil {
		return nil, err
	}
	words, err := moderation.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "languages", words.Languages, "words", len(words.Words))
	return moderation.NewModerator(words.Words, char, log)
}
