package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/gateway"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/mongo"
	"chat-relay/infrastructure/redis"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal or a fatal error.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB) for accounts, and messages unless mongo is selected
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, closeStore, err := openMessageStore(ctx, log, config, db)
	if err != nil {
		return err
	}
	defer closeStore()
	userRepository := repositories.NewUserRepository(db)
	friendRepository := repositories.NewFriendRepository(db)

	// 3. Relay runtime
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoringManager(log, config.StatsInterval, registry.Len)
	coordinator := runtime.NewDeliveryCoordinator(log, registry, messageRepository, monitoring, config.PushTimeout)
	signaler := runtime.NewSignaler(log, registry, monitoring, config.PushTimeout)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, registry, coordinator, signaler, monitoring, config.PushTimeout).
		WithReporter(config.ReportInterval)

	if config.RedisAddr != "" {
		client, err := redis.Connect(ctx, config.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		mirror := redis.NewPresenceMirror(client, log, "", config.PresenceTTL)
		orchestrator.WithPresenceMirror(mirror, config.PresenceTTL/2)
		log.Info("Presence mirrored to redis", "address", config.RedisAddr)
	}

	// 4. Transports
	tokens := auth.NewTokenIssuer(config.JWTSecret, config.TokenDuration)
	ws := gateway.NewServer(log, orchestrator, gateway.Config{
		SendBufferSize: config.SendBufferSize,
		MaxFrameSize:   config.MaxFrameSize,
		WriteWait:      config.WriteWait,
		PongWait:       config.PongWait,
		AllowedOrigin:  config.AllowedOrigin,
	})
	handler := httpapi.NewHandler(log,
		services.NewAuthService(userRepository, tokens),
		services.NewChatService(messageRepository, userRepository),
		services.NewFriendService(log, userRepository, friendRepository, signaler),
		monitoring)
	var guard func(http.Handler) http.Handler
	if config.RequireAuth {
		guard = tokens.Middleware
	}
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: httpapi.NewRouter(handler, ws, guard)}

	// 5. Run until a signal or a fatal error
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orchestrator.Start(gCtx)
	})
	g.Go(func() error {
		log.Info("Starting HTTP server", "address", address, "store", config.StoreBackend)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		ws.CloseAll()
		orchestrator.Stop()
		return err
	})

	if err = g.Wait(); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}

func openMessageStore(ctx context.Context, log *slog.Logger, config Config,
	db *badger.DB) (repositories.IMessageRepository, func(), error) {
	switch config.StoreBackend {
	case "badger":
		return repositories.NewMessageRepository(db, log, config.LimitMessages), func() {}, nil
	case "mongo":
		client, err := mongo.Connect(ctx, mongo.Config{
			URI:            config.MongoURI,
			Database:       config.MongoDatabase,
			MaxPoolSize:    config.MongoPoolSize,
			ConnectTimeout: config.WriteWait,
		})
		if err != nil {
			return nil, nil, err
		}
		repository := mongo.NewMessageRepository(client.Database(config.MongoDatabase), log, config.LimitMessages)
		if err = repository.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repository, func() {
			log.Info("Closing MongoDB client...")
			_ = client.Disconnect(context.Background())
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}
}
