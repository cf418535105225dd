package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/faceauth-service/internal/api/http"
	"github.com/spec-kit/faceauth-service/internal/api/http/handlers"
	"github.com/spec-kit/faceauth-service/internal/auth"
	"github.com/spec-kit/faceauth-service/internal/backend"
	"github.com/spec-kit/faceauth-service/internal/config"
	"github.com/spec-kit/faceauth-service/internal/devbackend"
	"github.com/spec-kit/faceauth-service/internal/events"
	"github.com/spec-kit/faceauth-service/internal/facematch"
	"github.com/spec-kit/faceauth-service/internal/observability"
	"github.com/spec-kit/faceauth-service/internal/persistence"
	"github.com/spec-kit/faceauth-service/internal/service"
	"github.com/spec-kit/faceauth-service/internal/session"
	"github.com/spec-kit/faceauth-service/internal/store"
	"github.com/spec-kit/faceauth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	credentials, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	backendURL := cfg.BackendURL()
	sessions := session.NewService(session.ResolverDependencies{
		Store: credentials,
		Exchanger: backend.NewFaceLoginExchanger(backend.Options{
			BaseURL: backendURL,
			Timeout: cfg.Backend.ExchangeTimeout(),
			Logger:  logger,
		}),
		Events:  dispatcher,
		Logger:  logger,
		Metrics: metrics,
	})
	matcher := facematch.NewMatcher(facematch.MatcherDependencies{
		Comparer: backend.NewFaceComparer(backend.Options{
			BaseURL: backendURL,
			Timeout: cfg.Backend.CompareTimeout(),
			Logger:  logger,
		}),
		Threshold: cfg.Face.Threshold,
		Limiter:   facematch.NewLimiter(cfg.Face.CompareRatePerSec),
		Events:    dispatcher,
		Logger:    logger,
		Metrics:   metrics,
	})
	flow := facematch.NewFlow(matcher,
		facematch.WithHandOff(sessions.CompleteFaceMatch),
		facematch.WithFlowLogger(logger),
		facematch.OnTransition(func(t facematch.Transition) {
			logger.Debug("capture state", zap.String("from", string(t.From)), zap.String("to", string(t.To)))
		}),
	)

	if err := os.MkdirAll(cfg.Face.UploadDir, 0o700); err != nil {
		logger.Fatal("failed to create upload dir", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.Face.MaxUploadSizeBytes,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	if cfg.Auth.DevFakeBackend {
		people, err := devbackend.Seed()
		if err != nil {
			logger.Fatal("failed to load dev backend seed", zap.Error(err))
		}
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
		devbackend.NewServer(devbackend.NewDirectory(people), tokens, logger).Register(app.Group(config.DevBackendPrefix))
		logger.Warn("development backend enabled", zap.String("base_url", backendURL))
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Driver, credentials),
		Session: handlers.NewSessionHandler(sessions),
		Face: handlers.NewFaceHandler(handlers.FaceDependencies{
			Flow:     flow,
			Resolver: sessions.Resolver(),
			Directory: backend.NewDirectory(backend.Options{
				BaseURL: backendURL,
				Timeout: cfg.Backend.Timeout(),
				Logger:  logger,
			}),
			UploadDir: cfg.Face.UploadDir,
			Logger:    logger,
		}),
		Metrics: metrics,
	})

	go func() {
		logger.Info("agent listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openStore builds the credential store for the configured driver and
// returns a func releasing its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Store, func()) {
	switch cfg.Store.Driver {
	case config.StoreDriverFile:
		kv, err := store.NewFileKV(cfg.Store.FilePath)
		if err != nil {
			logger.Fatal("failed to open credential file", zap.Error(err))
		}
		return store.New(kv), func() {}
	case config.StoreDriverRedis:
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		return store.New(store.NewRedisKV(redis.Client, cfg.Store.Namespace)), redis.Close
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Handle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		return store.New(store.NewPostgresKV(pg.Handle(), cfg.Store.Namespace)), pg.Close
	default:
		logger.Warn("using in-memory credential store; credentials are lost on restart")
		return store.NewMemory(), func() {}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
