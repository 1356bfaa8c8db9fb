// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/community-api/internal/admin"
	"github.com/carterperez-dev/community-api/internal/auth"
	"github.com/carterperez-dev/community-api/internal/config"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/course"
	"github.com/carterperez-dev/community-api/internal/health"
	"github.com/carterperez-dev/community-api/internal/message"
	"github.com/carterperez-dev/community-api/internal/metrics"
	"github.com/carterperez-dev/community-api/internal/middleware"
	"github.com/carterperez-dev/community-api/internal/notification"
	"github.com/carterperez-dev/community-api/internal/post"
	"github.com/carterperez-dev/community-api/internal/realtime"
	"github.com/carterperez-dev/community-api/internal/server"
	"github.com/carterperez-dev/community-api/internal/space"
	"github.com/carterperez-dev/community-api/internal/user"
	"github.com/carterperez-dev/community-api/migrations"
)

const (
	drainDelay         = 5 * time.Second
	tokenPurgeInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
	genKeys := flag.Bool("genkeys", false, "generate the ES256 key pair at the configured paths and exit")
	flag.Parse()

	if err := run(*configPath, *migrate, *genKeys); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocognit // bootstrap code is inherently verbose
func run(configPath string, migrate, genKeys bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log, cfg.IsDevelopment())
	slog.SetDefault(logger)

	if genKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		logger.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if migrate {
		if err := core.Migrate(ctx, db.DB, migrations.FS); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	hub := realtime.NewHub(logger)
	var bus realtime.Bus = realtime.NewLocalBus()
	if cfg.Realtime.Bus == config.RealtimeBusRedis {
		bus = realtime.NewRedisBus(redis.Client, cfg.Realtime.Channel, logger)
	}
	if err := bus.StartForwarder(ctx, hub.Deliver); err != nil {
		return err
	}
	logger.Info("realtime bus started", "bus", cfg.Realtime.Bus)

	notificationSvc := notification.NewService(
		notification.NewRepository(db.DB),
		realtime.NewPublisher(bus),
		logger,
	)

	userSvc := user.NewService(user.NewRepository(db.DB), db, notificationSvc, logger)

	authSvc := auth.NewService(
		auth.NewRepository(db.DB),
		jwtManager,
		userSvc,
		auth.NewRedisBlacklist(redis.Client),
		logger,
	)

	spaceSvc := space.NewService(space.NewRepository(db.DB), db, logger)
	postSvc := post.NewService(
		post.NewRepository(db.DB),
		db,
		spaceSvc,
		userSvc,
		notificationSvc,
		logger,
	)
	courseSvc := course.NewService(course.NewRepository(db.DB), db, notificationSvc, logger)
	messageSvc := message.NewService(
		message.NewRepository(db.DB),
		realtime.NewPublisher(bus),
		userSvc,
		logger,
	)
	messageSvc.RegisterInbound(hub)

	healthHandler := health.NewHandler(
		health.Named{Name: "database", Checker: db},
		health.Named{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:       db.Stats,
		RedisStats:    redis.PoolStats,
		DBPing:        db.Ping,
		RedisPing:     redis.Ping,
		RealtimeStats: hub.Stats,
		CountByStatus: userSvc.CountByStatus,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
		OnShutdown:    []func(){hub.Shutdown},
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	if cfg.Metrics.Enabled {
		router.Use(metrics.Middleware)
	}
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: redis_rate.Limit{
				Rate:   cfg.RateLimit.Requests,
				Burst:  cfg.RateLimit.Burst,
				Period: cfg.RateLimit.Window,
			},
			FailOpen: true,
			BypassFunc: func(r *http.Request) bool {
				switch r.URL.Path {
				case "/healthz", "/livez", "/readyz", cfg.Metrics.Path:
					return true
				}
				return false
			},
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	roleLimiter := middleware.RoleRateLimiter(redis.Client, middleware.DefaultRoleLimits)
	verify := middleware.Authenticator(authSvc)
	authenticator := func(next http.Handler) http.Handler {
		return verify(roleLimiter(next))
	}
	approved := middleware.RequireApproved(userSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/api", func(r chi.Router) {
		auth.NewHandler(authSvc).RegisterRoutes(r, authenticator)

		userHandler := user.NewHandler(userSvc)
		userHandler.RegisterRoutes(r, authenticator, approved)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)

		notification.NewHandler(notificationSvc).RegisterRoutes(r, authenticator)
		space.NewHandler(spaceSvc).RegisterRoutes(r, authenticator, approved)
		post.NewHandler(postSvc).RegisterRoutes(r, authenticator, approved)
		course.NewHandler(courseSvc).RegisterRoutes(r, authenticator, approved)
		message.NewHandler(messageSvc).RegisterRoutes(r, authenticator, approved)

		realtime.NewHandler(hub, authSvc, cfg.Realtime, logger).RegisterRoutes(r)
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		purgeExpiredTokens(gctx, authSvc, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
		)
		defer cancel()

		return srv.Shutdown(shutdownCtx, drainDelay)
	})

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("server error", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bus.Close(); err != nil {
		logger.Error("realtime bus close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(closeCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return runErr
}

func purgeExpiredTokens(ctx context.Context, svc *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warn("purge expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", "count", n)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig, addSource bool) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
