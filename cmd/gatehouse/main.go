package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/gatehouse/gatehouse/internal/app"
	"github.com/gatehouse/gatehouse/internal/audit"
	audithttp "github.com/gatehouse/gatehouse/internal/audit/http"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/permission"
	"github.com/gatehouse/gatehouse/internal/platform/cache"
	"github.com/gatehouse/gatehouse/internal/platform/db"
	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/roles"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/users"
	"github.com/gatehouse/gatehouse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gatehouse stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("applied migrations", slog.Any("versions", applied))
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	// Permissions.
	broadcaster := permission.NewBroadcaster(redisClient, cfg.PermissionsChannel, logger)
	permissionRepo := permission.NewRepository(pool)
	permissionCache := permission.NewCache(permissionRepo, permission.WithInvalidationHook(broadcaster.Publish))
	resolver := permission.NewResolver(permissionCache)
	roleService := roles.NewService(roles.NewRepository(pool))
	permissionStore := permission.NewStore(permissionRepo, roleService, permissionCache)

	// Events.
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queueClient, err := jobs.NewClient(redisOpts, cfg.EventQueue)
	if err != nil {
		return err
	}
	defer func() { _ = queueClient.Close() }()
	dispatcher := events.NewDispatcher(events.Config{
		BufferSize:      cfg.EventBuffer,
		DeliveryTimeout: cfg.EventTimeout,
		Scope:           events.ScopeSystem,
	}, events.FanOut{events.LogSink{Logger: logger}, queueClient}, logger, events.WithDropHook(metrics.EventDropped))
	defer dispatcher.Close()

	// Sessions.
	directory := users.NewService(users.NewRepository(pool), cfg.IdentityTimeout)
	sessionManager, sweeper, err := newSessionManager(cfg, logger, redisClient, directory, dispatcher)
	if err != nil {
		return err
	}
	cookie := session.Cookie{Name: cfg.SessionCookie, Domain: cfg.SessionCookieDomain, Secure: cfg.CookieSecure}

	signer, err := rbac.NewSigner(cfg.AuthzJWTSecret, cfg.AuthzJWTTTL)
	if err != nil {
		return err
	}
	gate := rbac.NewGate(logger, sessionManager, resolver, rbac.GateConfig{
		Cookie:   cookie,
		Signer:   signer,
		Observer: metrics,
		Notifier: dispatcher,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, sessionManager, auth.Config{Cookie: cookie, LoginRateLimit: cfg.LoginRateLimit}, metrics),
		Gate:               gate,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, permissionStore),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		RolesHandler:       roles.NewHandler(logger, roleService),
		UsersHandler:       users.NewHandler(logger, directory),
		JobHandler:         jobs.NewHandler(inspector, cfg.EventQueue, logger),
		Metrics:            metrics,
		Ready: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return broadcaster.Listen(gctx, permissionCache)
	})
	if sweeper != nil {
		group.Go(func() error {
			sweepSessions(gctx, sweeper, cfg.SessionTTL, logger)
			return nil
		})
	}
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// newSessionManager builds the session manager over the configured store.
// The memory store is returned as well so the caller can sweep it.
func newSessionManager(cfg *app.Config, logger *slog.Logger, redisClient *redis.Client, directory session.Directory, notifier session.Notifier) (*session.Manager, *session.MemoryStore, error) {
	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		return nil, nil, err
	}

	var store session.Store
	var memory *session.MemoryStore
	switch cfg.SessionStore {
	case app.SessionStoreMemory:
		memory = session.NewMemoryStore(time.Now)
		store = memory
	default:
		store = session.NewRedisStore(redisClient)
	}

	opts := []session.Option{session.WithNotifier(notifier), session.WithLogger(logger)}
	if cfg.CaptchaPolicy == app.CaptchaRecaptcha {
		opts = append(opts, session.WithCaptcha(session.NewRecaptcha(cfg.RecaptchaSecret, cfg.RecaptchaURL, cfg.CaptchaTimeout)))
	}

	policy := session.DefaultPolicy()
	policy.AllowPending = cfg.SessionAllowPending

	manager, err := session.NewManager(session.Config{
		TTL:          cfg.SessionTTL,
		Policy:       policy,
		RecheckState: cfg.SessionRecheckState,
		StoreTimeout: cfg.SessionStoreTimeout,
	}, codec, store, directory, opts...)
	if err != nil {
		return nil, nil, err
	}
	return manager, memory, nil
}

func sweepSessions(ctx context.Context, store *session.MemoryStore, ttl time.Duration, logger *slog.Logger) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("swept expired sessions", slog.Int("removed", n), slog.Int("live", store.Len()))
			}
		}
	}
}
