package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"rodo_assess/internal/api"
	"rodo_assess/internal/api/middleware"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/app/worker"
	"rodo_assess/internal/common/security"
	"rodo_assess/internal/domain/repository"
	"rodo_assess/internal/platform/cache"
	"rodo_assess/internal/platform/config"
	"rodo_assess/internal/platform/database"
	"rodo_assess/internal/platform/logger"
	"rodo_assess/internal/platform/metrics"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 3. Initialize Database
	db, err := database.Connect(ctx, database.Options{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	// 4. Initialize Redis (optional)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = cache.Connect(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
	} else {
		log.Warn("redis disabled: token revocation and the billing lock are off")
	}

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(db)
	roleRepo := repository.NewPgRoleRepository(db)
	profileRepo := repository.NewPgProfileRepository(db)
	companyRepo := repository.NewPgCompanyRepository(db)
	subscriptionRepo := repository.NewPgSubscriptionRepository(db)
	assessmentRepo := repository.NewPgAssessmentRepository(db)
	reportRepo := repository.NewPgReportRepository(db)

	// 6. Security
	tokenOpts := []security.Option{security.WithMetrics(m)}
	var locker worker.Locker
	if rdb != nil {
		tokenOpts = append(tokenOpts, security.WithDenylist(security.NewRedisDenylist(rdb)))
		locker = worker.NewRedisLocker(rdb, log)
	}
	tokens, err := security.NewTokenService(cfg.Security.SecretKey, cfg.Security.TokenTTL, userRepo, tokenOpts...)
	if err != nil {
		return err
	}
	resolver := security.NewIdentityResolver(userRepo)

	// 7. Initialize Services
	cost := cfg.Security.BcryptCost
	subscriptionService := service.NewSubscriptionService(db, subscriptionRepo, log)
	services := api.Services{
		Auth:         service.NewAuthService(db, userRepo, roleRepo, tokens, cost, log),
		Users:        service.NewUserService(db, userRepo, roleRepo, profileRepo, cost, log),
		Companies:    service.NewCompanyService(companyRepo),
		Subscription: subscriptionService,
		Assessments:  service.NewAssessmentService(db, assessmentRepo, log),
		Reports:      service.NewReportService(reportRepo),
	}

	// 8. Billing worker
	billingWorker := worker.NewBillingWorker(subscriptionService, locker, cfg.Billing, m, log)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go billingWorker.Start(workerCtx)

	// 9. Initialize Router & HTTP Servers
	var limiter *middleware.ClientRateLimiter
	if cfg.Security.LoginRateLimit > 0 {
		limiter = middleware.NewClientRateLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginRateBurst)
	}
	router := api.NewRouter(api.RouterConfig{
		Verifier:       tokens,
		Resolver:       resolver,
		PublicPaths:    cfg.Security.PublicPaths,
		QueryFallback:  cfg.Security.QueryTokenFallback,
		RequestTimeout: cfg.Server.RequestTimeout,
		LoginLimiter:   limiter,
		Logger:         log,
		Metrics:        m,
	}, services)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Info("metrics server starting", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 10. Graceful Shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("could not listen on port %d: %w", cfg.Server.Port, err)
	}

	log.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server and worker stopped gracefully")
	return nil
}
