package api

import (
	"net/http"
	"rodo_assess/internal/api/handler"
	"rodo_assess/internal/api/middleware"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/platform/metrics"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Services struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Companies    *service.CompanyService
	Subscription *service.SubscriptionService
	Assessments  *service.AssessmentService
	Reports      *service.ReportService
}

type RouterConfig struct {
	Verifier       middleware.TokenVerifier
	Resolver       handler.UserResolver
	PublicPaths    []string
	QueryFallback  bool
	RequestTimeout time.Duration
	// LoginLimiter throttles /login and /register; nil disables throttling.
	LoginLimiter *middleware.ClientRateLimiter
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(chiMiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	}

	// Every route below is authenticated unless it matches a public prefix.
	r.Use(middleware.Gate(middleware.GateConfig{
		Verifier:      cfg.Verifier,
		PublicPaths:   cfg.PublicPaths,
		QueryFallback: cfg.QueryFallback,
		Logger:        cfg.Logger,
		Metrics:       cfg.Metrics,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	handler.RegisterDocsRoutes(r)

	var limit func(http.Handler) http.Handler
	if cfg.LoginLimiter != nil {
		limit = cfg.LoginLimiter.Handler
	}
	handler.NewAuthHandler(svc.Auth, cfg.Resolver, cfg.Logger).RegisterRoutes(r, limit)

	userHandler := handler.NewUserHandler(svc.Users, svc.Companies, cfg.Resolver)
	r.Route("/users", userHandler.RegisterRoutes)

	subscriptionHandler := handler.NewSubscriptionHandler(svc.Subscription, cfg.Resolver)
	r.Route("/subscriptions", subscriptionHandler.RegisterRoutes)

	assessmentHandler := handler.NewAssessmentHandler(svc.Assessments, cfg.Resolver)
	r.Route("/assessments", assessmentHandler.RegisterRoutes)

	reportHandler := handler.NewReportHandler(svc.Reports, cfg.Resolver)
	r.Route("/reports", reportHandler.RegisterRoutes)

	return r
}
