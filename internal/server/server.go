package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/showconnect/esign/modules/esign/infrastructure/notify"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence"
	"github.com/showconnect/esign/modules/esign/infrastructure/webhooks"
	"github.com/showconnect/esign/modules/esign/presentation/controllers"
	"github.com/showconnect/esign/modules/esign/services"
	"github.com/showconnect/esign/pkg/configuration"
	"github.com/showconnect/esign/pkg/eventbus"
	"github.com/showconnect/esign/pkg/metrics"
	"github.com/showconnect/esign/pkg/middleware"
)

// Server assembles the whole application: database pool, event bus,
// services, controllers and the HTTP listener.
type Server struct {
	cfg      *configuration.Configuration
	log      *logrus.Logger
	pool     *pgxpool.Pool
	http     *http.Server
	expiry   *services.ExpirationService
	counters services.CounterStore
}

func New(ctx context.Context, cfg *configuration.Configuration) (*Server, error) {
	log := cfg.Logger()

	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	publisher := eventbus.NewEventPublisher(log)

	requests := persistence.NewRequestRepository()
	packages := persistence.NewPackageRepository()
	templates := persistence.NewTemplateRepository()
	jurisdictions := persistence.NewJurisdictionRepository()

	notifier := buildNotifier(cfg, log)
	counters, err := buildCounterStore(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	lifecycle := services.NewLifecycleService(
		requests, templates, jurisdictions, notifier, publisher,
		cfg.BaseURL, cfg.RequestExpiry,
	)
	verification := services.NewVerificationService(
		requests, notifier, counters, publisher,
		cfg.Verification, cfg.RateLimit, cfg.DemoMode,
	)
	packageService := services.NewPackageService(
		packages, requests, templates, jurisdictions, notifier, publisher,
		pool, cfg.BaseURL, cfg.RequestExpiry,
	)
	services.NewFanoutService(webhooks.NewDispatcher(log), notifier, publisher, log)
	expiry := services.NewExpirationService(requests, publisher, pool, log, cfg.ExpirySweep)

	codeLimit, err := buildCodeLimit(cfg, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(
		middleware.RequestContext(pool, log),
		middleware.Logging(),
	)
	if cfg.Prometheus.Enabled {
		metrics.Register(router, cfg.Prometheus.Path)
	}
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Signer-facing routes: the capability token is the credential.
	controllers.NewSignController(lifecycle, verification, codeLimit).Register(router)

	// Admin API behind the key.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.DefaultTenantID))
	controllers.NewRequestsController(lifecycle).Register(api)
	controllers.NewPackagesController(packageService).Register(api)
	controllers.NewTemplatesController(templates).Register(api)
	controllers.NewJurisdictionsController(jurisdictions).Register(api)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}).Handler(router)

	return &Server{
		cfg:  cfg,
		log:  log,
		pool: pool,
		http: &http.Server{
			Addr:         cfg.SocketAddress,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		expiry:   expiry,
		counters: counters,
	}, nil
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go s.expiry.Start(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stopSweep()
		s.close()
		return err
	case <-ctx.Done():
	}

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	if closer, ok := s.counters.(*services.MemoryCounterStore); ok {
		closer.Close()
	}
	s.pool.Close()
}

// buildNotifier picks delivery backends: real SMTP and SMS gateways in
// production, log-only senders in demo mode so the flow works without
// credentials.
func buildNotifier(cfg *configuration.Configuration, log *logrus.Logger) notify.Notifier {
	if cfg.DemoMode {
		return notify.NewService(notify.NewLogEmailSender(log), notify.NewLogSMSSender(log), log)
	}
	var email notify.EmailSender
	var sms notify.SMSSender
	if cfg.SMTP.Host != "" {
		email = notify.NewSMTPMailer(cfg.SMTP)
	}
	if cfg.SMS.AccountSID != "" {
		sms = notify.NewSMSClient(cfg.SMS)
	}
	return notify.NewService(email, sms, log)
}

func buildCounterStore(cfg *configuration.Configuration) (services.CounterStore, error) {
	if cfg.RateLimit.Storage == "redis" {
		if cfg.RateLimit.RedisURL == "" {
			return nil, errors.New("rate limit redis storage requires a redis URL")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisURL})
		return services.NewRedisCounterStore(client, "esign:verify"), nil
	}
	return services.NewMemoryCounterStore(), nil
}

// buildCodeLimit is the per-client-address throttle wrapped around the
// code-dispatch route only. Destination and token budgets are enforced
// inside VerificationService.
func buildCodeLimit(cfg *configuration.Configuration, log *logrus.Logger) (mux.MiddlewareFunc, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	instance, err := middleware.NewRateLimiter(cfg.RateLimit, limiter.Rate{
		Period: 15 * time.Minute,
		Limit:  int64(cfg.RateLimit.VerifyPerWindow),
	})
	if err != nil {
		log.WithError(err).Warn("rate limiter unavailable, verify route left unthrottled")
		return nil, nil
	}
	return middleware.RateLimit(instance), nil
}
