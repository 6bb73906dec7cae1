package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"easybuk/internal/auth"
	"easybuk/internal/config"
	"easybuk/internal/http_server/handlers/login"
	"easybuk/internal/http_server/handlers/logout"
	"easybuk/internal/http_server/handlers/me"
	notificationHandlers "easybuk/internal/http_server/handlers/notifications"
	providerHandlers "easybuk/internal/http_server/handlers/provider"
	"easybuk/internal/http_server/handlers/refresh"
	"easybuk/internal/http_server/handlers/register"
	requestVerification "easybuk/internal/http_server/handlers/request_verification"
	"easybuk/internal/http_server/handlers/verify"
	"easybuk/internal/http_server/middleware/authn"
	sl "easybuk/internal/lib/logger"
	"easybuk/internal/lib/verification"
	rateLimit "easybuk/internal/middleware/ratelimit"
	"easybuk/internal/notifications"
	"easybuk/internal/provider"
	"easybuk/internal/rabbitmq"
	"easybuk/internal/storage/postgres"
	redisStore "easybuk/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting easybuk api", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	blacklist, err := redisStore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer blacklist.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(
		log,
		storage,
		storage,
		blacklist,
		cfg.Tokens.JWTSecret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)

	flow := verification.New(log, storage, msgBroker, cfg.Tokens.VerificationTokenTTL, cfg.BaseURL)

	notificationService := notifications.New(log, storage)
	providerService := provider.New(log, storage)

	router := setupRouter(
		log,
		cfg,
		authService,
		flow,
		notificationService,
		providerService,
		blacklist,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	flow *verification.Flow,
	notificationService *notifications.Service,
	providerService *provider.Service,
	blacklist *redisStore.RedisRepo,
) *chi.Mux {
	validate := validator.New()
	secureCookies := cfg.Env == envProd

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	requireSession := authn.New(log, cfg.Tokens.JWTSecret, blacklist)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit.Register()).Post("/register",
				register.New(log, validate, authService, flow),
			)
			r.With(rateLimit.Login()).Post("/login",
				login.New(log, validate, authService,
					cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL, secureCookies),
			)
			r.With(rateLimit.Refresh()).Post("/refresh",
				refresh.New(log, authService,
					cfg.Tokens.AccessTokenTTL, cfg.Tokens.RefreshTokenTTL, secureCookies),
			)
			r.With(rateLimit.RequestVerification()).Post("/request-verification",
				requestVerification.New(log, validate, flow),
			)
			r.With(rateLimit.VerifyEmail()).Post("/verify-email",
				verify.New(log, validate, flow),
			)

			r.Group(func(r chi.Router) {
				r.Use(requireSession)

				r.With(rateLimit.Logout()).Post("/logout",
					logout.New(log, authService, secureCookies),
				)
				r.Get("/me", me.New(log, authService))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/", notificationHandlers.List(log, notificationService))
			r.Patch("/mark-all-read", notificationHandlers.MarkAllRead(log, notificationService))
			r.Patch("/{id}/read", notificationHandlers.MarkRead(log, notificationService))
			r.Delete("/{id}", notificationHandlers.Delete(log, notificationService))
		})

		r.Route("/provider/services", func(r chi.Router) {
			r.Use(requireSession)
			r.Use(authn.RequireProvider())

			r.Get("/", providerHandlers.ListServices(log, providerService))
			r.Patch("/{id}/status", providerHandlers.SetStatus(log, validate, providerService))
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
