package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"trial-funnel/config"
	"trial-funnel/database"
	"trial-funnel/funnel"
	"trial-funnel/handlers"
	"trial-funnel/logger"
	"trial-funnel/middleware"
	"trial-funnel/queue"
	"trial-funnel/services/auth"
	"trial-funnel/services/email"
	"trial-funnel/services/payment"
	"trial-funnel/services/payment/stripeclient"
	"trial-funnel/worker"
)

const orphanQueueName = "orphan_reports"

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	defer logger.Sync(logr)
	logr.Info("Configuration loaded", zap.String("environment", cfg.Environment))

	var db *database.Connection
	if cfg.DatabaseEnabled() {
		db, err = database.NewConnection(cfg.Database, logr)
		if err != nil {
			logr.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logr.Fatal("Failed to prepare orphan ledger", zap.Error(err))
		}
		logr.Info("Successfully connected to database")
	}

	var reporter payment.OrphanReporter = payment.LogReporter{Log: logr}
	var jobQueue *queue.Queue
	var orphanWorker *worker.Worker
	if cfg.RedisEnabled() {
		jobQueue, err = queue.NewQueue(cfg.Redis.URL, orphanQueueName, logr)
		if err != nil {
			logr.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer jobQueue.Close()
		logr.Info("Successfully connected to Redis")

		reporter = queue.OrphanReporter{Queue: jobQueue}

		opts := worker.Options{OperatorEmail: cfg.Internal.OperatorEmail}
		if db != nil {
			opts.Store = db
		}
		if cfg.SMTPEnabled() {
			opts.Alerter = email.NewSMTPService(cfg.SMTP)
		}
		orphanWorker = worker.NewWorker(jobQueue, opts, logr)
		orphanWorker.Start(cfg.Redis.WorkerConcurrency)
		defer orphanWorker.Stop()
	}

	paymentService := payment.NewService(
		stripeclient.NewClient(cfg.Stripe.SecretKey),
		reporter,
		payment.Config{SubscriptionPriceID: cfg.Stripe.SubscriptionPriceID},
		logr,
	)

	flows, err := funnel.All(payment.TierAmounts())
	if err != nil {
		logr.Fatal("Failed to build funnel flows", zap.Error(err))
	}

	store := handlers.NewSessionStore(cfg.Session.Secret, cfg.Session.Domain, cfg.Session.MaxAge, !cfg.IsDevelopment())
	funnelHandler := handlers.NewFunnelHandler(flows, store, paymentService, cfg.Server.PublicDomain, logr)
	checkoutHandler := handlers.NewCheckoutHandler(paymentService, cfg.Server.PublicDomain, logr)

	var dbPing, redisPing handlers.PingFunc
	if db != nil {
		dbPing = db.Ping
	}
	if jobQueue != nil {
		redisPing = func(ctx context.Context) error { return jobQueue.Client().Ping(ctx).Err() }
	}
	statusHandler := handlers.NewStatusHandler(cfg.Stripe.PublishableKey, payment.DefaultTrialPeriodDays, dbPing, redisPing)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(logr))
	router.Use(middleware.SecurityHeadersMiddleware)
	if jobQueue != nil {
		router.Use(middleware.NewRateLimiter(jobQueue.Client(), logr).RateLimitMiddleware())
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	api.HandleFunc("/create-checkout-session", checkoutHandler.CreateCheckoutSession)
	api.HandleFunc("/health", statusHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/config", statusHandler.PublicConfig).Methods(http.MethodGet)

	if cfg.Internal.JWTSecret != "" {
		var lister handlers.OrphanLister
		if db != nil {
			lister = db
		}
		internalHandler := handlers.NewInternalHandler(lister, logr)
		jwtService := auth.NewJWTService(cfg.Internal.JWTSecret, cfg.Internal.JWTIssuer)

		internal := api.PathPrefix("/internal").Subrouter()
		internal.Use(middleware.AuthMiddleware(jwtService, logr))
		internal.HandleFunc("/orphans", internalHandler.ListOrphans).Methods(http.MethodGet)
	}

	funnelHandler.Register(router)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logr.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("Server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logr.Info("Shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("Server forced to shutdown", zap.Error(err))
	}

	if orphanWorker != nil {
		logr.Info("Stopping orphan worker")
		orphanWorker.Stop()
	}

	logr.Info("Server exited properly")
}
