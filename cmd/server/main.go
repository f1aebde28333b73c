// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/auth"
	"github.com/unclebandit/marketing-genius/internal/config"
	"github.com/unclebandit/marketing-genius/internal/controller"
	"github.com/unclebandit/marketing-genius/internal/db"
	"github.com/unclebandit/marketing-genius/internal/genius"
	"github.com/unclebandit/marketing-genius/internal/handler"
	"github.com/unclebandit/marketing-genius/internal/mailer"
	"github.com/unclebandit/marketing-genius/internal/paypal"
	"github.com/unclebandit/marketing-genius/internal/queue"
	"github.com/unclebandit/marketing-genius/internal/repository"
	"github.com/unclebandit/marketing-genius/internal/service"
)

func main() {
	cfg, dotenvLoaded, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	if !dotenvLoaded {
		logger.Info("no .env file found, relying on OS environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscriptions
	var repo repository.SubscriptionRepositoryInterface
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("database unavailable", zap.Error(err))
		}
		defer conn.Close()
		repo = &repository.SubscriptionRepository{DB: conn}
	} else {
		logger.Warn("DATABASE_URL not set, subscriptions are kept in memory")
		repo = repository.NewInMemorySubscriptionRepository()
	}

	// Email queue
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatal("rabbitmq unavailable", zap.Error(err))
		}
		defer amqpQueue.Close()
		q = amqpQueue
		logger.Info("publishing emails to rabbitmq; run cmd/worker to deliver them")
	} else {
		memQueue := queue.NewInMemoryQueue(logger)
		worker := service.NewWorker(mailer.New(cfg.Mail, logger), logger)
		if err := queue.StartEmailSendSubscriber(memQueue, worker.Send, logger); err != nil {
			logger.Fatal("email subscriber", zap.Error(err))
		}
		q = memQueue
	}

	rules := genius.LoadRules(cfg.RulesPath, logger)
	engine := genius.New(rules,
		genius.WithLogger(logger),
		genius.WithRateLimiter(genius.NewRateLimiter(cfg.KeywordRateLimit)))

	tokens := auth.NewTokens(cfg.JWTSecret, nil)
	subscriptionService := &service.SubscriptionService{
		Repo:   repo,
		Tokens: tokens,
		Notifier: &service.Notifier{
			Queue:       q,
			FrontendURL: cfg.FrontendURL,
			TrialDays:   cfg.TrialDays,
			Logger:      logger,
		},
		TrialDays:          cfg.TrialDays,
		TrialAnalysisLimit: cfg.TrialAnalysisLimit,
		Logger:             logger,
	}

	subscriptionController := &controller.SubscriptionController{Service: subscriptionService, Logger: logger}
	analysisController := &controller.AnalysisController{
		Service: &service.AnalysisService{Engine: engine, Subscriptions: subscriptionService},
		Logger:  logger,
	}
	paymentController := &controller.PaymentController{
		PayPal: paypal.NewClient(paypal.Config{
			BaseURL:      cfg.PayPal.BaseURL(),
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			PlanID:       cfg.PayPal.PlanID,
			WebhookID:    cfg.PayPal.WebhookID,
			ReturnURL:    cfg.FrontendURL + "/success",
			CancelURL:    cfg.FrontendURL + "/cancel",
		}, nil),
		Subscriptions: subscriptionService,
		Logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(cfg.AllowedOrigins))
	r.Use(handler.SecurityHeaders)
	r.Use(handler.BodyLimit(cfg.MaxBodyBytes))

	r.Get("/health", handler.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.APIHealth)

		// Subscription routes
		r.Post("/subscribe", subscriptionController.Subscribe)
		r.Post("/check-subscription", subscriptionController.CheckSubscription)
		r.With(auth.Middleware(tokens)).Post("/analyze", analysisController.Analyze)

		// Payment routes
		r.Post("/create-subscription", paymentController.CreateSubscription)
		r.Post("/webhook", paymentController.Webhook)
		r.Post("/orders", paymentController.CreateOrder)
		r.Post("/orders/{id}/capture", paymentController.CaptureOrder)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
