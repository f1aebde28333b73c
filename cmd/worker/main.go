package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/config"
	"github.com/unclebandit/marketing-genius/internal/mailer"
	"github.com/unclebandit/marketing-genius/internal/queue"
	"github.com/unclebandit/marketing-genius/internal/service"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.AMQPURL == "" {
		logger.Fatal("AMQP_URL is required")
	}
	q, err := queue.DialAMQP(cfg.AMQPURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, q, mailer.New(cfg.Mail, logger), logger); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
}

// run consumes email_sends until ctx is cancelled.
func run(ctx context.Context, q queue.Queue, sender mailer.Sender, logger *zap.Logger) error {
	worker := service.NewWorker(sender, logger)
	if err := queue.StartEmailSendSubscriber(q, worker.Send, logger); err != nil {
		return err
	}

	logger.Info("worker running, waiting for messages", zap.String("topic", queue.EmailSendsTopic))
	<-ctx.Done()
	logger.Info("worker stopping")
	return nil
}
