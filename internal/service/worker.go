package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/mailer"
	"github.com/unclebandit/marketing-genius/internal/model"
)

// Worker delivers queued email jobs
type Worker struct {
	Sender mailer.Sender
	Logger *zap.Logger
}

// Constructor
func NewWorker(sender mailer.Sender, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Sender: sender,
		Logger: logger,
	}
}

// Send delivers one job. Jobs without a recipient are dropped without
// error so they are not retried.
func (w *Worker) Send(job model.EmailJob) error {
	if job.To == "" {
		w.Logger.Warn("email job without recipient", zap.String("job_id", job.ID))
		return nil
	}
	if err := w.Sender.Send(job); err != nil {
		return fmt.Errorf("send %s to %s: %w", job.ID, job.To, err)
	}
	w.Logger.Info("email sent", zap.String("job_id", job.ID), zap.String("to", job.To))
	return nil
}
