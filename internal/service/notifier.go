package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/model"
	"github.com/unclebandit/marketing-genius/internal/queue"
)

// Notifier renders subscriber emails and queues them on the email_sends
// topic. Delivery is fire-and-forget: failures are logged, never returned.
// A nil Notifier sends nothing.
type Notifier struct {
	Queue       queue.Queue
	FrontendURL string
	TrialDays   int
	Logger      *zap.Logger
	Now         func() time.Time
}

func (n *Notifier) TrialWelcome(email, name string, trialEnd time.Time) {
	n.send(email, "Welcome to Your Marketing Genius Trial", "welcome", emailData{
		Name:     name,
		TrialEnd: formatTrialEnd(trialEnd),
	})
}

func (n *Notifier) TrialEnding(email string, daysLeft int) {
	n.send(email, "Your Marketing Genius Trial is Ending Soon", "trial_ending", emailData{
		DaysLeft: daysLeft,
	})
}

func (n *Notifier) SubscriptionConfirmed(email string) {
	n.send(email, "Welcome to Marketing Genius Premium", "confirmation", emailData{})
}

func (n *Notifier) send(to, subject, tmpl string, data emailData) {
	if n == nil || n.Queue == nil {
		return
	}
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data.LogoURL = logoURL
	data.FrontendURL = n.FrontendURL
	data.TrialDays = n.TrialDays
	html, err := renderEmail(tmpl, data)
	if err != nil {
		logger.Error("render email failed", zap.String("template", tmpl), zap.Error(err))
		return
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	job := model.EmailJob{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		HTML:      html,
		CreatedAt: now(),
	}
	if err := n.Queue.Publish(queue.EmailSendsTopic, job); err != nil {
		logger.Error("failed to enqueue email", zap.String("job_id", job.ID), zap.String("template", tmpl), zap.Error(err))
		return
	}
	logger.Info("email queued", zap.String("job_id", job.ID), zap.String("template", tmpl))
}
