// internal/service/subscription_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/auth"
	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/model"
	"github.com/unclebandit/marketing-genius/internal/repository"
)

const (
	trialEndingWindowDays = 3
	paidTokenTTL          = 30 * 24 * time.Hour
)

type SubscriptionService struct {
	Repo               repository.SubscriptionRepositoryInterface
	Tokens             *auth.Tokens
	Notifier           *Notifier
	TrialDays          int
	TrialAnalysisLimit int
	Now                func() time.Time
	Logger             *zap.Logger
}

func (s *SubscriptionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SubscriptionService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// Subscribe starts a free trial for email and returns the stored record
// with a trial token valid for the length of the trial. A pending record
// left by a billing signup that never completed may still start a trial.
func (s *SubscriptionService) Subscribe(ctx context.Context, email, name string) (*model.Subscription, string, error) {
	existing, err := s.Repo.Get(ctx, email)
	if err != nil {
		return nil, "", err
	}

	trialLength := time.Duration(s.TrialDays) * 24 * time.Hour
	trialEnd := s.now().Add(trialLength)
	sub := &model.Subscription{
		Email:    email,
		Name:     name,
		IsActive: true,
		IsTrial:  true,
		TrialEnd: &trialEnd,
	}
	if existing == nil {
		if err := s.Repo.Create(ctx, sub); err != nil {
			return nil, "", err
		}
	} else {
		started, err := s.Repo.StartTrial(ctx, email, name, trialEnd)
		if err != nil {
			return nil, "", err
		}
		if !started {
			return nil, "", appErrors.NewSubscriptionExists(email)
		}
		sub.SubscriptionID = existing.SubscriptionID
		sub.CreatedAt = existing.CreatedAt
	}

	token, err := s.Tokens.Issue(email, trialLength)
	if err != nil {
		return nil, "", fmt.Errorf("issue trial token: %w", err)
	}

	s.logger().Info("trial started", zap.String("email", email), zap.Time("trial_end", trialEnd))
	s.Notifier.TrialWelcome(email, name, trialEnd)
	return sub, token, nil
}

// CheckSubscription returns the current state for email. An expired trial
// is deactivated; a trial with three days or less left triggers a
// reminder email.
func (s *SubscriptionService) CheckSubscription(ctx context.Context, email string) (*model.Subscription, error) {
	sub, err := s.Repo.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, appErrors.NewSubscriptionNotFound(email)
	}

	expired, err := s.expireTrial(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !expired && sub.IsTrial && sub.TrialEnd != nil {
		daysLeft := int(sub.TrialEnd.Sub(s.now()) / (24 * time.Hour))
		if daysLeft <= trialEndingWindowDays {
			s.Notifier.TrialEnding(email, daysLeft)
		}
	}
	return sub, nil
}

// IssueToken returns a fresh access token for an active subscriber. Trial
// tokens expire with the trial. Inactive subscribers get no token.
func (s *SubscriptionService) IssueToken(sub *model.Subscription) (string, error) {
	if sub == nil || !sub.IsActive {
		return "", nil
	}
	ttl := paidTokenTTL
	if sub.IsTrial && sub.TrialEnd != nil {
		ttl = sub.TrialEnd.Sub(s.now())
	}
	return s.Tokens.Issue(sub.Email, ttl)
}

// expireTrial deactivates sub when its trial is over and reports whether it
// did so.
func (s *SubscriptionService) expireTrial(ctx context.Context, sub *model.Subscription) (bool, error) {
	now := s.now()
	if !sub.IsTrial || sub.TrialEnd == nil || !now.After(*sub.TrialEnd) {
		return false, nil
	}
	if _, err := s.Repo.ExpireTrial(ctx, sub.Email, now); err != nil {
		return false, fmt.Errorf("expire trial for %s: %w", sub.Email, err)
	}
	sub.IsActive = false
	sub.IsTrial = false
	s.logger().Info("trial expired", zap.String("email", sub.Email))
	return true, nil
}

// AuthorizeAnalysis checks that email may run one more analysis and counts
// it against the trial allowance. The count is taken by a single
// conditional update, so concurrent requests cannot exceed the limit.
func (s *SubscriptionService) AuthorizeAnalysis(ctx context.Context, email string) (*model.Subscription, error) {
	sub, err := s.Repo.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, appErrors.ErrInactiveSubscription
	}
	if _, err := s.expireTrial(ctx, sub); err != nil {
		return nil, err
	}
	if !sub.IsActive {
		return nil, appErrors.ErrInactiveSubscription
	}
	if !sub.IsTrial {
		return sub, nil
	}

	count, counted, err := s.Repo.IncrementTrialAnalyses(ctx, email, s.TrialAnalysisLimit)
	if err != nil {
		return nil, fmt.Errorf("count analysis for %s: %w", email, err)
	}
	if counted {
		sub.AnalysisCount = count
		return sub, nil
	}

	// The record changed since it was read: the limit was reached, or it
	// was activated or expired in the meantime.
	current, err := s.Repo.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	switch {
	case current == nil || !current.IsActive:
		return nil, appErrors.ErrInactiveSubscription
	case !current.IsTrial:
		return current, nil
	default:
		return nil, appErrors.ErrTrialLimitReached
	}
}

// AvailableFeatures lists what sub may use. Inactive or missing
// subscriptions get basic analysis only.
func AvailableFeatures(sub *model.Subscription) model.Features {
	if sub == nil || !sub.IsActive {
		return model.Features{BasicAnalysis: true}
	}
	return model.Features{
		BasicAnalysis:    true,
		FullAnalysis:     true,
		SocialMediaIdeas: true,
		ROIDashboard:     true,
		ABTesting:        true,
	}
}

// CanUpgrade reports ErrAlreadyPaid when email is already a paid
// subscriber.
func (s *SubscriptionService) CanUpgrade(ctx context.Context, email string) error {
	sub, err := s.Repo.Get(ctx, email)
	if err != nil {
		return err
	}
	if sub != nil && sub.IsActive && !sub.IsTrial {
		return appErrors.ErrAlreadyPaid
	}
	return nil
}

// AttachPayPalSubscription records the billing subscription created for
// email so the activation webhook can find it. Unknown emails get a
// pending record that can still start a trial later. Paid subscribers keep
// their billing id and get ErrAlreadyPaid.
func (s *SubscriptionService) AttachPayPalSubscription(ctx context.Context, email, subscriptionID string) error {
	sub, err := s.Repo.Get(ctx, email)
	if err != nil {
		return err
	}
	if sub == nil {
		err := s.Repo.Create(ctx, &model.Subscription{Email: email, SubscriptionID: subscriptionID})
		if !appErrors.IsExists(err) {
			return err
		}
	}

	attached, err := s.Repo.AttachSubscriptionID(ctx, email, subscriptionID)
	if err != nil {
		return err
	}
	if !attached {
		return appErrors.ErrAlreadyPaid
	}
	return nil
}

// ActivateByPayPalSubscription turns the subscription linked to a PayPal
// billing id into a paid one. When the id is no longer linked, for example
// after a second checkout replaced it, email (the custom id set at
// checkout) is used instead. It returns (nil, nil) when no subscriber
// matches.
func (s *SubscriptionService) ActivateByPayPalSubscription(ctx context.Context, subscriptionID, email string) (*model.Subscription, error) {
	sub, err := s.Repo.FindBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil && email != "" {
		if sub, err = s.Repo.Get(ctx, email); err != nil {
			return nil, err
		}
	}
	if sub == nil {
		s.logger().Warn("activation for unknown subscription", zap.String("subscription_id", subscriptionID))
		return nil, nil
	}

	activated, err := s.Repo.Activate(ctx, sub.Email, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("activate %s: %w", sub.Email, err)
	}
	if !activated {
		return nil, nil
	}
	sub.IsActive = true
	sub.IsTrial = false
	sub.TrialEnd = nil
	if subscriptionID != "" {
		sub.SubscriptionID = subscriptionID
	}

	s.logger().Info("subscription activated", zap.String("email", sub.Email), zap.String("subscription_id", subscriptionID))
	s.Notifier.SubscriptionConfirmed(sub.Email)
	return sub, nil
}
