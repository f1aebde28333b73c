package repository

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/model"
)

// InMemorySubscriptionRepository keeps subscriptions for the process
// lifetime only. Used when no DATABASE_URL is configured.
type InMemorySubscriptionRepository struct {
	mu   sync.Mutex
	subs map[string]model.Subscription
}

func NewInMemorySubscriptionRepository() *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{subs: make(map[string]model.Subscription)}
}

func (r *InMemorySubscriptionRepository) Get(_ context.Context, email string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[email]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *InMemorySubscriptionRepository) Create(_ context.Context, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[s.Email]; ok {
		return appErrors.NewSubscriptionExists(s.Email)
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.subs[s.Email] = *s
	return nil
}

// update applies change to email's record under the lock. change reports
// whether the record was in a state that allows it.
func (r *InMemorySubscriptionRepository) update(email string, change func(s *model.Subscription) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[email]
	if !ok || !change(&s) {
		return false
	}
	s.UpdatedAt = time.Now()
	r.subs[email] = s
	return true
}

func (r *InMemorySubscriptionRepository) StartTrial(_ context.Context, email, name string, trialEnd time.Time) (bool, error) {
	return r.update(email, func(s *model.Subscription) bool {
		if s.IsActive || s.IsTrial || s.TrialEnd != nil {
			return false
		}
		s.Name = name
		s.IsActive = true
		s.IsTrial = true
		s.TrialEnd = &trialEnd
		s.AnalysisCount = 0
		return true
	}), nil
}

func (r *InMemorySubscriptionRepository) ExpireTrial(_ context.Context, email string, now time.Time) (bool, error) {
	return r.update(email, func(s *model.Subscription) bool {
		if !s.IsTrial || s.TrialEnd == nil || !s.TrialEnd.Before(now) {
			return false
		}
		s.IsActive = false
		s.IsTrial = false
		return true
	}), nil
}

func (r *InMemorySubscriptionRepository) IncrementTrialAnalyses(_ context.Context, email string, limit int) (int, bool, error) {
	var count int
	ok := r.update(email, func(s *model.Subscription) bool {
		if !s.IsActive || !s.IsTrial || s.AnalysisCount >= limit {
			return false
		}
		s.AnalysisCount++
		count = s.AnalysisCount
		return true
	})
	return count, ok, nil
}

func (r *InMemorySubscriptionRepository) AttachSubscriptionID(_ context.Context, email, subscriptionID string) (bool, error) {
	return r.update(email, func(s *model.Subscription) bool {
		if s.IsActive && !s.IsTrial {
			return false
		}
		s.SubscriptionID = subscriptionID
		return true
	}), nil
}

func (r *InMemorySubscriptionRepository) Activate(_ context.Context, email, subscriptionID string) (bool, error) {
	return r.update(email, func(s *model.Subscription) bool {
		s.IsActive = true
		s.IsTrial = false
		s.TrialEnd = nil
		if subscriptionID != "" {
			s.SubscriptionID = subscriptionID
		}
		return true
	}), nil
}

func (r *InMemorySubscriptionRepository) FindBySubscriptionID(_ context.Context, subscriptionID string) (*model.Subscription, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subs {
		if s.SubscriptionID == subscriptionID {
			return &s, nil
		}
	}
	return nil, nil
}

var _ SubscriptionRepositoryInterface = (*InMemorySubscriptionRepository)(nil)
