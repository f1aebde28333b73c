package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/model"
)

// SubscriptionRepositoryInterface is the persistence contract the services use.
// Get and FindBySubscriptionID return (nil, nil) when nothing matches.
//
// State changes are single conditional updates. Each reports false when
// the row is missing or its current state does not allow the change, so
// concurrent requests never overwrite each other's fields.
type SubscriptionRepositoryInterface interface {
	Get(ctx context.Context, email string) (*model.Subscription, error)
	Create(ctx context.Context, s *model.Subscription) error
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Subscription, error)

	// StartTrial turns a pending record (never active, never trialled)
	// into a trial.
	StartTrial(ctx context.Context, email, name string, trialEnd time.Time) (bool, error)
	// ExpireTrial deactivates a trial whose end is before now.
	ExpireTrial(ctx context.Context, email string, now time.Time) (bool, error)
	// IncrementTrialAnalyses counts one analysis for an active trial still
	// under limit and returns the new count.
	IncrementTrialAnalyses(ctx context.Context, email string, limit int) (int, bool, error)
	// AttachSubscriptionID links a billing id to a subscriber that is not
	// already paid.
	AttachSubscriptionID(ctx context.Context, email, subscriptionID string) (bool, error)
	// Activate makes email a paid subscriber linked to subscriptionID.
	Activate(ctx context.Context, email, subscriptionID string) (bool, error)
}

type SubscriptionRepository struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

const subscriptionColumns = `email, name, is_active, is_trial, trial_end, analysis_count,
    COALESCE(subscription_id, ''), created_at, updated_at`

func (r *SubscriptionRepository) Create(ctx context.Context, s *model.Subscription) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	query := `
        INSERT INTO subscriptions (email, name, is_active, is_trial, trial_end, analysis_count, subscription_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query,
		s.Email, s.Name, s.IsActive, s.IsTrial, s.TrialEnd, s.AnalysisCount, s.SubscriptionID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.NewSubscriptionExists(s.Email)
		}
		return err
	}
	return nil
}

func (r *SubscriptionRepository) StartTrial(ctx context.Context, email, name string, trialEnd time.Time) (bool, error) {
	query := `
        UPDATE subscriptions
        SET name=$2, is_active=TRUE, is_trial=TRUE, trial_end=$3, analysis_count=0, updated_at=NOW()
        WHERE email=$1 AND NOT is_active AND NOT is_trial AND trial_end IS NULL
    `
	return r.exec(ctx, query, email, name, trialEnd)
}

func (r *SubscriptionRepository) ExpireTrial(ctx context.Context, email string, now time.Time) (bool, error) {
	query := `
        UPDATE subscriptions
        SET is_active=FALSE, is_trial=FALSE, updated_at=NOW()
        WHERE email=$1 AND is_trial AND trial_end < $2
    `
	return r.exec(ctx, query, email, now)
}

func (r *SubscriptionRepository) IncrementTrialAnalyses(ctx context.Context, email string, limit int) (int, bool, error) {
	query := `
        UPDATE subscriptions
        SET analysis_count = analysis_count + 1, updated_at=NOW()
        WHERE email=$1 AND is_active AND is_trial AND analysis_count < $2
        RETURNING analysis_count
    `
	var count int
	err := r.DB.QueryRowContext(ctx, query, email, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (r *SubscriptionRepository) AttachSubscriptionID(ctx context.Context, email, subscriptionID string) (bool, error) {
	query := `
        UPDATE subscriptions
        SET subscription_id=$2, updated_at=NOW()
        WHERE email=$1 AND NOT (is_active AND NOT is_trial)
    `
	return r.exec(ctx, query, email, subscriptionID)
}

func (r *SubscriptionRepository) Activate(ctx context.Context, email, subscriptionID string) (bool, error) {
	query := `
        UPDATE subscriptions
        SET is_active=TRUE, is_trial=FALSE, trial_end=NULL,
            subscription_id=COALESCE(NULLIF($2, ''), subscription_id), updated_at=NOW()
        WHERE email=$1
    `
	return r.exec(ctx, query, email, subscriptionID)
}

func (r *SubscriptionRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SubscriptionRepository) Get(ctx context.Context, email string) (*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE email=$1`
	return scanSubscription(r.DB.QueryRowContext(ctx, query, email))
}

func (r *SubscriptionRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE subscription_id=$1`
	return scanSubscription(r.DB.QueryRowContext(ctx, query, subscriptionID))
}

func scanSubscription(row *sql.Row) (*model.Subscription, error) {
	var s model.Subscription
	var trialEnd sql.NullTime
	err := row.Scan(&s.Email, &s.Name, &s.IsActive, &s.IsTrial, &trialEnd, &s.AnalysisCount,
		&s.SubscriptionID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if trialEnd.Valid {
		s.TrialEnd = &trialEnd.Time
	}
	return &s, nil
}

var _ SubscriptionRepositoryInterface = (*SubscriptionRepository)(nil)
