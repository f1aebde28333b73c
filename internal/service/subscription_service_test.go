package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/auth"
	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/model"
	"github.com/unclebandit/marketing-genius/internal/repository"
	"github.com/unclebandit/marketing-genius/internal/service"
)

// Mock queue records published email jobs
type MockQueue struct {
	mu   sync.Mutex
	jobs []model.EmailJob
	err  error
}

func (q *MockQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, payload.(model.EmailJob))
	return nil
}

func (q *MockQueue) Subscribe(topic string, handler func(payload any) error) error { return nil }

func (q *MockQueue) Subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Subject)
	}
	return out
}

// Mock repository that fails every call
type FailingRepo struct{}

var errDB = errors.New("db down")

func (FailingRepo) Get(context.Context, string) (*model.Subscription, error) { return nil, errDB }
func (FailingRepo) Create(context.Context, *model.Subscription) error       { return errDB }
func (FailingRepo) FindBySubscriptionID(context.Context, string) (*model.Subscription, error) {
	return nil, errDB
}
func (FailingRepo) StartTrial(context.Context, string, string, time.Time) (bool, error) {
	return false, errDB
}
func (FailingRepo) ExpireTrial(context.Context, string, time.Time) (bool, error) { return false, errDB }
func (FailingRepo) IncrementTrialAnalyses(context.Context, string, int) (int, bool, error) {
	return 0, false, errDB
}
func (FailingRepo) AttachSubscriptionID(context.Context, string, string) (bool, error) {
	return false, errDB
}
func (FailingRepo) Activate(context.Context, string, string) (bool, error) { return false, errDB }

// Slow repository that widens the gap between reading and writing a record
type SlowRepo struct {
	*repository.InMemorySubscriptionRepository
	delay    time.Duration
	afterGet func()
}

func (r *SlowRepo) Get(ctx context.Context, email string) (*model.Subscription, error) {
	sub, err := r.InMemorySubscriptionRepository.Get(ctx, email)
	time.Sleep(r.delay)
	if r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook()
	}
	return sub, err
}

type fixture struct {
	svc   *service.SubscriptionService
	repo  *repository.InMemorySubscriptionRepository
	queue *MockQueue
	now   time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:  repository.NewInMemorySubscriptionRepository(),
		queue: &MockQueue{},
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.svc = &service.SubscriptionService{
		Repo:   f.repo,
		Tokens: auth.NewTokens("test-secret", clock),
		Notifier: &service.Notifier{
			Queue:       f.queue,
			FrontendURL: "https://app.example",
			TrialDays:   7,
			Logger:      zap.NewNop(),
			Now:         clock,
		},
		TrialDays:          7,
		TrialAnalysisLimit: 3,
		Now:                clock,
		Logger:             zap.NewNop(),
	}
	return f
}

func TestSubscribe_StartsTrial(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sub, token, err := f.svc.Subscribe(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	assert.True(t, sub.IsTrial)
	require.NotNil(t, sub.TrialEnd)
	assert.Equal(t, f.now.Add(7*24*time.Hour), *sub.TrialEnd)

	claims, err := f.svc.Tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)

	stored, err := f.repo.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Alice", stored.Name)

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, "Welcome to Your Marketing Genius Trial", job.Subject)
	assert.Equal(t, "alice@example.com", job.To)
	assert.Contains(t, job.HTML, "Hi Alice,")
	assert.Contains(t, job.HTML, "7-day free trial")
	assert.NotEmpty(t, job.ID)
}

func TestSubscribe_EscapesName(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.Subscribe(context.Background(), "x@example.com", "<script>")
	require.NoError(t, err)
	require.Len(t, f.queue.jobs, 1)
	assert.NotContains(t, f.queue.jobs[0].HTML, "<script>")
	assert.Contains(t, f.queue.jobs[0].HTML, "&lt;script&gt;")
}

func TestSubscribe_Duplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "alice@example.com", "")
	require.NoError(t, err)

	_, _, err = f.svc.Subscribe(ctx, "alice@example.com", "")
	assert.True(t, appErrors.IsExists(err))
	assert.Len(t, f.queue.jobs, 1)
}

func TestSubscribe_QueueFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.queue.err = errors.New("broker down")

	sub, token, err := f.svc.Subscribe(context.Background(), "bob@example.com", "")
	require.NoError(t, err)
	assert.NotNil(t, sub)
	assert.NotEmpty(t, token)
}

func TestSubscribe_RepositoryError(t *testing.T) {
	f := newFixture()
	f.svc.Repo = FailingRepo{}
	_, _, err := f.svc.Subscribe(context.Background(), "bob@example.com", "")
	assert.ErrorIs(t, err, errDB)
}

func TestCheckSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CheckSubscription(ctx, "nobody@example.com")
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("fresh trial sends nothing", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
		require.NoError(t, err)

		f.now = f.now.Add(24 * time.Hour)
		sub, err := f.svc.CheckSubscription(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, sub.IsActive)
		assert.Len(t, f.queue.jobs, 1) // welcome only
	})

	t.Run("ending soon sends reminder", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
		require.NoError(t, err)

		f.now = f.now.Add(5 * 24 * time.Hour)
		sub, err := f.svc.CheckSubscription(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, sub.IsTrial)
		assert.Equal(t, []string{
			"Welcome to Your Marketing Genius Trial",
			"Your Marketing Genius Trial is Ending Soon",
		}, f.queue.Subjects())
		assert.Contains(t, f.queue.jobs[1].HTML, "https://app.example/subscribe")
	})

	t.Run("expired trial is deactivated", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
		require.NoError(t, err)

		f.now = f.now.Add(8 * 24 * time.Hour)
		sub, err := f.svc.CheckSubscription(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, sub.IsActive)
		assert.False(t, sub.IsTrial)

		stored, _ := f.repo.Get(ctx, "a@example.com")
		assert.False(t, stored.IsActive)
		assert.Len(t, f.queue.jobs, 1)
	})
}

func TestAuthorizeAnalysis_TrialLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		sub, err := f.svc.AuthorizeAnalysis(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, sub.AnalysisCount)
	}

	_, err = f.svc.AuthorizeAnalysis(ctx, "a@example.com")
	assert.ErrorIs(t, err, appErrors.ErrTrialLimitReached)

	stored, _ := f.repo.Get(ctx, "a@example.com")
	assert.Equal(t, 3, stored.AnalysisCount)
}

func TestAuthorizeAnalysis_ConcurrentRequestsRespectLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)
	f.svc.Repo = &SlowRepo{InMemorySubscriptionRepository: f.repo, delay: 5 * time.Millisecond}

	var wg sync.WaitGroup
	var mu sync.Mutex
	authorized, limited := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AuthorizeAnalysis(ctx, "a@example.com")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				authorized++
			case errors.Is(err, appErrors.ErrTrialLimitReached):
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, authorized)
	assert.Equal(t, 7, limited)
	stored, _ := f.repo.Get(ctx, "a@example.com")
	assert.Equal(t, 3, stored.AnalysisCount)
}

func TestAuthorizeAnalysis_KeepsConcurrentActivation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.AttachPayPalSubscription(ctx, "a@example.com", "I-SUB"))

	// activation lands between the read and the count
	f.svc.Repo = &SlowRepo{
		InMemorySubscriptionRepository: f.repo,
		afterGet: func() {
			_, err := f.repo.Activate(ctx, "a@example.com", "I-SUB")
			require.NoError(t, err)
		},
	}

	sub, err := f.svc.AuthorizeAnalysis(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, sub.IsTrial)

	stored, _ := f.repo.Get(ctx, "a@example.com")
	assert.True(t, stored.IsActive)
	assert.False(t, stored.IsTrial)
	assert.Equal(t, 0, stored.AnalysisCount)
}

func TestAuthorizeAnalysis_Inactive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.AuthorizeAnalysis(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, appErrors.ErrInactiveSubscription)

	_, _, err = f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)
	f.now = f.now.Add(10 * 24 * time.Hour)
	_, err = f.svc.AuthorizeAnalysis(ctx, "a@example.com")
	assert.ErrorIs(t, err, appErrors.ErrInactiveSubscription)
}

func TestAuthorizeAnalysis_PaidIsUnlimited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &model.Subscription{Email: "paid@example.com", IsActive: true}))

	for i := 0; i < 5; i++ {
		_, err := f.svc.AuthorizeAnalysis(ctx, "paid@example.com")
		require.NoError(t, err)
	}
	stored, _ := f.repo.Get(ctx, "paid@example.com")
	assert.Equal(t, 0, stored.AnalysisCount)
}

func TestAvailableFeatures(t *testing.T) {
	assert.Equal(t, model.Features{BasicAnalysis: true}, service.AvailableFeatures(nil))
	assert.Equal(t, model.Features{BasicAnalysis: true}, service.AvailableFeatures(&model.Subscription{}))

	all := service.AvailableFeatures(&model.Subscription{IsActive: true})
	assert.Equal(t, model.Features{
		BasicAnalysis:    true,
		FullAnalysis:     true,
		SocialMediaIdeas: true,
		ROIDashboard:     true,
		ABTesting:        true,
	}, all)
}

func TestPayPalActivation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.AttachPayPalSubscription(ctx, "a@example.com", "I-SUB"))

	sub, err := f.svc.ActivateByPayPalSubscription(ctx, "I-SUB", "")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "a@example.com", sub.Email)
	assert.True(t, sub.IsActive)
	assert.False(t, sub.IsTrial)
	assert.Nil(t, sub.TrialEnd)

	stored, _ := f.repo.Get(ctx, "a@example.com")
	assert.False(t, stored.IsTrial)
	assert.Equal(t, "Welcome to Marketing Genius Premium", f.queue.Subjects()[1])
}

func TestPayPalActivation_UnknownEmailAndID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.AttachPayPalSubscription(ctx, "new@example.com", "I-NEW"))
	stored, _ := f.repo.Get(ctx, "new@example.com")
	require.NotNil(t, stored)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "I-NEW", stored.SubscriptionID)

	sub, err := f.svc.ActivateByPayPalSubscription(ctx, "I-MISSING", "")
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, f.queue.jobs)

	// an abandoned checkout does not block a later trial
	trial, _, err := f.svc.Subscribe(ctx, "new@example.com", "New")
	require.NoError(t, err)
	assert.True(t, trial.IsTrial)
	assert.Equal(t, "I-NEW", trial.SubscriptionID)

	_, _, err = f.svc.Subscribe(ctx, "new@example.com", "New")
	assert.True(t, appErrors.IsExists(err))
}

func TestPayPalActivation_ReplacedIDFallsBackToEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.AttachPayPalSubscription(ctx, "a@example.com", "I-FIRST"))
	require.NoError(t, f.svc.AttachPayPalSubscription(ctx, "a@example.com", "I-SECOND"))

	sub, err := f.svc.ActivateByPayPalSubscription(ctx, "I-FIRST", "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)

	stored, _ := f.repo.Get(ctx, "a@example.com")
	assert.True(t, stored.IsActive)
	assert.False(t, stored.IsTrial)
	assert.Equal(t, "I-FIRST", stored.SubscriptionID)
}

func TestAttachPayPalSubscription_PaidKeepsBillingID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &model.Subscription{Email: "paid@example.com", IsActive: true, SubscriptionID: "I-PAID"}))

	assert.ErrorIs(t, f.svc.CanUpgrade(ctx, "paid@example.com"), appErrors.ErrAlreadyPaid)
	assert.NoError(t, f.svc.CanUpgrade(ctx, "nobody@example.com"))

	err := f.svc.AttachPayPalSubscription(ctx, "paid@example.com", "I-OTHER")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyPaid)

	stored, _ := f.repo.Get(ctx, "paid@example.com")
	assert.Equal(t, "I-PAID", stored.SubscriptionID)
}

func TestNilNotifierIsSafe(t *testing.T) {
	f := newFixture()
	f.svc.Notifier = nil
	_, _, err := f.svc.Subscribe(context.Background(), "a@example.com", "")
	assert.NoError(t, err)
}

func TestIssueToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	token, err := f.svc.IssueToken(&model.Subscription{Email: "off@example.com"})
	require.NoError(t, err)
	assert.Empty(t, token)

	sub, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)
	token, err = f.svc.IssueToken(sub)
	require.NoError(t, err)
	claims, err := f.svc.Tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, *sub.TrialEnd, claims.ExpiresAt.Time.UTC())
}
