package service_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/marketing-genius/internal/errors"
	"github.com/unclebandit/marketing-genius/internal/genius"
	"github.com/unclebandit/marketing-genius/internal/service"
)

func newAnalysisService(f *fixture) *service.AnalysisService {
	engine := genius.New(nil,
		genius.WithRateLimiter(genius.NewRateLimiter(0)),
		genius.WithRand(rand.New(rand.NewPCG(1, 2))))
	return &service.AnalysisService{Engine: engine, Subscriptions: f.svc}
}

func TestAnalyze_ReturnsReportWithFeatures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)

	employees := 120
	res, err := newAnalysisService(f).Analyze(ctx, "a@example.com", "https://www.glow-skincare.com/shop", &employees)
	require.NoError(t, err)

	assert.Equal(t, "skincare", res.Industry)
	assert.Equal(t, "medium", res.BusinessSize)
	assert.Equal(t, []string{"glow", "skincare", "shop"}, res.Keywords)
	assert.True(t, res.Features.FullAnalysis)
	assert.Len(t, res.ABVariations, 9)
}

func TestAnalyze_RequiresSubscription(t *testing.T) {
	f := newFixture()
	_, err := newAnalysisService(f).Analyze(context.Background(), "nobody@example.com", "https://example.com", nil)
	assert.ErrorIs(t, err, appErrors.ErrInactiveSubscription)
}

func TestAnalyze_RequiresURL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, err := f.svc.Subscribe(ctx, "a@example.com", "")
	require.NoError(t, err)

	_, err = newAnalysisService(f).Analyze(ctx, "a@example.com", "", nil)
	assert.ErrorIs(t, err, service.ErrURLRequired)
}
