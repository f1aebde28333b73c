package service

import (
	"context"
	"errors"

	"github.com/unclebandit/marketing-genius/internal/genius"
	"github.com/unclebandit/marketing-genius/internal/model"
)

var ErrURLRequired = errors.New("URL is required")

// AnalysisResult is a genius report plus the features the caller may use.
type AnalysisResult struct {
	*genius.Report
	Features model.Features `json:"features"`
}

type AnalysisService struct {
	Engine        *genius.Engine
	Subscriptions *SubscriptionService
}

// Analyze gates the request on email's subscription and then runs the
// full engine pipeline for rawURL. A missing URL is rejected before an
// analysis is counted.
func (s *AnalysisService) Analyze(ctx context.Context, email, rawURL string, employeeCount *int) (*AnalysisResult, error) {
	if rawURL == "" {
		return nil, ErrURLRequired
	}
	sub, err := s.Subscriptions.AuthorizeAnalysis(ctx, email)
	if err != nil {
		return nil, err
	}

	report, err := s.Engine.Analyze(rawURL, employeeCount)
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{Report: report, Features: AvailableFeatures(sub)}, nil
}
