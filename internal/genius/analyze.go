package genius

import (
	"fmt"
	"strings"
)

const (
	defaultBudget               = 500
	defaultROISpend             = 500
	defaultROIConversions       = 30
	defaultRevenuePerConversion = 25
)

// Report is the full bundle returned for one analyzed URL.
type Report struct {
	Keywords               []string            `json:"keywords"`
	Industry               string              `json:"industry"`
	BusinessSize           string              `json:"business_size"`
	Campaign               Campaign            `json:"campaign"`
	Strategy               string              `json:"strategy"`
	SocialIdeas            map[string][]string `json:"social_ideas"`
	Performance            Performance         `json:"performance"`
	ABVariations           []AdCopy            `json:"ab_variations"`
	BudgetAllocation       map[string]float64  `json:"budget_allocation"`
	Schedule               Schedule            `json:"schedule"`
	Alerts                 []string            `json:"alerts"`
	ROI                    ROI                 `json:"roi"`
	ContentRecommendations []string            `json:"content_recommendations"`
}

// Analyze runs every generator for rawURL. employeeCount may be nil.
func (e *Engine) Analyze(rawURL string, employeeCount *int) (*Report, error) {
	keywords := e.ParseURLKeywords(rawURL)
	industry := e.ClassifyIndustry(strings.Join(keywords, ","))
	size := SuggestBusinessSize(employeeCount)
	campaign := e.BuildCampaign(keywords, industry)
	performance := e.PredictPerformance(campaign)

	alerts, err := MonitorCampaign(performance)
	if err != nil {
		return nil, fmt.Errorf("monitor campaign: %w", err)
	}
	recs, err := GenerateContentStrategy(performance)
	if err != nil {
		return nil, fmt.Errorf("content strategy: %w", err)
	}

	return &Report{
		Keywords:               keywords,
		Industry:               industry,
		BusinessSize:           size,
		Campaign:               campaign,
		Strategy:               e.SuggestMarketingStrategy(industry, size),
		SocialIdeas:            GenerateSocialPostIdeas(industry),
		Performance:            performance,
		ABVariations:           ABTestVariations(campaign),
		BudgetAllocation:       AllocateBudget(campaign, defaultBudget),
		Schedule:               ScheduleCampaign(campaign),
		Alerts:                 alerts,
		ROI:                    ROIDashboard(defaultROISpend, defaultROIConversions, defaultRevenuePerConversion),
		ContentRecommendations: recs,
	}, nil
}
