// internal/model/subscription.go
package model

import "time"

type Subscription struct {
	Email          string     `db:"email" json:"email"`
	Name           string     `db:"name" json:"name,omitempty"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	IsTrial        bool       `db:"is_trial" json:"is_trial"`
	TrialEnd       *time.Time `db:"trial_end" json:"trial_end"`
	AnalysisCount  int        `db:"analysis_count" json:"analysis_count"`
	SubscriptionID string     `db:"subscription_id" json:"subscription_id,omitempty"` // PayPal billing subscription
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Features lists what a subscriber may use.
type Features struct {
	BasicAnalysis    bool `json:"basic_analysis"`
	FullAnalysis     bool `json:"full_analysis"`
	SocialMediaIdeas bool `json:"social_media_ideas"`
	ROIDashboard     bool `json:"roi_dashboard"`
	ABTesting        bool `json:"ab_testing"`
}
