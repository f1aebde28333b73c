// internal/genius/rules.go
package genius

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Audience holds the targeting defaults for one industry.
type Audience struct {
	Channels  []string `json:"channels" yaml:"channels"`
	AgeRange  []int    `json:"age_range" yaml:"age_range"`
	Interests []string `json:"interests" yaml:"interests"`
	Strategy  string   `json:"strategy" yaml:"strategy"`
}

// Industry is a named entry of the industry map.
type Industry struct {
	Name string
	Audience
}

type Platform struct {
	MaxLength int  `json:"max_length" yaml:"max_length"`
	Hashtags  bool `json:"hashtags" yaml:"hashtags"`
}

// Rules is the configuration table the engine generates from.
// Industries keep their configured order: classification is first-match-wins.
// A Rules value must not be mutated once it has been handed to an Engine.
type Rules struct {
	Industries            []Industry
	SocialPlatforms       map[string]Platform
	CTAList               []string
	BusinessSizeTemplates map[string]string
}

// Industry looks up an industry by its exact name.
func (r *Rules) Industry(name string) (Audience, bool) {
	for _, ind := range r.Industries {
		if ind.Name == name {
			return ind.Audience, true
		}
	}
	return Audience{}, false
}

// DefaultRules returns the built-in configuration.
func DefaultRules() *Rules {
	return &Rules{
		Industries: []Industry{
			{
				Name: "skincare",
				Audience: Audience{
					Channels:  []string{"Facebook", "Instagram"},
					AgeRange:  []int{25, 40},
					Interests: []string{"organic", "beauty"},
					Strategy:  "Focus on influencer partnerships and video demos.",
				},
			},
			{
				Name: "tech",
				Audience: Audience{
					Channels:  []string{"Google", "LinkedIn"},
					AgeRange:  []int{18, 45},
					Interests: []string{"software", "gadgets"},
					Strategy:  "Leverage thought leadership and product webinars.",
				},
			},
		},
		SocialPlatforms: map[string]Platform{
			"Facebook":  {MaxLength: 125, Hashtags: true},
			"Instagram": {MaxLength: 150, Hashtags: true},
			"TikTok":    {MaxLength: 100, Hashtags: true},
			"LinkedIn":  {MaxLength: 600, Hashtags: false},
			"Twitter":   {MaxLength: 280, Hashtags: true},
			"Google":    {MaxLength: 90, Hashtags: false},
		},
		CTAList: []string{"Buy Now", "Learn More", "Get Yours Today", "Sign Up", "Try Free", "Discover More"},
		BusinessSizeTemplates: map[string]string{
			"small":  "Focus on local marketing, social proof, and budget-friendly digital ads.",
			"medium": "Expand multi-channel campaigns with retargeting and email automation.",
			"large":  "Invest in brand-building, influencer partnerships, and advanced analytics.",
		},
	}
}

// industryTable decodes a mapping node while keeping key order.
type industryTable []Industry

func (t *industryTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("industry_map: expected a mapping, got line %d", node.Line)
	}
	out := make(industryTable, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var aud Audience
		if err := node.Content[i+1].Decode(&aud); err != nil {
			return fmt.Errorf("industry_map.%s: %w", node.Content[i].Value, err)
		}
		out = append(out, Industry{Name: node.Content[i].Value, Audience: aud})
	}
	*t = out
	return nil
}

// rulesFile mirrors the on-disk layout. Pointers tell a missing key apart
// from an empty one so overrides replace whole top-level values.
type rulesFile struct {
	IndustryMap           *industryTable       `yaml:"industry_map"`
	SocialPlatforms       *map[string]Platform `yaml:"social_platforms"`
	CTAList               *[]string            `yaml:"cta_list"`
	BusinessSizeTemplates *map[string]string   `yaml:"business_size_templates"`
}

// ParseRules merges data over the defaults. Top-level keys present in data
// replace the default value entirely; nothing is merged below that level.
// JSON documents are accepted as well since they parse as YAML.
func ParseRules(data []byte) (*Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := DefaultRules()
	if file.IndustryMap != nil {
		rules.Industries = []Industry(*file.IndustryMap)
	}
	if file.SocialPlatforms != nil {
		rules.SocialPlatforms = *file.SocialPlatforms
	}
	if file.CTAList != nil {
		rules.CTAList = *file.CTAList
	}
	if file.BusinessSizeTemplates != nil {
		rules.BusinessSizeTemplates = *file.BusinessSizeTemplates
	}

	if err := rules.validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) validate() error {
	var errs []error
	for _, ind := range r.Industries {
		if len(ind.AgeRange) != 2 || ind.AgeRange[0] > ind.AgeRange[1] {
			errs = append(errs, fmt.Errorf("industry %q: age_range must be [low, high] with low <= high", ind.Name))
		}
	}
	for name, p := range r.SocialPlatforms {
		if p.MaxLength < 1 {
			errs = append(errs, fmt.Errorf("platform %q: max_length must be >= 1", name))
		}
	}
	return errors.Join(errs...)
}

// LoadRules reads the rules file at path. Any failure is logged and the
// defaults are returned instead; it never fails.
func LoadRules(path string, logger *zap.Logger) *Rules {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		logger.Info("no rules file provided, using defaults")
		return DefaultRules()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("rules file not found, using defaults", zap.String("path", path))
		} else {
			logger.Error("failed to read rules file, using defaults", zap.String("path", path), zap.Error(err))
		}
		return DefaultRules()
	}

	rules, err := ParseRules(data)
	if err != nil {
		logger.Error("invalid rules file, using defaults", zap.String("path", path), zap.Error(err))
		return DefaultRules()
	}
	logger.Info("loaded rules", zap.String("path", path), zap.Int("industries", len(rules.Industries)))
	return rules
}
