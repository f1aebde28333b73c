package genius

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

type AdCopy struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
}

type Targeting struct {
	AgeRange  []int    `json:"age_range"`
	Interests []string `json:"interests"`
	Geo       string   `json:"geo"`
}

// Campaign is derived per request and never stored.
type Campaign struct {
	AdCopy      []AdCopy  `json:"ad_copy"`
	ImagePrompt string    `json:"image_prompt"`
	Channels    []string  `json:"channels"`
	Targeting   Targeting `json:"targeting"`
}

type Schedule struct {
	BestDays  []string `json:"best_days"`
	BestHours []string `json:"best_hours"`
}

var (
	fallbackAd = AdCopy{
		Headline:    "Discover our products now!",
		Description: "Try our products and feel the difference today.",
		CTA:         "Learn More",
	}
	abSuffixes = []string{" - Limited Offer!", " Today Only!", " Exclusive Deal!"}
)

// BuildCampaign assembles ad copy, an image prompt, channels and targeting
// for the given keywords and industry.
func (e *Engine) BuildCampaign(keywords []string, industry string) Campaign {
	audience := e.SuggestAudience(industry)
	channels := audience.Channels
	if channels == nil {
		channels = []string{"Facebook", "Google"}
	}
	ageRange := audience.AgeRange
	if ageRange == nil {
		ageRange = []int{18, 65}
	}
	interests := audience.Interests
	if interests == nil {
		interests = []string{}
	}
	return Campaign{
		AdCopy:      e.GenerateAdCopy(keywords),
		ImagePrompt: GenerateImagePrompt(keywords),
		Channels:    channels,
		Targeting: Targeting{
			AgeRange:  ageRange,
			Interests: interests,
			Geo:       "default",
		},
	}
}

// GenerateAdCopy builds one ad per keyword for the first three keywords.
// The CTA of each ad is drawn at random from the configured list.
func (e *Engine) GenerateAdCopy(keywords []string) []AdCopy {
	if len(keywords) == 0 || len(e.rules.CTAList) == 0 {
		return []AdCopy{fallbackAd}
	}
	ads := make([]AdCopy, 0, 3)
	for _, k := range firstN(keywords, 3) {
		ads = append(ads, AdCopy{
			Headline:    fmt.Sprintf("Discover the best %s now!", capitalize(k)),
			Description: fmt.Sprintf("Try our %s and feel the difference today.", k),
			CTA:         e.pick(e.rules.CTAList),
		})
	}
	return ads
}

func GenerateImagePrompt(keywords []string) string {
	return "Professional product photo featuring " + strings.Join(firstN(keywords, 3), " and ")
}

// SuggestMarketingStrategy joins the industry strategy and the size tier
// template with a single space. An unknown tier leaves a trailing space.
func (e *Engine) SuggestMarketingStrategy(industry, businessSize string) string {
	industryStrategy := "Use general marketing approaches."
	if aud, ok := e.rules.Industry(industry); ok && aud.Strategy != "" {
		industryStrategy = aud.Strategy
	}
	return industryStrategy + " " + e.rules.BusinessSizeTemplates[businessSize]
}

// GenerateSocialPostIdeas returns three post ideas for each supported
// platform. The industry name is used verbatim.
func GenerateSocialPostIdeas(industry string) map[string][]string {
	return map[string][]string{
		"Facebook": {
			fmt.Sprintf("Share a customer testimonial about your %s products.", industry),
			fmt.Sprintf("Post a behind-the-scenes look at how your %s items are made.", industry),
			fmt.Sprintf("Run a poll about favorite %s features.", industry),
		},
		"Instagram": {
			fmt.Sprintf("Create a visually stunning carousel showcasing your %s products.", industry),
			fmt.Sprintf("Use Stories to highlight limited-time offers on %s items.", industry),
			fmt.Sprintf("Post short videos demonstrating %s benefits.", industry),
		},
		"TikTok": {
			fmt.Sprintf("Post fun, trending videos related to %s tips or hacks.", industry),
			fmt.Sprintf("Show quick tutorials or product unboxings in %s.", industry),
			fmt.Sprintf("Create challenges or hashtag campaigns around %s.", industry),
		},
		"LinkedIn": {
			fmt.Sprintf("Publish articles on industry trends related to %s.", industry),
			"Share professional testimonials or case studies.",
			fmt.Sprintf("Highlight company culture focused on %s innovation.", industry),
		},
		"Twitter": {
			fmt.Sprintf("Tweet quick tips related to %s.", industry),
			fmt.Sprintf("Engage with trending topics about %s.", industry),
			fmt.Sprintf("Share links to blog posts or news in the %s space.", industry),
		},
	}
}

// ABTestVariations appends each fixed suffix to every headline.
func ABTestVariations(c Campaign) []AdCopy {
	variations := make([]AdCopy, 0, len(c.AdCopy)*len(abSuffixes))
	for _, ad := range c.AdCopy {
		for _, suffix := range abSuffixes {
			variations = append(variations, AdCopy{
				Headline:    ad.Headline + suffix,
				Description: ad.Description,
				CTA:         ad.CTA,
			})
		}
	}
	return variations
}

// AllocateBudget splits budget evenly over the campaign channels. Amounts
// are rounded per channel and may not add up to budget exactly.
func AllocateBudget(c Campaign, budget float64) map[string]float64 {
	alloc := map[string]float64{}
	if budget <= 0 || len(c.Channels) == 0 {
		return alloc
	}
	share := round2(budget / float64(len(c.Channels)))
	for _, ch := range c.Channels {
		alloc[ch] = share
	}
	return alloc
}

// ScheduleCampaign always suggests the same posting windows.
func ScheduleCampaign(Campaign) Schedule {
	return Schedule{
		BestDays:  []string{"Tuesday", "Thursday"},
		BestHours: []string{"12pm-2pm", "7pm-9pm"},
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// round2 rounds to cents, halves to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
