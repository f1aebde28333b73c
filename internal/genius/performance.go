package genius

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Performance carries predicted metrics as display strings ("2.5%", "$0.8").
type Performance struct {
	CTR            string `json:"CTR"`
	CPC            string `json:"CPC"`
	ConversionRate string `json:"Conversion Rate"`
}

type ROI struct {
	Spend       string  `json:"Spend"`
	Conversions int     `json:"Conversions"`
	Revenue     string  `json:"Revenue"`
	ROAS        float64 `json:"ROAS"`
}

// PredictPerformance returns random, plausible-looking metrics. The campaign
// content is not used.
func (e *Engine) PredictPerformance(Campaign) Performance {
	ctr := round2(e.uniform(1.5, 4.0))
	cpc := round2(e.uniform(0.5, 1.5))
	conversion := round2(e.uniform(1.0, 3.0))
	return Performance{
		CTR:            formatDecimal(ctr) + "%",
		CPC:            "$" + formatDecimal(cpc),
		ConversionRate: formatDecimal(conversion) + "%",
	}
}

// MonitorCampaign raises alerts for a high CPC or a low CTR. It fails when
// either metric is missing or cannot be parsed.
func MonitorCampaign(p Performance) ([]string, error) {
	cpc, err := parseMetric("CPC", p.CPC, "$")
	if err != nil {
		return nil, err
	}
	ctr, err := parseMetric("CTR", p.CTR, "%")
	if err != nil {
		return nil, err
	}

	alerts := []string{}
	if cpc > 1.2 {
		alerts = append(alerts, "Warning: High cost-per-click detected.")
	}
	if ctr < 2.0 {
		alerts = append(alerts, "Warning: Low click-through rate detected.")
	}
	return alerts, nil
}

// ROIDashboard computes revenue and return on ad spend. ROAS is 0 when
// spend is not positive; a non-finite result yields the zero record.
func ROIDashboard(spend float64, conversions int, revenuePerConversion float64) ROI {
	revenue := float64(conversions) * revenuePerConversion
	roas := 0.0
	if spend > 0 {
		roas = round2(revenue / spend)
	}
	if !isFinite(revenue) || !isFinite(roas) {
		return ROI{
			Spend:       "$" + formatAmount(spend),
			Conversions: conversions,
			Revenue:     "$0",
			ROAS:        0,
		}
	}
	return ROI{
		Spend:       "$" + formatAmount(spend),
		Conversions: conversions,
		Revenue:     "$" + formatAmount(revenue),
		ROAS:        roas,
	}
}

// GenerateContentStrategy recommends content based on past CTR. A missing
// CTR counts as 0%.
func GenerateContentStrategy(past Performance) ([]string, error) {
	raw := past.CTR
	if raw == "" {
		raw = "0%"
	}
	ctr, err := parseMetric("CTR", raw, "%")
	if err != nil {
		return nil, err
	}

	recs := make([]string, 0, 2)
	if ctr < 2.5 {
		recs = append(recs, "Try short-form video next week.")
	} else {
		recs = append(recs, "Carousel posts performed best this month.")
	}
	return append(recs, "Consider retargeting recent visitors."), nil
}

func parseMetric(name, raw, unit string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("performance: missing %s", name)
	}
	v, err := strconv.ParseFloat(strings.Trim(raw, unit), 64)
	if err != nil {
		return 0, fmt.Errorf("performance: invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}

// formatDecimal always keeps a fractional part: 3 -> "3.0", 2.45 -> "2.45".
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
