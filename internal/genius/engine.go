// internal/genius/engine.go
package genius

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	keywordCacheSize  = 1000
	industryCacheSize = 100

	// GeneralIndustry is returned when no configured industry matches.
	GeneralIndustry = "general"
)

var stopwords = map[string]struct{}{
	"www": {}, "com": {}, "net": {}, "org": {}, "html": {}, "php": {}, "index": {},
}

// Engine turns a business URL into campaign suggestions using a Rules table.
// It is safe for concurrent use.
type Engine struct {
	rules   *Rules
	logger  *zap.Logger
	limiter *RateLimiter

	keywords   *lruCache[[]string]
	industries *lruCache[string]

	randMu sync.Mutex
	rand   *rand.Rand
}

type Option func(*Engine)

// WithRand sets the random source used for CTA selection and predictions.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rand = r }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRateLimiter replaces the default 2 calls/second limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// New builds an engine over rules. A nil rules value means DefaultRules.
func New(rules *Rules, opts ...Option) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	e := &Engine{
		rules:      rules,
		logger:     zap.NewNop(),
		limiter:    NewRateLimiter(2),
		keywords:   newLRUCache[[]string](keywordCacheSize),
		industries: newLRUCache[string](industryCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rand == nil {
		seed := uint64(time.Now().UnixNano())
		e.rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	e.logger.Info("marketing engine initialized",
		zap.Int("industries", len(rules.Industries)),
		zap.Int("ctas", len(rules.CTAList)))
	return e
}

func (e *Engine) Rules() *Rules { return e.rules }

// ParseURLKeywords extracts lowercase keywords from the host and path of
// rawURL. A URL without a host yields an empty slice. Results are memoized
// per exact input string; only cache misses go through the rate limiter.
func (e *Engine) ParseURLKeywords(rawURL string) []string {
	if cached, ok := e.keywords.Get(rawURL); ok {
		return slices.Clone(cached)
	}
	e.limiter.Wait()

	keywords := extractKeywords(rawURL)
	if keywords == nil {
		e.logger.Warn("invalid URL provided", zap.String("url", rawURL))
		keywords = []string{}
	} else {
		e.logger.Info("extracted keywords from URL", zap.Int("count", len(keywords)))
	}
	e.keywords.Add(rawURL, keywords)
	return slices.Clone(keywords)
}

// extractKeywords returns nil when rawURL has no network location.
func extractKeywords(rawURL string) []string {
	netloc, path := splitURL(rawURL)
	if netloc == "" {
		return nil
	}

	keywords := []string{}
	keep := func(parts []string) {
		for _, p := range parts {
			if utf8.RuneCountInString(p) <= 2 {
				continue
			}
			p = strings.ToLower(p)
			if _, stop := stopwords[p]; stop {
				continue
			}
			keywords = append(keywords, p)
		}
	}
	keep(strings.FieldsFunc(netloc, func(r rune) bool { return r == '.' || r == '-' }))
	keep(strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '-' }))
	return keywords
}

// splitURL returns the network location and path of rawURL as written.
// Escapes are neither decoded nor validated.
func splitURL(rawURL string) (netloc, path string) {
	rest := rawURL
	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		rest = rest[i+1:]
	}
	if end := strings.IndexAny(rest, "?#"); end >= 0 {
		rest = rest[:end]
	}
	after, ok := strings.CutPrefix(rest, "//")
	if !ok {
		return "", rest
	}
	if i := strings.IndexByte(after, '/'); i >= 0 {
		return after[:i], after[i:]
	}
	return after, ""
}

func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// ClassifyIndustry returns the first configured industry, in configuration
// order, whose name equals one of the comma-separated keywords, or
// GeneralIndustry. Results are memoized per exact input string.
func (e *Engine) ClassifyIndustry(keywords string) string {
	if cached, ok := e.industries.Get(keywords); ok {
		return cached
	}
	e.limiter.Wait()

	tokens := strings.Split(keywords, ",")
	industry := GeneralIndustry
	for _, ind := range e.rules.Industries {
		if slices.Contains(tokens, ind.Name) {
			industry = ind.Name
			break
		}
	}
	e.industries.Add(keywords, industry)
	return industry
}

func defaultAudience() Audience {
	return Audience{
		Channels:  []string{"Facebook", "Google"},
		AgeRange:  []int{18, 65},
		Interests: []string{"general"},
		Strategy:  "Use broad marketing to test your audience.",
	}
}

// SuggestAudience returns the configured audience for industry, or the
// generic default when the industry is unknown. The returned slices are
// the caller's to modify.
func (e *Engine) SuggestAudience(industry string) Audience {
	if aud, ok := e.rules.Industry(industry); ok {
		aud.Channels = slices.Clone(aud.Channels)
		aud.AgeRange = slices.Clone(aud.AgeRange)
		aud.Interests = slices.Clone(aud.Interests)
		return aud
	}
	return defaultAudience()
}

// SuggestBusinessSize maps an employee count to a size tier. A nil or
// negative count is treated as small.
func SuggestBusinessSize(employeeCount *int) string {
	switch {
	case employeeCount == nil || *employeeCount < 50:
		return "small"
	case *employeeCount < 250:
		return "medium"
	default:
		return "large"
	}
}

// ClearCache drops the keyword and industry memoizations. Call it after the
// rules have been reloaded.
func (e *Engine) ClearCache() {
	e.keywords.Clear()
	e.industries.Clear()
	e.logger.Info("cache cleared")
}

func (e *Engine) uniform(lo, hi float64) float64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return lo + e.rand.Float64()*(hi-lo)
}

func (e *Engine) pick(items []string) string {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return items[e.rand.IntN(len(items))]
}
