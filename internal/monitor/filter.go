package monitor

import (
	"strings"

	"github.com/abdulachik/trendscout/internal/db"
)

// Filter decides which stored trends are surfaced to readers.
// Every observed trend is stored; the filter only shapes read views.
type Filter struct {
	categories   map[string]struct{}
	blockedTerms []string
}

// FilterConfig holds filter configuration.
type FilterConfig struct {
	// Categories is the allow-list. Empty allows every category.
	Categories []string

	// BlockedTerms hides trends whose name contains any of them.
	BlockedTerms []string
}

// NewFilter creates a new filter.
func NewFilter(cfg FilterConfig) *Filter {
	categories := make(map[string]struct{}, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	terms := make([]string, 0, len(cfg.BlockedTerms))
	for _, term := range cfg.BlockedTerms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			terms = append(terms, term)
		}
	}

	return &Filter{
		categories:   categories,
		blockedTerms: terms,
	}
}

// FilterResult contains the filter decision.
type FilterResult struct {
	Pass   bool
	Reason string
}

// Check examines a trend's name and category.
func (f *Filter) Check(name, category string) FilterResult {
	if len(f.categories) > 0 {
		if _, ok := f.categories[strings.ToLower(strings.TrimSpace(category))]; !ok {
			return FilterResult{
				Pass:   false,
				Reason: "category not allowed: " + category,
			}
		}
	}

	text := strings.ToLower(name)
	for _, term := range f.blockedTerms {
		if strings.Contains(text, term) {
			return FilterResult{
				Pass:   false,
				Reason: "contains blocked term: " + term,
			}
		}
	}

	return FilterResult{Pass: true}
}

// FilterTrends returns the trends that pass, preserving order.
func (f *Filter) FilterTrends(trends []*db.Trend) []*db.Trend {
	result := make([]*db.Trend, 0, len(trends))

	for _, trend := range trends {
		if check := f.Check(trend.Name, trend.Category); check.Pass {
			result = append(result, trend)
		}
	}

	return result
}
