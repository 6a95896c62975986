package scoring

import "github.com/jevancousins/jobhunter/internal/jobs"

const (
	DefaultMinScore    = jobs.DefaultMinScore
	DefaultStrongMatch = 80
)

// Thresholds are the qualification and strong-match cut-offs.
type Thresholds struct {
	MinScore    float64 `mapstructure:"min-score"`
	StrongMatch float64 `mapstructure:"strong-match"`
}

// WithDefaults fills unset thresholds.
func (t Thresholds) WithDefaults() Thresholds {
	if t.MinScore <= 0 {
		t.MinScore = DefaultMinScore
	}
	if t.StrongMatch <= 0 {
		t.StrongMatch = DefaultStrongMatch
	}
	return t
}

// FilterByScore returns the postings whose score is at or above min, in order.
func FilterByScore(postings []*jobs.Posting, min float64) []*jobs.Posting {
	kept := make([]*jobs.Posting, 0, len(postings))
	for _, p := range postings {
		if p.Score >= min {
			kept = append(kept, p)
		}
	}
	return kept
}

// StrongMatches returns the postings at or above the strong-match threshold.
func StrongMatches(postings []*jobs.Posting, threshold float64) []*jobs.Posting {
	return FilterByScore(postings, threshold)
}
