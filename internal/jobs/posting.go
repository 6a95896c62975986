package jobs

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

const idLength = 12

// Posting is one job listing flowing through the pipeline.
type Posting struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	Description  string     `json:"description,omitempty"`
	URL          string     `json:"url"`
	Source       Source     `json:"source"`
	Salary       string     `json:"salary,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	DiscoveredAt time.Time  `json:"discovered_at"`

	Score           float64         `json:"score"`
	Breakdown       *ScoreBreakdown `json:"score_breakdown,omitempty"`
	Analysis        string          `json:"ai_analysis,omitempty"`
	KeyRequirements []string        `json:"key_requirements,omitempty"`
	Concerns        []string        `json:"potential_concerns,omitempty"`
	Questions       []string        `json:"questions_to_ask,omitempty"`
	Verdict         string          `json:"verdict,omitempty"`
	Dealbreaker     string          `json:"dealbreaker,omitempty"`

	Status         Status `json:"status"`
	CVURL          string `json:"tailored_cv_url,omitempty"`
	CoverLetterURL string `json:"cover_letter_url,omitempty"`
	Notes          string `json:"notes,omitempty"`

	// PageID is the workspace record handle, empty until the posting is persisted.
	PageID string `json:"page_id,omitempty"`
}

// NewPosting creates a posting in New status with its identifier derived from
// company, title and url.
func NewPosting(title, company, location, url string, source Source) *Posting {
	p := &Posting{
		Title:        title,
		Company:      company,
		Location:     location,
		URL:          url,
		Source:       source,
		Status:       StatusNew,
		DiscoveredAt: time.Now().UTC(),
	}
	p.EnsureID()
	return p
}

// PostingID derives the stable posting identifier.
func PostingID(company, title, url string) string {
	sum := md5.Sum([]byte(company + "_" + title + "_" + url))
	return hex.EncodeToString(sum[:])[:idLength]
}

// EnsureID fills the identifier when it has not been assigned yet. An
// existing identifier is never replaced.
func (p *Posting) EnsureID() string {
	if p.ID == "" {
		p.ID = PostingID(p.Company, p.Title, p.URL)
	}
	return p.ID
}

// Scored reports whether the posting carries any scoring result.
func (p *Posting) Scored() bool {
	return p.Breakdown != nil || p.Dealbreaker != "" || p.Score > 0
}
