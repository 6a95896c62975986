package jobs

import (
	"strings"
	"time"
)

const DefaultMinScore = 60

// SearchCriteria is one saved search maintained in the workspace.
type SearchCriteria struct {
	PageID            string
	Name              string
	Keywords          []string
	Locations         []string
	Active            bool
	MinScore          float64
	ExcludedCompanies []string
}

// Company is a watchlist entry.
type Company struct {
	PageID      string
	Name        string
	CareersURL  string
	Priority    string
	Locations   []string
	CheckDaily  bool
	LastChecked *time.Time
	Notes       string
}

// MergeCriteria unions keywords, locations and excluded companies of the
// active criteria, preserving first-seen order. The strictest (highest)
// minimum score wins.
func MergeCriteria(list []SearchCriteria) SearchCriteria {
	merged := SearchCriteria{Name: "merged", Active: true}
	seenKeywords := map[string]bool{}
	seenLocations := map[string]bool{}
	seenCompanies := map[string]bool{}

	for _, c := range list {
		if !c.Active {
			continue
		}
		merged.Keywords = appendUnique(merged.Keywords, seenKeywords, c.Keywords)
		merged.Locations = appendUnique(merged.Locations, seenLocations, c.Locations)
		merged.ExcludedCompanies = appendUnique(merged.ExcludedCompanies, seenCompanies, c.ExcludedCompanies)
		if c.MinScore > merged.MinScore {
			merged.MinScore = c.MinScore
		}
	}

	return merged
}

func appendUnique(dst []string, seen map[string]bool, src []string) []string {
	for _, s := range src {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, s)
	}
	return dst
}

// InterviewPrep is the material prepared once a posting reaches Interview.
type InterviewPrep struct {
	CompanyResearch string
	LikelyQuestions string
	TalkingPoints   string
}
