package jobs

import (
	"encoding/json"
	"fmt"
	"os"
)

const unknownKey = "Unknown"

// Postings is an ordered collection of postings.
type Postings struct {
	Items []*Posting
}

func NewPostings(items []*Posting) *Postings {
	return &Postings{Items: items}
}

func (p *Postings) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// DedupeByURL keeps the first posting seen for every URL, preserving order,
// and returns the number of dropped duplicates.
func (p *Postings) DedupeByURL() int {
	seen := make(map[string]struct{}, len(p.Items))
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if _, ok := seen[posting.URL]; ok {
			continue
		}
		seen[posting.URL] = struct{}{}
		kept = append(kept, posting)
	}

	dropped := len(p.Items) - len(kept)
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return dropped
}

// Exclude removes every posting matched by the predicate, preserving the
// order of the rest, and returns the ids of removed postings.
func (p *Postings) Exclude(match func(*Posting) bool) []string {
	var excluded []string
	kept := make([]*Posting, 0, len(p.Items))
	for _, posting := range p.Items {
		if match(posting) {
			excluded = append(excluded, posting.EnsureID())
			continue
		}
		kept = append(kept, posting)
	}
	p.Items = kept
	return excluded
}

func (p *Postings) FindByID(id string) *Posting {
	for _, posting := range p.Items {
		if posting.EnsureID() == id {
			return posting
		}
	}
	return nil
}

func (p *Postings) URLs() []string {
	urls := make([]string, 0, len(p.Items))
	for _, posting := range p.Items {
		urls = append(urls, posting.URL)
	}
	return urls
}

// CountBy groups postings by the returned key. Empty keys are counted as
// Unknown.
func (p *Postings) CountBy(key func(*Posting) string) map[string]int {
	counts := make(map[string]int)
	for _, posting := range p.Items {
		k := key(posting)
		if k == "" {
			k = unknownKey
		}
		counts[k]++
	}
	return counts
}

func (p *Postings) BySource() map[string]int {
	return p.CountBy(func(posting *Posting) string { return string(posting.Source) })
}

func (p *Postings) ByLocation() map[string]int {
	return p.CountBy(func(posting *Posting) string { return posting.Location })
}

// ReportByCompany groups a short description of every posting by company.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := fmt.Sprintf("%s (%s)", posting.Company, posting.Source)
		report[key] = append(report[key], map[string]string{
			"title":    posting.Title,
			"url":      posting.URL,
			"location": posting.Location,
			"salary":   posting.Salary,
			"score":    fmt.Sprintf("%.0f", posting.Score),
			"summary":  posting.Analysis,
		})
	}
	return report
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}
