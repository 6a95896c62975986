// Package jobs holds the domain model shared by the discovery, scoring and
// workspace packages.
//
// Workflow status graph (driven by a human in the workspace):
//
//	New ──► Reviewing ──► Apply ──► Applied ──► Interview ──► Offer
//	 │          │           │          │            │
//	 └──────────┴───────────┴──► Pass  └────────────┴──► Rejected
package jobs

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Status values mirror the select options of the workspace Status property.
type Status string

const (
	StatusNew       Status = "New"
	StatusReviewing Status = "Reviewing"
	StatusApply     Status = "Apply"
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
	StatusPass      Status = "Pass"
)

var statuses = []Status{
	StatusNew, StatusReviewing, StatusApply, StatusApplied,
	StatusInterview, StatusOffer, StatusRejected, StatusPass,
}

// validTransitions lists every allowed (from -> to) pair.
var validTransitions = map[Status][]Status{
	StatusNew:       {StatusReviewing, StatusPass},
	StatusReviewing: {StatusApply, StatusPass},
	StatusApply:     {StatusApplied, StatusPass},
	StatusApplied:   {StatusInterview, StatusRejected},
	StatusInterview: {StatusOffer, StatusRejected},
	// Offer, Rejected and Pass are terminal.
}

// ParseStatus converts a workspace option name to a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", errors.Newf("unknown posting status %q", s)
}

// CanTransition reports whether moving from -> to is permitted by the workflow.
// The pipeline never advances status itself; this is used to validate records
// read back from the workspace.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses with no outgoing transitions.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}

// Source is the job board a posting was discovered on.
type Source string

const (
	SourceLinkedIn    Source = "LinkedIn"
	SourceIndeed      Source = "Indeed"
	SourceWTTJ        Source = "Welcome to the Jungle"
	SourceCompanyPage Source = "Company Page"
	SourceGlassdoor   Source = "Glassdoor"
)

var sources = []Source{SourceLinkedIn, SourceIndeed, SourceWTTJ, SourceCompanyPage, SourceGlassdoor}

// ParseSource resolves a display name or a short config key (linkedin, indeed,
// wttj) to a Source.
func ParseSource(s string) (Source, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "wttj", "wtfj":
		return SourceWTTJ, nil
	case "company", "company-page":
		return SourceCompanyPage, nil
	}
	for _, src := range sources {
		if strings.ToLower(string(src)) == name {
			return src, nil
		}
	}
	return "", errors.Newf("unknown job source %q", s)
}
