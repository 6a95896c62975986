package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostingIDIsDeterministic(t *testing.T) {
	a := NewPosting("Quant Analyst", "Acme", "Paris", "https://example.com/jobs/1", SourceIndeed)
	b := NewPosting("Quant Analyst", "Acme", "London", "https://example.com/jobs/1", SourceLinkedIn)

	require.Len(t, a.ID, 12)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.ID, PostingID("Acme", "Quant Analyst", "https://example.com/jobs/1"))

	c := NewPosting("Quant Analyst", "Acme", "Paris", "https://example.com/jobs/2", SourceIndeed)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestPostingIDMatchesKnownHash(t *testing.T) {
	assert.Equal(t, "692a9163f878", PostingID("Acme", "Dev", "https://x"))
}

func TestEnsureIDKeepsExisting(t *testing.T) {
	p := &Posting{ID: "fixed", Company: "Acme", Title: "Dev", URL: "https://x"}
	assert.Equal(t, "fixed", p.EnsureID())
}

func TestScoreBreakdownTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     ScoreBreakdown
		schema Schema
		total  float64
	}{
		{
			name: "unified fields populated",
			in: ScoreBreakdown{
				GrowthPotential: 22, RoleAlignment: 18, FounderRelevance: 16,
				LocationFit: 12, CompensationSignal: 7, IndustryFit: 8,
			},
			schema: SchemaUnified,
			total:  83,
		},
		{
			name: "unified-only fields zero falls back to legacy",
			in: ScoreBreakdown{
				Location: 20, RoleAlignment: 0, IndustryFit: 0,
				Seniority: 8, SkillsMatch: 12, ImpactPotential: 7,
			},
			schema: SchemaLegacy,
			total:  47,
		},
		{
			name: "legacy fields ignored when unified inferred",
			in: ScoreBreakdown{
				GrowthPotential: 10, RoleAlignment: 5, Location: 25, Seniority: 10,
			},
			schema: SchemaUnified,
			total:  15,
		},
		{
			name: "explicit tag wins over inference",
			in: ScoreBreakdown{
				Schema: SchemaUnified, RoleAlignment: 20, IndustryFit: 10, Location: 25,
			},
			schema: SchemaUnified,
			total:  30,
		},
		{
			name:   "explicit legacy tag",
			in:     ScoreBreakdown{Schema: SchemaLegacy, GrowthPotential: 25, Location: 10},
			schema: SchemaLegacy,
			total:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.schema, tt.in.EffectiveSchema())
			assert.InDelta(t, tt.total, tt.in.Total(), 1e-9)
		})
	}
}

func TestScoreBreakdownJSONExposesAllFields(t *testing.T) {
	b := ScoreBreakdown{GrowthPotential: 22, RoleAlignment: 18, FounderRelevance: 16, LocationFit: 12, CompensationSignal: 7, IndustryFit: 8}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{
		"growth_potential", "role_alignment", "founder_relevance", "location_fit",
		"compensation_signal", "industry_fit", "location", "seniority",
		"skills_match", "impact_potential", "total",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, 83.0, fields["total"])
	assert.NotContains(t, fields, "schema")

	var back ScoreBreakdown
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)
}

func TestScoreBreakdownClamp(t *testing.T) {
	b := ScoreBreakdown{Schema: SchemaUnified, GrowthPotential: 40, RoleAlignment: 24, IndustryFit: -3, LocationFit: 15}
	b.Clamp()

	assert.Equal(t, 25.0, b.GrowthPotential)
	assert.Equal(t, 20.0, b.RoleAlignment)
	assert.Equal(t, 0.0, b.IndustryFit)
	assert.Equal(t, 15.0, b.LocationFit)

	legacy := ScoreBreakdown{Schema: SchemaLegacy, RoleAlignment: 24, IndustryFit: 14}
	legacy.Clamp()
	assert.Equal(t, 24.0, legacy.RoleAlignment)
	assert.Equal(t, 14.0, legacy.IndustryFit)
}

func TestPostingsDedupeByURL(t *testing.T) {
	first := NewPosting("A", "X", "Paris", "https://a", SourceIndeed)
	dup := NewPosting("A again", "X", "Paris", "https://a", SourceLinkedIn)
	second := NewPosting("B", "Y", "Paris", "https://b", SourceIndeed)

	list := NewPostings([]*Posting{first, dup, second})
	dropped := list.DedupeByURL()

	assert.Equal(t, 1, dropped)
	require.Equal(t, 2, list.Len())
	assert.Same(t, first, list.Items[0])
	assert.Same(t, second, list.Items[1])

	assert.Equal(t, 0, list.DedupeByURL())
}

func TestPostingsExcludeAndCount(t *testing.T) {
	list := NewPostings([]*Posting{
		NewPosting("A", "Acme", "Paris", "https://a", SourceIndeed),
		NewPosting("B", "Bad Corp", "London", "https://b", SourceLinkedIn),
		NewPosting("C", "Acme", "", "https://c", SourceLinkedIn),
	})

	removed := list.Exclude(func(p *Posting) bool { return p.Company == "Bad Corp" })
	require.Len(t, removed, 1)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, "A", list.Items[0].Title)

	assert.Equal(t, map[string]int{"Paris": 1, "Unknown": 1}, list.CountBy(func(p *Posting) string { return p.Location }))
	assert.NotNil(t, list.FindByID(list.Items[1].ID))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusNew, StatusReviewing))
	assert.True(t, CanTransition(StatusReviewing, StatusPass))
	assert.True(t, CanTransition(StatusInterview, StatusOffer))
	assert.False(t, CanTransition(StatusApplied, StatusPass))
	assert.False(t, CanTransition(StatusOffer, StatusNew))
	assert.True(t, IsTerminal(StatusRejected))
	assert.False(t, IsTerminal(StatusApply))

	st, err := ParseStatus(" interview ")
	require.NoError(t, err)
	assert.Equal(t, StatusInterview, st)

	_, err = ParseStatus("Ghosted")
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("wttj")
	require.NoError(t, err)
	assert.Equal(t, SourceWTTJ, src)

	src, err = ParseSource("Welcome to the Jungle")
	require.NoError(t, err)
	assert.Equal(t, SourceWTTJ, src)

	src, err = ParseSource("linkedin")
	require.NoError(t, err)
	assert.Equal(t, SourceLinkedIn, src)

	_, err = ParseSource("monster")
	assert.Error(t, err)
}

func TestMergeCriteria(t *testing.T) {
	merged := MergeCriteria([]SearchCriteria{
		{Name: "quant", Active: true, Keywords: []string{"quant analyst", "Quant Analyst"}, Locations: []string{"Paris"}, MinScore: 60},
		{Name: "off", Active: false, Keywords: []string{"ignored"}},
		{Name: "dev", Active: true, Keywords: []string{"python developer"}, Locations: []string{"paris", "London"}, MinScore: 70, ExcludedCompanies: []string{"Bad Corp"}},
	})

	assert.Equal(t, []string{"quant analyst", "python developer"}, merged.Keywords)
	assert.Equal(t, []string{"Paris", "London"}, merged.Locations)
	assert.Equal(t, []string{"Bad Corp"}, merged.ExcludedCompanies)
	assert.Equal(t, 70.0, merged.MinScore)
}
