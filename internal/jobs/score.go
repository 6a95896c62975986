package jobs

import (
	"encoding/json"
	"math"
)

// Schema tags which scoring rubric produced a breakdown.
type Schema string

const (
	// SchemaUnified is the current rubric: growth, role, founder relevance,
	// location fit, compensation and industry.
	SchemaUnified Schema = "unified"
	// SchemaLegacy is the original rubric: location, role, industry,
	// seniority, skills and impact.
	SchemaLegacy Schema = "legacy"
)

// ScoreBreakdown carries the sub-scores of both rubrics. RoleAlignment and
// IndustryFit are shared by name between them; their upper bound depends on
// the rubric in effect.
type ScoreBreakdown struct {
	// Schema is empty for records written before the tag existed.
	Schema Schema `json:"schema,omitempty"`

	GrowthPotential    float64 `json:"growth_potential"`    // unified 0-25
	RoleAlignment      float64 `json:"role_alignment"`      // unified 0-20, legacy 0-25
	FounderRelevance   float64 `json:"founder_relevance"`   // unified 0-20
	LocationFit        float64 `json:"location_fit"`        // unified 0-15
	CompensationSignal float64 `json:"compensation_signal"` // unified 0-10
	IndustryFit        float64 `json:"industry_fit"`        // unified 0-10, legacy 0-15

	Location        float64 `json:"location"`         // legacy 0-25
	Seniority       float64 `json:"seniority"`        // legacy 0-10
	SkillsMatch     float64 `json:"skills_match"`     // legacy 0-15
	ImpactPotential float64 `json:"impact_potential"` // legacy 0-10
}

// EffectiveSchema returns the rubric used for the total. An explicit tag wins;
// untagged records fall back to inference: any non-zero unified-only field
// selects the unified rubric, otherwise the legacy one.
func (b ScoreBreakdown) EffectiveSchema() Schema {
	switch b.Schema {
	case SchemaUnified, SchemaLegacy:
		return b.Schema
	}
	if b.GrowthPotential != 0 || b.FounderRelevance != 0 || b.LocationFit != 0 || b.CompensationSignal != 0 {
		return SchemaUnified
	}
	return SchemaLegacy
}

// Total sums the six fields of the effective rubric.
func (b ScoreBreakdown) Total() float64 {
	if b.EffectiveSchema() == SchemaUnified {
		return b.GrowthPotential + b.RoleAlignment + b.FounderRelevance +
			b.LocationFit + b.CompensationSignal + b.IndustryFit
	}
	return b.Location + b.RoleAlignment + b.IndustryFit +
		b.Seniority + b.SkillsMatch + b.ImpactPotential
}

// Clamp bounds every field into the range of the effective rubric.
func (b *ScoreBreakdown) Clamp() {
	unified := b.EffectiveSchema() == SchemaUnified

	b.GrowthPotential = bound(b.GrowthPotential, 25)
	b.FounderRelevance = bound(b.FounderRelevance, 20)
	b.LocationFit = bound(b.LocationFit, 15)
	b.CompensationSignal = bound(b.CompensationSignal, 10)
	b.Location = bound(b.Location, 25)
	b.Seniority = bound(b.Seniority, 10)
	b.SkillsMatch = bound(b.SkillsMatch, 15)
	b.ImpactPotential = bound(b.ImpactPotential, 10)

	if unified {
		b.RoleAlignment = bound(b.RoleAlignment, 20)
		b.IndustryFit = bound(b.IndustryFit, 10)
	} else {
		b.RoleAlignment = bound(b.RoleAlignment, 25)
		b.IndustryFit = bound(b.IndustryFit, 15)
	}
}

func bound(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, max)
}

type breakdownFields ScoreBreakdown

type breakdownJSON struct {
	breakdownFields
	Total float64 `json:"total"`
}

// MarshalJSON writes every sub-score of both rubrics plus the computed total.
func (b ScoreBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(breakdownJSON{breakdownFields: breakdownFields(b), Total: b.Total()})
}

// UnmarshalJSON reads the sub-scores; a serialized total is ignored and
// recomputed on demand.
func (b *ScoreBreakdown) UnmarshalJSON(data []byte) error {
	var raw breakdownJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = ScoreBreakdown(raw.breakdownFields)
	return nil
}
