package scoring

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/mitchellh/mapstructure"
)

// ErrMalformedResponse is returned when no JSON object can be recovered from
// the completion text.
var ErrMalformedResponse = errors.New("malformed scoring response")

var (
	fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	outerObject = regexp.MustCompile(`\{[\s\S]*\}`)
)

var unifiedOnly = []string{"growth_potential", "founder_relevance", "location_fit", "compensation_signal"}
var legacyOnly = []string{"location", "seniority", "skills_match", "impact_potential"}

type response struct {
	Dealbreaker       any            `mapstructure:"dealbreaker_triggered"`
	Scores            map[string]any `mapstructure:"scores"`
	TotalScore        *float64       `mapstructure:"total_score"`
	Verdict           string         `mapstructure:"verdict"`
	Summary           string         `mapstructure:"summary"`
	KeyRequirements   []string       `mapstructure:"key_requirements"`
	PotentialConcerns []string       `mapstructure:"potential_concerns"`
	QuestionsToAsk    []string       `mapstructure:"questions_to_ask"`
}

// extractObject recovers the JSON object from raw completion text: direct
// parse first, then a fenced code block, then the outermost brace pair.
func extractObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err == nil && data != nil {
		return data, nil
	}

	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &data); err == nil && data != nil {
			return data, nil
		}
	}

	if m := outerObject.FindString(raw); m != "" {
		if err := json.Unmarshal([]byte(m), &data); err == nil && data != nil {
			return data, nil
		}
	}

	return nil, errors.WithStack(ErrMalformedResponse)
}

func parseResponse(raw string) (*response, error) {
	data, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	var out response
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build response decoder")
	}
	if err := decoder.Decode(data); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode scoring response"), ErrMalformedResponse)
	}

	return &out, nil
}

// dealbreaker returns the triggered dealbreaker, or empty when none. Only a
// null or missing field means no dealbreaker.
func (r *response) dealbreaker() (string, bool) {
	switch v := r.Dealbreaker.(type) {
	case nil:
		return "", false
	case bool:
		return "dealbreaker triggered", true
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, true
		}
		return "dealbreaker triggered", true
	default:
		return coerceString(v), true
	}
}

// breakdown builds the score breakdown from the scores object. A dimension may
// be an object with a score field or a bare number.
func (r *response) breakdown() *jobs.ScoreBreakdown {
	b := &jobs.ScoreBreakdown{Schema: jobs.SchemaUnified}
	if hasAny(r.Scores, legacyOnly) && !hasAny(r.Scores, unifiedOnly) {
		b.Schema = jobs.SchemaLegacy
	}

	b.GrowthPotential = dimension(r.Scores["growth_potential"])
	b.RoleAlignment = dimension(r.Scores["role_alignment"])
	b.FounderRelevance = dimension(r.Scores["founder_relevance"])
	b.LocationFit = dimension(r.Scores["location_fit"])
	b.CompensationSignal = dimension(r.Scores["compensation_signal"])
	b.IndustryFit = dimension(r.Scores["industry_fit"])
	b.Location = dimension(r.Scores["location"])
	b.Seniority = dimension(r.Scores["seniority"])
	b.SkillsMatch = dimension(r.Scores["skills_match"])
	b.ImpactPotential = dimension(r.Scores["impact_potential"])

	b.Clamp()
	return b
}

func hasAny(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func dimension(v any) float64 {
	if m, ok := v.(map[string]any); ok {
		v = m["score"]
	}
	f := coerceFloat(v)
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(bytes)
	}
}
