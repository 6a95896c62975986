package scoring

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ledongthuc/pdf"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const defaultSummary = `Solution Architect at a global asset manager with 3+ years experience.
Key skills: Python, SQL, Power BI, Azure, Databricks, MSCI BarraOne
Domain expertise: Fixed Income, Performance Attribution, Financial Modeling
Achievements:
- Led a risk platform implementation for global Fixed Income teams
- Engineered custom performance attribution models
- Automated reconciliation processes across reporting teams
Education: BSc Natural Sciences (Physics & Mathematics)
Languages: English (Native), French (Proficient)`

const (
	maxExperience = 3
	maxBullets    = 2
	maxBulletLen  = 100
	maxSkills     = 15
)

// Profile is the candidate context rendered into scoring and generation
// prompts.
type Profile struct {
	Summary      string
	Goals        string
	Dealbreakers []string

	// Document is the full master CV text (JSON or extracted PDF text).
	Document string
}

type masterCV struct {
	Personal struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"personal"`
	Profiles   map[string]string `mapstructure:"profiles"`
	Experience []struct {
		Title     string `mapstructure:"title"`
		Company   string `mapstructure:"company"`
		StartDate string `mapstructure:"start_date"`
		EndDate   string `mapstructure:"end_date"`
		Bullets   []any  `mapstructure:"bullets"`
	} `mapstructure:"experience"`
	Skills    any `mapstructure:"skills"`
	Education []struct {
		Degree      string `mapstructure:"degree"`
		Institution string `mapstructure:"institution"`
	} `mapstructure:"education"`
}

// LoadProfile reads the master CV from a JSON or PDF file. A missing file
// falls back to the built-in summary.
func LoadProfile(path, goals string, dealbreakers []string, log *zap.Logger) (*Profile, error) {
	profile := &Profile{Goals: goals, Dealbreakers: dealbreakers}

	path = strings.TrimSpace(path)
	if path == "" {
		profile.Summary = defaultSummary
		return profile, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if log != nil {
			log.Warn("master CV not found, using default summary", zap.String("path", path))
		}
		profile.Summary = defaultSummary
		return profile, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := extractPDFText(path)
		if err != nil {
			return nil, err
		}
		profile.Summary = text
		profile.Document = text
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read master CV %s", path)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.WithHintf(errors.Wrapf(err, "parse master CV %s", path), "the master CV must be a JSON object or a PDF file")
	}

	summary, err := summarize(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(summary) == "" {
		summary = defaultSummary
	}

	profile.Summary = summary
	profile.Document = string(raw)
	return profile, nil
}

func summarize(data map[string]any) (string, error) {
	var cv masterCV
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &cv})
	if err != nil {
		return "", errors.Wrap(err, "build master CV decoder")
	}
	if err := decoder.Decode(data); err != nil {
		return "", errors.Wrap(err, "decode master CV")
	}

	var parts []string
	if _, ok := data["personal"]; ok {
		parts = append(parts, "Name: "+orNA(cv.Personal.Name))
	}
	if profile := cv.Profiles["default"]; profile != "" {
		parts = append(parts, "\nProfile: "+profile)
	}

	if len(cv.Experience) > 0 {
		parts = append(parts, "\nExperience:")
		for i, exp := range cv.Experience {
			if i == maxExperience {
				break
			}
			end := exp.EndDate
			if end == "" {
				end = "Present"
			}
			parts = append(parts, fmt.Sprintf("- %s at %s (%s - %s)", orNA(exp.Title), orNA(exp.Company), orNA(exp.StartDate), end))
			for j, bullet := range exp.Bullets {
				if j == maxBullets {
					break
				}
				parts = append(parts, "  • "+truncateBullet(bulletText(bullet))+"...")
			}
		}
	}

	if skills := flattenSkills(cv.Skills); len(skills) > 0 {
		if len(skills) > maxSkills {
			skills = skills[:maxSkills]
		}
		parts = append(parts, "\nSkills: "+strings.Join(skills, ", "))
	}

	if len(cv.Education) > 0 {
		parts = append(parts, "\nEducation:")
		for _, edu := range cv.Education {
			parts = append(parts, fmt.Sprintf("- %s from %s", orNA(edu.Degree), orNA(edu.Institution)))
		}
	}

	return strings.Join(parts, "\n"), nil
}

func bulletText(bullet any) string {
	switch b := bullet.(type) {
	case string:
		return b
	case map[string]any:
		if text, ok := b["text"].(string); ok {
			return text
		}
	}
	return coerceString(bullet)
}

func truncateBullet(s string) string {
	runes := []rune(s)
	if len(runes) > maxBulletLen {
		return string(runes[:maxBulletLen])
	}
	return s
}

// flattenSkills accepts either a list of skills or a map of category to list.
func flattenSkills(v any) []string {
	var out []string
	switch skills := v.(type) {
	case []any:
		for _, s := range skills {
			out = append(out, coerceString(s))
		}
	case map[string]any:
		for _, category := range slices.Sorted(maps.Keys(skills)) {
			if list, ok := skills[category].([]any); ok {
				for _, s := range list {
					out = append(out, coerceString(s))
				}
			}
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open CV PDF %s", path)
	}
	defer f.Close()

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n\n")
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.Newf("no text content found in CV PDF %s", path)
	}
	return text, nil
}
