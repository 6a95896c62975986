package notion

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jevancousins/jobhunter/internal/utils"
)

// MaxTextLength is the Notion limit for one rich text element.
const MaxTextLength = 2000

// Properties maps property names to values, both when writing and reading a
// page.
type Properties map[string]Property

// Property holds exactly one populated value field. The type field is only
// set on pages returned by the API.
type Property struct {
	Type        string     `json:"type,omitempty"`
	Title       []RichText `json:"title,omitempty"`
	RichText    []RichText `json:"rich_text,omitempty"`
	Select      *Option    `json:"select,omitempty"`
	MultiSelect []Option   `json:"multi_select,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Number      *float64   `json:"number,omitempty"`
	Checkbox    *bool      `json:"checkbox,omitempty"`
	Date        *Date      `json:"date,omitempty"`
	Relation    []PageRef  `json:"relation,omitempty"`
}

type RichText struct {
	Text      Text   `json:"text"`
	PlainText string `json:"plain_text,omitempty"`
}

type Text struct {
	Content string `json:"content"`
}

type Option struct {
	Name string `json:"name"`
}

type Date struct {
	Start string `json:"start"`
}

type PageRef struct {
	ID string `json:"id"`
}

// Page is a database row.
type Page struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

func truncate(s string) string {
	return utils.Truncate(s, MaxTextLength)
}

func TitleValue(s string) Property {
	return Property{Title: []RichText{{Text: Text{Content: truncate(s)}}}}
}

// TextValue builds a rich text value cut to MaxTextLength runes.
func TextValue(s string) Property {
	return Property{RichText: []RichText{{Text: Text{Content: truncate(s)}}}}
}

// SelectValue builds a select value. Notion rejects option names containing
// commas, so they are replaced.
func SelectValue(name string) Property {
	name = strings.TrimSpace(strings.ReplaceAll(name, ",", " -"))
	return Property{Select: &Option{Name: truncate(name)}}
}

func URLValue(u string) Property {
	return Property{URL: &u}
}

func NumberValue(n float64) Property {
	return Property{Number: &n}
}

func CheckboxValue(b bool) Property {
	return Property{Checkbox: &b}
}

func DateValue(t time.Time) Property {
	return Property{Date: &Date{Start: t.Format(time.RFC3339)}}
}

func RelationValue(pageIDs ...string) Property {
	refs := make([]PageRef, 0, len(pageIDs))
	for _, id := range pageIDs {
		refs = append(refs, PageRef{ID: id})
	}
	return Property{Relation: refs}
}

// JSONValue stores v as rich text holding its JSON encoding.
func JSONValue(v any) (Property, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Property{}, err
	}
	return TextValue(string(data)), nil
}

// Text returns the concatenated content of a title or rich text property.
func (p Property) Text() string {
	parts := p.Title
	if len(parts) == 0 {
		parts = p.RichText
	}
	var b strings.Builder
	for _, part := range parts {
		if part.PlainText != "" {
			b.WriteString(part.PlainText)
			continue
		}
		b.WriteString(part.Text.Content)
	}
	return b.String()
}

func (p Property) SelectName() string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

func (p Property) Names() []string {
	names := make([]string, 0, len(p.MultiSelect))
	for _, o := range p.MultiSelect {
		names = append(names, o.Name)
	}
	return names
}

func (p Property) URLString() string {
	if p.URL == nil {
		return ""
	}
	return *p.URL
}

func (p Property) NumberOr(def float64) float64 {
	if p.Number == nil {
		return def
	}
	return *p.Number
}

func (p Property) CheckboxOr(def bool) bool {
	if p.Checkbox == nil {
		return def
	}
	return *p.Checkbox
}

// Time parses the start of a date property. Date-only values are accepted.
func (p Property) Time() *time.Time {
	if p.Date == nil || p.Date.Start == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, p.Date.Start); err == nil {
			return &t
		}
	}
	return nil
}
