package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

const unknownCompany = "Unknown"

var (
	whitespace   = regexp.MustCompile(`\s+`)
	relativeDate = regexp.MustCompile(`(\d+)\s*(minute|heure|hour|jour|day|semaine|week|mois|month)`)
)

// now is replaced in tests.
var now = time.Now

func parseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return doc, nil
}

// cleanText collapses every whitespace run into a single space.
func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// text returns the cleaned text of s with a break between child nodes, so
// adjacent block elements do not run together.
func text(s *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			if goquery.NodeName(child) == "#text" {
				parts = append(parts, child.Text())
				return
			}
			walk(child)
		})
	}
	walk(s)
	return cleanText(strings.Join(parts, " "))
}

// first returns the first match of the first selector that matches anything.
func first(s interface {
	Find(string) *goquery.Selection
}, selectors ...string) *goquery.Selection {
	var sel *goquery.Selection
	for _, selector := range selectors {
		sel = s.Find(selector)
		if sel.Length() > 0 {
			return sel.First()
		}
	}
	return sel
}

// all returns the matches of the first selector that matches anything.
func all(doc *goquery.Document, selectors ...string) *goquery.Selection {
	var sel *goquery.Selection
	for _, selector := range selectors {
		sel = doc.Find(selector)
		if sel.Length() > 0 {
			return sel
		}
	}
	return sel
}

func textOf(s interface {
	Find(string) *goquery.Selection
}, selectors ...string) string {
	sel := first(s, selectors...)
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return text(sel)
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return base + href
}

// locationTable maps logical locations to source parameters. Entries are
// matched in order by case-insensitive substring.
type locationTable []locationEntry

type locationEntry struct {
	key   string
	value string
}

func (t locationTable) lookup(location string) (string, bool) {
	lower := strings.ToLower(location)
	for _, e := range t {
		if strings.Contains(lower, strings.ToLower(e.key)) {
			return e.value, true
		}
	}
	return "", false
}

// parsePostedDate reads an ISO datetime attribute or falls back to a
// relative phrase such as "3 days ago" or "il y a 2 jours".
func parsePostedDate(sel *goquery.Selection) *time.Time {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	if attr, ok := sel.Attr("datetime"); ok && strings.TrimSpace(attr) != "" {
		if t := parseISODate(attr); t != nil {
			return t
		}
	}
	return parseRelativeDate(sel.Text())
}

func parseISODate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseRelativeDate(s string) *time.Time {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}

	current := now()
	ago := func(d time.Duration) *time.Time {
		t := current.Add(-d)
		return &t
	}

	switch {
	case strings.Contains(s, "just"), strings.Contains(s, "today"), strings.Contains(s, "aujourd'hui"):
		return ago(0)
	case strings.Contains(s, "yesterday"), strings.Contains(s, "hier"):
		return ago(24 * time.Hour)
	}

	if m := relativeDate.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		day := 24 * time.Hour
		switch m[2] {
		case "minute":
			return ago(time.Duration(n) * time.Minute)
		case "hour", "heure":
			return ago(time.Duration(n) * time.Hour)
		case "day", "jour":
			return ago(time.Duration(n) * day)
		case "week", "semaine":
			return ago(time.Duration(n) * 7 * day)
		case "month", "mois":
			return ago(time.Duration(n) * 30 * day)
		}
	}

	if strings.Contains(s, "30+") || strings.Contains(s, "month") {
		return ago(30 * 24 * time.Hour)
	}
	return nil
}
