package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const wttjBaseURL = "https://www.welcometothejungle.com"

var wttjLanguagePaths = map[string]string{
	"fr": "/fr",
	"en": "/en",
}

var wttjCities = locationTable{
	{"paris", "Paris"},
	{"lyon", "Lyon"},
	{"london", "London"},
	{"bordeaux", "Bordeaux"},
	{"marseille", "Marseille"},
	{"lille", "Lille"},
	{"nantes", "Nantes"},
	{"toulouse", "Toulouse"},
}

var frenchLocations = []string{
	"paris", "lyon", "marseille", "bordeaux", "lille",
	"nantes", "toulouse", "nice", "strasbourg", "montpellier",
	"france", "remote",
}

// wttjFallbackLocations are searched when none of the requested locations is
// French.
var wttjFallbackLocations = []string{"Paris", "Remote"}

// WTTJ scrapes Welcome to the Jungle, which only covers France.
type WTTJ struct {
	board
	baseURL  string
	langPath string
}

func NewWTTJ(lang string, maxJobs int, log *zap.Logger) *WTTJ {
	path, ok := wttjLanguagePaths[lang]
	if !ok {
		path = wttjLanguagePaths["en"]
	}
	return &WTTJ{board: newBoard(jobs.SourceWTTJ, maxJobs, log), baseURL: wttjBaseURL, langPath: path}
}

// Supports reports whether the location is French or remote.
func (w *WTTJ) Supports(location string) bool {
	lower := strings.ToLower(location)
	for _, city := range frenchLocations {
		if strings.Contains(lower, city) {
			return true
		}
	}
	return false
}

func (w *WTTJ) Search(ctx context.Context, sess Session, keywords, locations []string) ([]*jobs.Posting, error) {
	var french []string
	for _, location := range locations {
		if w.Supports(location) {
			french = append(french, location)
		}
	}
	if len(french) == 0 {
		french = wttjFallbackLocations
	}
	return w.search(ctx, sess, keywords, french, w.searchURL, w.parseListing)
}

func (w *WTTJ) searchURL(keyword, location string) string {
	params := url.Values{}
	params.Set("query", keyword)
	params.Set("page", "1")
	if city, ok := cityParam(location); ok {
		params.Set("refinementList[offices.city][]", city)
	}
	if strings.EqualFold(location, "remote") {
		params.Set("refinementList[remote][]", "fulltime")
	}

	query := strings.NewReplacer("%5B", "[", "%5D", "]").Replace(params.Encode())
	return w.baseURL + w.langPath + "/jobs?" + query
}

// cityParam maps a location to the city refinement. France-wide searches
// carry no city filter.
func cityParam(location string) (string, bool) {
	if city, ok := wttjCities.lookup(location); ok {
		return city, true
	}
	if strings.Contains(strings.ToLower(location), "france") {
		return "", false
	}
	return cases.Title(language.Und).String(strings.ToLower(location)), true
}

func (w *WTTJ) parseListing(doc *goquery.Document, location string) []*jobs.Posting {
	var postings []*jobs.Posting
	all(doc,
		"article[data-testid='search-results-list-item-wrapper']",
		"div[data-testid='job-card']",
		"li.ais-Hits-item",
	).Each(func(_ int, card *goquery.Selection) {
		if p := w.parseCard(card, location); p != nil {
			postings = append(postings, p)
		}
	})
	return postings
}

func (w *WTTJ) parseCard(card *goquery.Selection, location string) *jobs.Posting {
	link := first(card, "a[href*='/jobs/']")
	href, _ := link.Attr("href")
	if href == "" {
		return nil
	}

	title := textOf(card, "h4", "span[role='heading']")
	if title == "" {
		title = text(link)
	}
	if title == "" {
		return nil
	}

	company := textOf(card, "span[data-testid='job-card-company-name']", "a[href*='/companies/'] span")
	if company == "" {
		company = unknownCompany
	}

	jobLocation := location
	if loc := first(card, "span[data-testid='job-card-location']"); loc.Length() > 0 {
		if t := text(loc.Parent()); t != "" {
			jobLocation = t
		}
	}

	p := jobs.NewPosting(title, company, jobLocation, absoluteURL(w.baseURL, href), jobs.SourceWTTJ)
	p.PostedAt = parsePostedDate(first(card, "time", "span[data-testid='job-card-published-date']"))
	if contract := textOf(card, "span[data-testid='job-card-contract-type']"); contract != "" {
		p.Description = "Contract: " + contract
	}
	return p
}

// GetJobDetails appends the description, required profile and benefits
// sections to the listing summary.
func (w *WTTJ) GetJobDetails(ctx context.Context, sess Session, p *jobs.Posting) (*jobs.Posting, error) {
	doc, err := w.detail(ctx, sess, p)
	if err != nil {
		return p, err
	}

	var parts []string
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if description := textOf(doc,
		"div[data-testid='job-section-description']",
		"div.sc-job-description",
		"section.job-description",
		"div[class*='JobDescription']",
	); description != "" {
		parts = append(parts, description)
	}
	if profile := textOf(doc, "div[data-testid='job-section-profile']"); profile != "" {
		parts = append(parts, "\n\nRequired Profile:\n"+profile)
	}
	if benefits := textOf(doc, "div[data-testid='job-section-benefits']"); benefits != "" {
		parts = append(parts, "\n\nBenefits:\n"+benefits)
	}
	p.Description = strings.Join(parts, "\n")

	if p.Salary == "" {
		p.Salary = textOf(doc, "span[data-testid='job-salary']", "div[class*='salary']")
	}
	if company := textOf(doc, "a[data-testid='job-company-link']"); company != "" && p.Company == unknownCompany {
		p.Company = company
	}
	return p, nil
}
