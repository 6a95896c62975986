package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"go.uber.org/zap"
)

const linkedInBaseURL = "https://www.linkedin.com"

var linkedInGeoIDs = locationTable{
	{"Paris", "105015875"},
	{"France", "105015875"},
	{"Lyon", "105015875"},
	{"London", "102257491"},
	{"UK", "101165590"},
	{"United Kingdom", "101165590"},
	{"Remote", ""},
	{"New York", "102571732"},
	{"San Francisco", "102277331"},
	{"Boston", "102380872"},
	{"Los Angeles", "102448103"},
	{"San Diego", "103806194"},
	{"Toronto", "100025096"},
	{"Montreal", "103366113"},
	{"Switzerland", "106693272"},
	{"Zurich", "106693272"},
	{"Geneva", "106693272"},
	{"Luxembourg", "104042105"},
	{"Tokyo", "102257019"},
}

// LinkedIn scrapes the public guest job search.
type LinkedIn struct {
	board
	baseURL string
}

func NewLinkedIn(maxJobs int, log *zap.Logger) *LinkedIn {
	return &LinkedIn{board: newBoard(jobs.SourceLinkedIn, maxJobs, log), baseURL: linkedInBaseURL}
}

func (l *LinkedIn) Search(ctx context.Context, sess Session, keywords, locations []string) ([]*jobs.Posting, error) {
	return l.search(ctx, sess, keywords, locations, l.searchURL, l.parseListing)
}

func (l *LinkedIn) searchURL(keyword, location string) string {
	params := url.Values{}
	params.Set("keywords", keyword)
	params.Set("location", location)
	params.Set("sortBy", "DD")
	params.Set("f_TPR", "r604800")
	params.Set("start", "0")

	if geoID, ok := linkedInGeoIDs.lookup(location); ok && geoID != "" {
		params.Set("geoId", geoID)
	}
	if strings.EqualFold(location, "remote") {
		params.Set("f_WT", "2")
	}
	return l.baseURL + "/jobs/search?" + params.Encode()
}

func (l *LinkedIn) parseListing(doc *goquery.Document, location string) []*jobs.Posting {
	var postings []*jobs.Posting
	all(doc, "div.base-card", "li.jobs-search-results__list-item").Each(func(_ int, card *goquery.Selection) {
		if p := l.parseCard(card, location); p != nil {
			postings = append(postings, p)
		}
	})
	return postings
}

func (l *LinkedIn) parseCard(card *goquery.Selection, location string) *jobs.Posting {
	title := textOf(card, "h3.base-search-card__title", "a.job-card-list__title")
	if title == "" {
		return nil
	}

	href, _ := first(card, "a.base-card__full-link", "a.job-card-container__link").Attr("href")
	if href == "" {
		return nil
	}
	href, _, _ = strings.Cut(href, "?")

	company := textOf(card, "h4.base-search-card__subtitle", "a.job-card-container__company-name")
	if company == "" {
		company = unknownCompany
	}

	jobLocation := textOf(card, "span.job-search-card__location", "li.job-card-container__metadata-item")
	if jobLocation == "" {
		jobLocation = location
	}

	p := jobs.NewPosting(title, company, jobLocation, absoluteURL(l.baseURL, href), jobs.SourceLinkedIn)
	p.PostedAt = parsePostedDate(first(card, "time.job-search-card__listdate", "time"))
	p.Salary = textOf(card, "span.job-search-card__salary-info")
	return p
}

// GetJobDetails fills the description with the job criteria prepended.
func (l *LinkedIn) GetJobDetails(ctx context.Context, sess Session, p *jobs.Posting) (*jobs.Posting, error) {
	doc, err := l.detail(ctx, sess, p)
	if err != nil {
		return p, err
	}

	if description := textOf(doc, "div.show-more-less-html__markup", "div.description__text", "section.description", "div.job-description"); description != "" {
		p.Description = description
	}

	var criteria []string
	doc.Find("li.description__job-criteria-item").Each(func(_ int, item *goquery.Selection) {
		header := textOf(item, "h3")
		value := textOf(item, "span")
		if header != "" && value != "" {
			criteria = append(criteria, header+": "+value)
		}
	})
	if len(criteria) > 0 {
		p.Description = strings.Join(criteria, "\n") + "\n\n" + p.Description
	}

	if p.Salary == "" {
		p.Salary = textOf(doc, "div.salary-main-rail__content")
	}
	return p, nil
}
