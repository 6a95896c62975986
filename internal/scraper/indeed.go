package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"go.uber.org/zap"
)

const indeedDefaultDomain = "https://www.indeed.com"

var indeedDomains = locationTable{
	{"Paris", "https://fr.indeed.com"},
	{"Lyon", "https://fr.indeed.com"},
	{"France", "https://fr.indeed.com"},
	{"London", "https://uk.indeed.com"},
	{"UK", "https://uk.indeed.com"},
	{"Remote", "https://www.indeed.com"},
	{"New York", "https://www.indeed.com"},
	{"San Francisco", "https://www.indeed.com"},
	{"Boston", "https://www.indeed.com"},
	{"Los Angeles", "https://www.indeed.com"},
	{"San Diego", "https://www.indeed.com"},
	{"Toronto", "https://ca.indeed.com"},
	{"Montreal", "https://ca.indeed.com"},
	{"Switzerland", "https://ch.indeed.com"},
	{"Zurich", "https://ch.indeed.com"},
	{"Geneva", "https://ch.indeed.com"},
	{"Luxembourg", "https://lu.indeed.com"},
	{"Tokyo", "https://jp.indeed.com"},
}

// Indeed scrapes the country site matching each location.
type Indeed struct {
	board
	domains locationTable
	// fallback is the domain for locations missing from the table.
	fallback string
}

func NewIndeed(maxJobs int, log *zap.Logger) *Indeed {
	return &Indeed{
		board:    newBoard(jobs.SourceIndeed, maxJobs, log),
		domains:  indeedDomains,
		fallback: indeedDefaultDomain,
	}
}

func (i *Indeed) domain(location string) string {
	if d, ok := i.domains.lookup(location); ok {
		return d
	}
	return i.fallback
}

func (i *Indeed) Search(ctx context.Context, sess Session, keywords, locations []string) ([]*jobs.Posting, error) {
	return i.search(ctx, sess, keywords, locations, i.searchURL, i.parseListing)
}

func (i *Indeed) searchURL(keyword, location string) string {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("l", location)
	params.Set("sort", "date")
	params.Set("fromage", "7")
	params.Set("start", "0")
	return i.domain(location) + "/jobs?" + params.Encode()
}

func (i *Indeed) parseListing(doc *goquery.Document, location string) []*jobs.Posting {
	var postings []*jobs.Posting
	all(doc, "div.job_seen_beacon", "div.jobsearch-ResultsList > div").Each(func(_ int, card *goquery.Selection) {
		if p := i.parseCard(card, location); p != nil {
			postings = append(postings, p)
		}
	})
	return postings
}

func (i *Indeed) parseCard(card *goquery.Selection, location string) *jobs.Posting {
	link := first(card, "h2.jobTitle a", "a[data-jk]")
	if link.Length() == 0 {
		return nil
	}
	title := text(link)
	if title == "" {
		return nil
	}

	href, _ := link.Attr("href")
	jobKey, _ := link.Attr("data-jk")
	if jobKey == "" {
		if _, after, ok := strings.Cut(href, "jk="); ok {
			jobKey, _, _ = strings.Cut(after, "&")
		}
	}

	var postingURL string
	switch {
	case jobKey != "":
		postingURL = i.domain(location) + "/viewjob?jk=" + jobKey
	case href != "":
		postingURL = absoluteURL(i.fallback, href)
	default:
		return nil
	}

	company := textOf(card, "span[data-testid='company-name']", "span.companyName")
	if company == "" {
		company = unknownCompany
	}

	jobLocation := textOf(card, "div[data-testid='text-location']", "div.companyLocation")
	if jobLocation == "" {
		jobLocation = location
	}

	p := jobs.NewPosting(title, company, jobLocation, postingURL, jobs.SourceIndeed)
	p.Salary = textOf(card, "div.salary-snippet-container", "div.metadata.salary-snippet-container")
	if date := first(card, "span.date", "span[data-testid='myJobsStateDate']"); date.Length() > 0 {
		p.PostedAt = parseRelativeDate(date.Text())
	}
	p.Description = textOf(card, "div.job-snippet", "div[class*='job-snippet']")
	return p
}

// GetJobDetails replaces the listing snippet with the full description and
// prepends the job type when the page shows one.
func (i *Indeed) GetJobDetails(ctx context.Context, sess Session, p *jobs.Posting) (*jobs.Posting, error) {
	doc, err := i.detail(ctx, sess, p)
	if err != nil {
		return p, err
	}

	if description := textOf(doc, "div#jobDescriptionText", "div.jobsearch-jobDescriptionText"); description != "" {
		p.Description = description
	}

	if p.Salary == "" {
		p.Salary = textOf(doc, "div#salaryInfoAndJobType", "span.icl-u-xs-mr--xs")
	}

	if jobType := textOf(doc, "div[data-testid='jobsearch-JobInfoHeader-jobType']"); jobType != "" && !strings.Contains(p.Description, jobType) {
		p.Description = "Job Type: " + jobType + "\n\n" + p.Description
	}
	return p, nil
}
