package notion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"go.uber.org/zap"
)

// Property names of the jobs database.
const (
	PropTitle          = "Title"
	PropCompany        = "Company"
	PropLocation       = "Location"
	PropScore          = "Score"
	PropStatus         = "Status"
	PropSource         = "Source"
	PropURL            = "URL"
	PropDiscoveredDate = "Discovered Date"
	PropPostedDate     = "Posted Date"
	PropSalary         = "Salary"
	PropScoreBreakdown = "Score Breakdown"
	PropAIAnalysis     = "AI Analysis"
	PropTailoredCV     = "Tailored CV"
	PropCoverLetter    = "Cover Letter"
	PropNotes          = "Notes"
)

// Databases holds the ids of the workspace databases. Only Jobs is required.
type Databases struct {
	Jobs          string `mapstructure:"jobs-db"`
	Criteria      string `mapstructure:"criteria-db"`
	Companies     string `mapstructure:"companies-db"`
	InterviewPrep string `mapstructure:"interview-prep-db"`
}

// Workspace reads and writes the job hunting databases.
type Workspace struct {
	client *Client
	dbs    Databases
	logger *zap.Logger
}

func NewWorkspace(client *Client, dbs Databases) *Workspace {
	return &Workspace{client: client, dbs: dbs, logger: client.logger}
}

// CreateJob persists the posting and records the new page id on it.
func (w *Workspace) CreateJob(ctx context.Context, p *jobs.Posting) (string, error) {
	props, err := JobProperties(p)
	if err != nil {
		return "", err
	}
	pageID, err := w.client.CreatePageOnce(ctx, w.dbs.Jobs, props, func(ctx context.Context) (string, error) {
		return w.jobPageByURL(ctx, p.URL)
	})
	if err != nil {
		return "", err
	}
	p.PageID = pageID

	w.logger.Info("created job page",
		zap.String("title", p.Title),
		zap.String("company", p.Company),
		zap.String("page_id", pageID),
	)
	return pageID, nil
}

// UpdateMaterials sets the generated document links of a job page. Only the
// non-empty links are sent; every other property keeps the value a human may
// have edited meanwhile.
func (w *Workspace) UpdateMaterials(ctx context.Context, pageID, cvURL, coverLetterURL string) error {
	if pageID == "" {
		return errors.New("job page id is required")
	}
	props := MaterialProperties(cvURL, coverLetterURL)
	if len(props) == 0 {
		return nil
	}
	if err := w.client.UpdatePage(ctx, pageID, props); err != nil {
		return err
	}

	w.logger.Info("updated job materials", zap.String("page_id", pageID), zap.Int("properties", len(props)))
	return nil
}

func (w *Workspace) jobPageByURL(ctx context.Context, u string) (string, error) {
	it := w.client.Query(ctx, w.dbs.Jobs, URLEquals(PropURL, u), nil)
	if it.Next() {
		return it.Page().ID, nil
	}
	return "", it.Err()
}

// JobURLs returns the URL of every persisted job.
func (w *Workspace) JobURLs(ctx context.Context) ([]string, error) {
	it := w.client.Query(ctx, w.dbs.Jobs, nil, nil)
	var urls []string
	for it.Next() {
		if u := it.Page().Properties[PropURL].URLString(); u != "" {
			urls = append(urls, u)
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	w.logger.Info("loaded existing job urls", zap.Int("count", len(urls)))
	return urls, nil
}

func (w *Workspace) JobsByStatus(ctx context.Context, status jobs.Status) ([]*jobs.Posting, error) {
	return w.queryJobs(ctx, SelectEquals(PropStatus, string(status)), nil)
}

// RecentJobs returns jobs discovered on or after since, best score first.
func (w *Workspace) RecentJobs(ctx context.Context, since time.Time) ([]*jobs.Posting, error) {
	return w.queryJobs(ctx, DateOnOrAfter(PropDiscoveredDate, since), []Sort{Descending(PropScore)})
}

func (w *Workspace) queryJobs(ctx context.Context, filter *Filter, sorts []Sort) ([]*jobs.Posting, error) {
	pages, err := w.client.Query(ctx, w.dbs.Jobs, filter, sorts).Collect()
	if err != nil {
		return nil, err
	}
	postings := make([]*jobs.Posting, 0, len(pages))
	for _, page := range pages {
		postings = append(postings, PageToPosting(page))
	}
	return postings, nil
}

// ActiveCriteria returns the saved searches marked active.
func (w *Workspace) ActiveCriteria(ctx context.Context) ([]jobs.SearchCriteria, error) {
	if w.dbs.Criteria == "" {
		return nil, nil
	}
	pages, err := w.client.Query(ctx, w.dbs.Criteria, CheckboxEquals("Active", true), nil).Collect()
	if err != nil {
		return nil, err
	}

	criteria := make([]jobs.SearchCriteria, 0, len(pages))
	for _, page := range pages {
		props := page.Properties
		criteria = append(criteria, jobs.SearchCriteria{
			PageID:            page.ID,
			Name:              props["Name"].Text(),
			Keywords:          props["Keywords"].Names(),
			Locations:         props["Locations"].Names(),
			Active:            props["Active"].CheckboxOr(true),
			MinScore:          props["Min Score"].NumberOr(jobs.DefaultMinScore),
			ExcludedCompanies: props["Excluded Companies"].Names(),
		})
	}
	return criteria, nil
}

// CompaniesToCheck returns the watchlist entries flagged for a daily check.
func (w *Workspace) CompaniesToCheck(ctx context.Context) ([]jobs.Company, error) {
	if w.dbs.Companies == "" {
		return nil, nil
	}
	pages, err := w.client.Query(ctx, w.dbs.Companies, CheckboxEquals("Check Daily", true), nil).Collect()
	if err != nil {
		return nil, err
	}

	companies := make([]jobs.Company, 0, len(pages))
	for _, page := range pages {
		props := page.Properties
		priority := props["Priority"].SelectName()
		if priority == "" {
			priority = "Medium"
		}
		companies = append(companies, jobs.Company{
			PageID:      page.ID,
			Name:        props["Name"].Text(),
			CareersURL:  props["Careers URL"].URLString(),
			Priority:    priority,
			Locations:   props["Locations"].Names(),
			CheckDaily:  props["Check Daily"].CheckboxOr(true),
			LastChecked: props["Last Checked"].Time(),
			Notes:       props["Notes"].Text(),
		})
	}
	return companies, nil
}

// MarkCompanyChecked stamps the watchlist entry with the current time.
func (w *Workspace) MarkCompanyChecked(ctx context.Context, pageID string, at time.Time) error {
	return w.client.UpdatePage(ctx, pageID, Properties{"Last Checked": DateValue(at)})
}

// CreateInterviewPrep adds a prep entry related to the job page.
func (w *Workspace) CreateInterviewPrep(ctx context.Context, jobPageID string, prep jobs.InterviewPrep) (string, error) {
	if w.dbs.InterviewPrep == "" {
		return "", errors.WithHint(
			errors.New("interview prep database is not configured"),
			"set notion.interview-prep-db in the config file",
		)
	}
	return w.client.CreatePage(ctx, w.dbs.InterviewPrep, Properties{
		"Job":               RelationValue(jobPageID),
		"Company Research":  TextValue(prep.CompanyResearch),
		"Likely Questions":  TextValue(prep.LikelyQuestions),
		"My Talking Points": TextValue(prep.TalkingPoints),
	})
}

// HasInterviewPrep reports whether a prep entry related to the job page
// exists.
func (w *Workspace) HasInterviewPrep(ctx context.Context, jobPageID string) (bool, error) {
	if w.dbs.InterviewPrep == "" {
		return false, nil
	}
	it := w.client.Query(ctx, w.dbs.InterviewPrep, RelationContains("Job", jobPageID), nil)
	found := it.Next()
	return found, it.Err()
}

// JobProperties maps a posting to jobs database properties. Optional fields
// are only written when set.
func JobProperties(p *jobs.Posting) (Properties, error) {
	props := Properties{
		PropTitle:          TitleValue(p.Title),
		PropCompany:        SelectValue(p.Company),
		PropLocation:       SelectValue(p.Location),
		PropScore:          NumberValue(p.Score),
		PropStatus:         SelectValue(string(p.Status)),
		PropSource:         SelectValue(string(p.Source)),
		PropURL:            URLValue(p.URL),
		PropDiscoveredDate: DateValue(p.DiscoveredAt),
	}

	if p.PostedAt != nil {
		props[PropPostedDate] = DateValue(*p.PostedAt)
	}
	if p.Salary != "" {
		props[PropSalary] = TextValue(p.Salary)
	}
	if p.Breakdown != nil {
		breakdown, err := JSONValue(p.Breakdown)
		if err != nil {
			return nil, errors.Wrap(err, "encoding score breakdown")
		}
		props[PropScoreBreakdown] = breakdown
	}
	if p.Analysis != "" {
		props[PropAIAnalysis] = TextValue(p.Analysis)
	}
	for name, prop := range MaterialProperties(p.CVURL, p.CoverLetterURL) {
		props[name] = prop
	}
	if p.Notes != "" {
		props[PropNotes] = TextValue(p.Notes)
	}
	return props, nil
}

func MaterialProperties(cvURL, coverLetterURL string) Properties {
	props := Properties{}
	if cvURL != "" {
		props[PropTailoredCV] = URLValue(cvURL)
	}
	if coverLetterURL != "" {
		props[PropCoverLetter] = URLValue(coverLetterURL)
	}
	return props
}

// PageToPosting converts a jobs database page back into a posting. The
// description is not stored in the workspace and stays empty. Unknown sources
// read as Indeed and unknown statuses as New.
func PageToPosting(page Page) *jobs.Posting {
	props := page.Properties

	source, err := jobs.ParseSource(props[PropSource].SelectName())
	if err != nil {
		source = jobs.SourceIndeed
	}
	status, err := jobs.ParseStatus(props[PropStatus].SelectName())
	if err != nil {
		status = jobs.StatusNew
	}

	p := &jobs.Posting{
		Title:          props[PropTitle].Text(),
		Company:        props[PropCompany].SelectName(),
		Location:       props[PropLocation].SelectName(),
		URL:            props[PropURL].URLString(),
		Source:         source,
		Status:         status,
		Score:          props[PropScore].NumberOr(0),
		PostedAt:       props[PropPostedDate].Time(),
		Salary:         props[PropSalary].Text(),
		Analysis:       props[PropAIAnalysis].Text(),
		CVURL:          props[PropTailoredCV].URLString(),
		CoverLetterURL: props[PropCoverLetter].URLString(),
		Notes:          props[PropNotes].Text(),
		PageID:         page.ID,
	}

	p.DiscoveredAt = time.Now().UTC()
	if discovered := props[PropDiscoveredDate].Time(); discovered != nil {
		p.DiscoveredAt = *discovered
	}

	if raw := props[PropScoreBreakdown].Text(); raw != "" {
		var b jobs.ScoreBreakdown
		if json.Unmarshal([]byte(raw), &b) == nil {
			p.Breakdown = &b
		}
	}

	p.EnsureID()
	return p
}
