package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/filtering"
	"github.com/jevancousins/jobhunter/internal/generation"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"github.com/jevancousins/jobhunter/internal/scraper"
	"github.com/jevancousins/jobhunter/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeScraper struct {
	result    *scraper.Result
	keywords  []string
	locations []string
}

func (s *fakeScraper) Run(_ context.Context, keywords, locations []string) *scraper.Result {
	s.keywords, s.locations = keywords, locations
	return s.result
}

// fakeScorer assigns scores by URL. When failAfter is positive it stops with
// a provider outage once that many postings were scored.
type fakeScorer struct {
	scores    map[string]float64
	failAfter int
}

func (s *fakeScorer) ScoreAll(_ context.Context, postings []*jobs.Posting) (scoring.Report, error) {
	var report scoring.Report
	for _, p := range postings {
		if s.failAfter > 0 && report.Scored == s.failAfter {
			return report, errors.Wrap(scoring.ErrProviderUnavailable, "quota exhausted")
		}
		p.Score = s.scores[p.URL]
		report.Scored++
	}
	return report, nil
}

type fakePusher struct {
	pushed    []*jobs.Posting
	summaries int
}

func (p *fakePusher) PushJobs(_ context.Context, postings []*jobs.Posting) (int, int, error) {
	p.pushed = append(p.pushed, postings...)
	return len(postings), 0, nil
}

func (p *fakePusher) DailySummary(context.Context, time.Duration) (workspace.Summary, error) {
	p.summaries++
	return workspace.Summary{Total: len(p.pushed)}, nil
}

type fakeCriteria struct {
	criteria []jobs.SearchCriteria
	err      error
	watched  []jobs.Company
	checked  []string
}

func (c *fakeCriteria) ActiveCriteria(context.Context) ([]jobs.SearchCriteria, error) {
	return c.criteria, c.err
}

func (c *fakeCriteria) CompaniesToCheck(context.Context) ([]jobs.Company, error) {
	return c.watched, nil
}

func (c *fakeCriteria) MarkCompanyChecked(_ context.Context, pageID string, _ time.Time) error {
	c.checked = append(c.checked, pageID)
	return nil
}

type fakeRecorder struct {
	reports []*RunReport
}

func (r *fakeRecorder) Record(_ context.Context, report *RunReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func scraped(postings ...*jobs.Posting) *scraper.Result {
	return &scraper.Result{
		Postings:  postings,
		PerSource: map[jobs.Source]int{jobs.SourceLinkedIn: len(postings)},
	}
}

func samplePostings() []*jobs.Posting {
	return []*jobs.Posting{
		jobs.NewPosting("Quant Analyst", "Acme Capital", "Paris", "https://example.com/1", jobs.SourceLinkedIn),
		jobs.NewPosting("Risk Analyst", "Globex", "London", "https://example.com/2", jobs.SourceLinkedIn),
		jobs.NewPosting("Data Analyst", "Initech", "Remote", "https://example.com/3", jobs.SourceLinkedIn),
		jobs.NewPosting("Unpaid Intern", "Hooli", "Paris", "https://example.com/4", jobs.SourceLinkedIn),
	}
}

func TestDiscoveryPushesQualifiedPostings(t *testing.T) {
	src := &fakeScraper{result: scraped(samplePostings()...)}
	criteria := &fakeCriteria{
		criteria: []jobs.SearchCriteria{{
			Name:              "quant",
			Keywords:          []string{"quant analyst"},
			Locations:         []string{"Paris"},
			Active:            true,
			ExcludedCompanies: []string{"Globex"},
		}},
		watched: []jobs.Company{{PageID: "company-1", Name: "acme capital"}},
	}
	pusher := &fakePusher{}
	recorder := &fakeRecorder{}

	d := &Discovery{
		Scraper:   src,
		Criteria:  criteria,
		Filters:   filtering.Defaults(),
		FilterCfg: filtering.Config{RedFlags: []string{"unpaid"}},
		Scorer: &fakeScorer{scores: map[string]float64{
			"https://example.com/1": 85,
			"https://example.com/3": 40,
		}},
		Pusher:   pusher,
		Recorder: recorder,
	}

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"quant analyst"}, src.keywords)
	assert.Equal(t, []string{"Paris"}, src.locations)
	assert.Equal(t, []string{"company-1"}, criteria.checked)

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "https://example.com/1", pusher.pushed[0].URL)
	assert.Equal(t, 1, pusher.summaries)

	assert.Equal(t, 4, report.Scraped)
	assert.Equal(t, 2, report.Filtered)
	assert.Equal(t, 2, report.Scored)
	assert.Equal(t, 1, report.Qualified)
	assert.Equal(t, 1, report.Strong)
	assert.Equal(t, 1, report.Pushed)
	assert.Empty(t, report.Error)
	require.Len(t, recorder.reports, 1)
	assert.Same(t, report, recorder.reports[0])
}

func TestDiscoveryAppliesStrictestCriteriaMinScore(t *testing.T) {
	pusher := &fakePusher{}
	d := &Discovery{
		Scraper: &fakeScraper{result: scraped(samplePostings()[:3]...)},
		Criteria: &fakeCriteria{criteria: []jobs.SearchCriteria{
			{Name: "broad", Keywords: []string{"analyst"}, Active: true, MinScore: 60},
			{Name: "picky", Keywords: []string{"quant"}, Active: true, MinScore: 80},
		}},
		Scorer: &fakeScorer{scores: map[string]float64{
			"https://example.com/1": 85,
			"https://example.com/2": 75,
			"https://example.com/3": 65,
		}},
		Pusher:     pusher,
		Thresholds: scoring.Thresholds{MinScore: 60},
	}

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "https://example.com/1", pusher.pushed[0].URL)
	assert.Equal(t, 1, report.Qualified)
}

func TestDiscoveryKeepsConfiguredMinScoreAboveCriteria(t *testing.T) {
	pusher := &fakePusher{}
	d := &Discovery{
		Scraper: &fakeScraper{result: scraped(samplePostings()[:2]...)},
		Criteria: &fakeCriteria{criteria: []jobs.SearchCriteria{
			{Name: "lenient", Keywords: []string{"analyst"}, Active: true, MinScore: 50},
		}},
		Scorer: &fakeScorer{scores: map[string]float64{
			"https://example.com/1": 72,
			"https://example.com/2": 55,
		}},
		Pusher:     pusher,
		Thresholds: scoring.Thresholds{MinScore: 70},
	}

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "https://example.com/1", pusher.pushed[0].URL)
}

func TestDiscoveryFallsBackToDefaultSearchTerms(t *testing.T) {
	src := &fakeScraper{result: scraped()}
	d := &Discovery{
		Scraper:  src,
		Criteria: &fakeCriteria{err: errors.New("notion api: 503")},
		Pusher:   &fakePusher{},
	}

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultKeywords, src.keywords)
	assert.Equal(t, DefaultLocations, src.locations)
	assert.Zero(t, report.Scraped)
}

func TestDiscoveryStopsWhenNothingFound(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	pusher := &fakePusher{}
	d := &Discovery{
		Scraper:   &fakeScraper{result: scraped()},
		Keywords:  []string{"quant"},
		Locations: []string{"Paris"},
		Pusher:    pusher,
		Logger:    zap.New(core),
	}

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, pusher.pushed)
	assert.Zero(t, pusher.summaries)
	assert.Equal(t, 1, logs.FilterMessage("no jobs found").Len())
}

func TestDiscoveryPushesScoredPostingsAfterProviderOutage(t *testing.T) {
	pusher := &fakePusher{}
	d := &Discovery{
		Scraper: &fakeScraper{result: scraped(samplePostings()[:3]...)},
		Scorer: &fakeScorer{
			scores:    map[string]float64{"https://example.com/1": 90, "https://example.com/2": 70},
			failAfter: 1,
		},
		Pusher: pusher,
	}

	report, err := d.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scoring.ErrProviderUnavailable))

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "https://example.com/1", pusher.pushed[0].URL)
	assert.Equal(t, 1, report.Scored)
	assert.Equal(t, 2, report.Unscored)
	assert.Contains(t, report.Error, "ai provider unavailable")
}

func TestDiscoveryWithoutScorerQualifiesEverything(t *testing.T) {
	pusher := &fakePusher{}
	d := &Discovery{
		Scraper: &fakeScraper{result: scraped(samplePostings()...)},
		Pusher:  pusher,
	}

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, pusher.pushed, 4)
	assert.Equal(t, 4, report.Qualified)
}

func TestDiscoveryHonoursDeclinedConfirmation(t *testing.T) {
	pusher := &fakePusher{}
	asked := 0
	d := &Discovery{
		Scraper: &fakeScraper{result: scraped(samplePostings()...)},
		Pusher:  pusher,
		Confirm: func(_ context.Context, qualified []*jobs.Posting) (bool, error) {
			asked++
			assert.Len(t, qualified, 4)
			return false, nil
		},
	}

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
	assert.Empty(t, pusher.pushed)
	assert.Equal(t, 4, report.Skipped)
}

type fakeStatusSync struct {
	changes workspace.Changes
	updated map[string][2]string
}

func (s *fakeStatusSync) GetStatusChanges(context.Context) (workspace.Changes, error) {
	return s.changes, nil
}

func (s *fakeStatusSync) UpdateMaterials(_ context.Context, p *jobs.Posting, cvURL, coverURL string) error {
	if s.updated == nil {
		s.updated = map[string][2]string{}
	}
	s.updated[p.PageID] = [2]string{cvURL, coverURL}
	return nil
}

type fakeGenerator struct {
	empty map[string]bool
	preps int
}

func (g *fakeGenerator) Materials(_ context.Context, _ generation.Storage, p *jobs.Posting) (string, string) {
	if g.empty[p.PageID] {
		return "", ""
	}
	return "file:///cv/" + p.PageID, "file:///cl/" + p.PageID
}

func (g *fakeGenerator) InterviewPrep(_ context.Context, p *jobs.Posting) jobs.InterviewPrep {
	g.preps++
	return jobs.InterviewPrep{CompanyResearch: "About " + p.Company}
}

type fakePreps struct {
	existing map[string]bool
	created  map[string]jobs.InterviewPrep
}

func (f *fakePreps) HasInterviewPrep(_ context.Context, jobPageID string) (bool, error) {
	return f.existing[jobPageID], nil
}

func (f *fakePreps) CreateInterviewPrep(_ context.Context, jobPageID string, prep jobs.InterviewPrep) (string, error) {
	if f.created == nil {
		f.created = map[string]jobs.InterviewPrep{}
	}
	f.created[jobPageID] = prep
	return "prep-" + jobPageID, nil
}

func pagePosting(pageID, company string) *jobs.Posting {
	p := jobs.NewPosting("Analyst", company, "Paris", "https://example.com/"+pageID, jobs.SourceIndeed)
	p.PageID = pageID
	return p
}

func TestProcessingHandlesApplyAndInterview(t *testing.T) {
	sync := &fakeStatusSync{changes: workspace.Changes{
		Apply:     []*jobs.Posting{pagePosting("a1", "Acme"), pagePosting("a2", "Globex")},
		Interview: []*jobs.Posting{pagePosting("i1", "Initech"), pagePosting("i2", "Hooli")},
	}}
	gen := &fakeGenerator{empty: map[string]bool{"a2": true}}
	preps := &fakePreps{existing: map[string]bool{"i2": true}}
	recorder := &fakeRecorder{}

	p := &Processing{Sync: sync, Generator: gen, Preps: preps, Recorder: recorder}
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string][2]string{"a1": {"file:///cv/a1", "file:///cl/a1"}}, sync.updated)
	require.Contains(t, preps.created, "i1")
	assert.Equal(t, "About Initech", preps.created["i1"].CompanyResearch)
	assert.NotContains(t, preps.created, "i2")
	assert.Equal(t, 1, gen.preps)

	assert.Equal(t, KindProcess, report.Kind)
	assert.Equal(t, 1, report.Materials)
	assert.Equal(t, 1, report.InterviewPreps)
	require.Len(t, recorder.reports, 1)
}

func TestProcessingRefreshesExistingPrep(t *testing.T) {
	preps := &fakePreps{existing: map[string]bool{"i1": true}}
	p := &Processing{
		Sync:        &fakeStatusSync{changes: workspace.Changes{Interview: []*jobs.Posting{pagePosting("i1", "Initech")}}},
		Generator:   &fakeGenerator{},
		Preps:       preps,
		RefreshPrep: true,
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, preps.created, "i1")
	assert.Equal(t, 1, report.InterviewPreps)
}

func TestProcessingSkipsInterviewsWithoutPrepStore(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gen := &fakeGenerator{}
	p := &Processing{
		Sync:      &fakeStatusSync{changes: workspace.Changes{Interview: []*jobs.Posting{pagePosting("i1", "Initech")}}},
		Generator: gen,
		Logger:    zap.New(core),
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, gen.preps)
	assert.Zero(t, report.InterviewPreps)
	assert.Equal(t, 1, logs.FilterMessage("interview prep store not configured, skipping interview postings").Len())
}

func TestReportFieldsDependOnKind(t *testing.T) {
	now := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	r := newReport(KindProcess, now)
	r.Error = "boom"

	keys := map[string]bool{}
	for _, f := range r.Fields() {
		keys[f.Key] = true
	}
	assert.True(t, keys["interview_preps"])
	assert.True(t, keys["error"])
	assert.False(t, keys["jobs_scraped"])
	assert.Equal(t, now, r.StartedAt)
}
