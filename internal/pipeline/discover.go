package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/filtering"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"github.com/jevancousins/jobhunter/internal/scraper"
	"github.com/jevancousins/jobhunter/internal/workspace"
	"go.uber.org/zap"
)

const summaryWindow = 24 * time.Hour

// DefaultKeywords are searched when no criteria are stored in the workspace.
var DefaultKeywords = []string{
	"quantitative analyst",
	"quant analyst",
	"portfolio analyst",
	"data analyst finance",
	"data scientist finance",
	"investment analyst",
	"research analyst",
	"solution architect",
	"technical architect",
	"product manager fintech",
	"software engineer trading",
	"automation engineer",
	"BI developer",
	"quantitative developer",
	"quant developer",
	"python developer finance",
	"fixed income analyst",
	"credit analyst",
	"risk analyst",
}

var DefaultLocations = []string{"Paris", "London", "Remote", "France", "Switzerland", "Luxembourg"}

type Scraper interface {
	Run(ctx context.Context, keywords, locations []string) *scraper.Result
}

type Scorer interface {
	ScoreAll(ctx context.Context, postings []*jobs.Posting) (scoring.Report, error)
}

type Pusher interface {
	PushJobs(ctx context.Context, postings []*jobs.Posting) (added, skipped int, err error)
	DailySummary(ctx context.Context, window time.Duration) (workspace.Summary, error)
}

// Criteria reads saved searches and the company watchlist.
type Criteria interface {
	ActiveCriteria(ctx context.Context) ([]jobs.SearchCriteria, error)
	CompaniesToCheck(ctx context.Context) ([]jobs.Company, error)
	MarkCompanyChecked(ctx context.Context, pageID string, at time.Time) error
}

// Confirm is asked before qualified postings are pushed. Returning false
// skips the push.
type Confirm func(ctx context.Context, qualified []*jobs.Posting) (bool, error)

// Discovery scrapes, filters, scores and pushes postings. Criteria, Scorer,
// Pusher, Confirm and Recorder are optional.
type Discovery struct {
	Scraper    Scraper
	Criteria   Criteria
	Filters    []filtering.Filter
	FilterCfg  filtering.Config
	Scorer     Scorer
	Pusher     Pusher
	Confirm    Confirm
	Recorder   Recorder
	Thresholds scoring.Thresholds

	Keywords  []string
	Locations []string

	Logger *zap.Logger
	now    func() time.Time
}

func (d *Discovery) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// Run executes one discovery. The returned report is never nil. A provider
// outage during scoring degrades the run instead of failing it: postings
// scored so far are still pushed.
func (d *Discovery) Run(ctx context.Context) (*RunReport, error) {
	log := logger.Component(d.Logger, "discover")
	report := newReport(KindDiscover, d.clock())
	log.Info("starting daily job discovery", zap.String("run_id", report.ID.String()))

	err := d.run(ctx, log, report)
	if err != nil {
		report.Error = err.Error()
	}
	report.Elapsed = d.clock().Sub(report.StartedAt)
	log.Info("daily discovery complete", report.Fields()...)

	if d.Recorder != nil {
		if recErr := d.Recorder.Record(ctx, report); recErr != nil {
			log.Warn("failed to record run report", zap.Error(recErr))
		}
	}
	return report, err
}

func (d *Discovery) run(ctx context.Context, log *zap.Logger, report *RunReport) error {
	thresholds := d.Thresholds.WithDefaults()
	terms := d.searchTerms(ctx, log)
	if terms.MinScore > thresholds.MinScore {
		log.Info("raising minimum score from workspace criteria",
			zap.Float64("configured", thresholds.MinScore),
			zap.Float64("criteria", terms.MinScore),
		)
		thresholds.MinScore = terms.MinScore
	}

	log.Info("search parameters",
		zap.Strings("keywords", terms.Keywords[:min(5, len(terms.Keywords))]),
		zap.Int("keywords_count", len(terms.Keywords)),
		zap.Strings("locations", terms.Locations),
		zap.Float64("min_score", thresholds.MinScore),
	)

	res := d.Scraper.Run(ctx, terms.Keywords, terms.Locations)
	report.PerSource = res.PerSource
	report.FailedSources = res.Failed
	report.Duplicates = res.Duplicates
	for _, n := range res.PerSource {
		report.Scraped += n
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(res.Postings) == 0 {
		log.Warn("no jobs found")
		return nil
	}

	cfg := d.FilterCfg
	cfg.ExcludedCompanies = append(append([]string{}, cfg.ExcludedCompanies...), terms.ExcludedCompanies...)
	postings, dropped, err := filtering.Run(ctx, &cfg, filtering.Deps{Logger: log}, d.Filters, jobs.NewPostings(res.Postings))
	if err != nil {
		return errors.Wrap(err, "filtering postings")
	}
	report.Filtered = dropped

	d.checkWatchlist(ctx, log, postings)

	var degraded error
	qualified := postings.Items
	if d.Scorer != nil {
		log.Info("scoring jobs", zap.Int("count", postings.Len()))
		scored, err := d.Scorer.ScoreAll(ctx, postings.Items)
		report.Scored = scored.Scored
		report.Unscored = postings.Len() - scored.Scored
		switch {
		case errors.Is(err, scoring.ErrProviderUnavailable):
			log.Error("scoring stopped, pushing what was scored", zap.Error(err))
			degraded = err
		case err != nil:
			return errors.Wrap(err, "scoring postings")
		}
		qualified = scoring.FilterByScore(postings.Items, thresholds.MinScore)
	} else {
		log.Warn("no ai provider configured, skipping scoring")
	}
	report.Qualified = len(qualified)
	report.Strong = len(scoring.StrongMatches(postings.Items, thresholds.StrongMatch))

	log.Info("scoring complete",
		zap.Int("total_scored", report.Scored),
		zap.Int("qualified", report.Qualified),
		zap.Int("strong_matches", report.Strong),
	)

	if d.Pusher == nil {
		log.Warn("workspace not configured, skipping push")
		report.Skipped = len(qualified)
		return degraded
	}

	if d.Confirm != nil && len(qualified) > 0 {
		ok, err := d.Confirm(ctx, qualified)
		if err != nil {
			return errors.Wrap(err, "confirming push")
		}
		if !ok {
			log.Info("push cancelled")
			report.Skipped = len(qualified)
			return degraded
		}
	}

	report.Pushed, report.Skipped, err = d.Pusher.PushJobs(ctx, qualified)
	if err != nil {
		return errors.Wrap(err, "pushing postings")
	}

	summary, err := d.Pusher.DailySummary(ctx, summaryWindow)
	if err != nil {
		log.Warn("failed to build daily summary", zap.Error(err))
	} else {
		log.Info("daily summary",
			zap.Int("discovered", summary.Total),
			zap.Int("strong_matches", summary.StrongMatches),
			zap.Any("by_source", summary.BySource),
			zap.Any("by_location", summary.ByLocation),
		)
	}

	return degraded
}

// searchTerms merges the active workspace criteria, falling back to the
// configured defaults when none can be read. MinScore is the strictest
// criteria minimum, or zero without criteria.
func (d *Discovery) searchTerms(ctx context.Context, log *zap.Logger) jobs.SearchCriteria {
	terms := jobs.SearchCriteria{Keywords: d.Keywords, Locations: d.Locations}
	if len(terms.Keywords) == 0 {
		terms.Keywords = DefaultKeywords
	}
	if len(terms.Locations) == 0 {
		terms.Locations = DefaultLocations
	}
	if d.Criteria == nil {
		return terms
	}

	list, err := d.Criteria.ActiveCriteria(ctx)
	if err != nil {
		log.Warn("failed to load criteria from workspace, using defaults", zap.Error(err))
		return terms
	}
	if len(list) == 0 {
		return terms
	}

	merged := jobs.MergeCriteria(list)
	if len(merged.Keywords) > 0 {
		terms.Keywords = merged.Keywords
	}
	if len(merged.Locations) > 0 {
		terms.Locations = merged.Locations
	}
	terms.ExcludedCompanies = merged.ExcludedCompanies
	terms.MinScore = merged.MinScore

	log.Info("loaded search criteria from workspace",
		zap.Int("criteria", len(list)),
		zap.Int("keywords_count", len(terms.Keywords)),
		zap.Int("locations_count", len(terms.Locations)),
	)
	return terms
}

// checkWatchlist reports the watched companies that showed up in this run
// and stamps them as checked.
func (d *Discovery) checkWatchlist(ctx context.Context, log *zap.Logger, postings *jobs.Postings) {
	if d.Criteria == nil {
		return
	}
	companies, err := d.Criteria.CompaniesToCheck(ctx)
	if err != nil {
		log.Warn("failed to load company watchlist", zap.Error(err))
		return
	}

	found := postings.CountBy(func(p *jobs.Posting) string { return strings.ToLower(strings.TrimSpace(p.Company)) })
	for _, c := range companies {
		n := found[strings.ToLower(strings.TrimSpace(c.Name))]
		log.Info("watchlist company",
			zap.String("company", c.Name),
			zap.String("priority", c.Priority),
			zap.Int("postings", n),
		)
		if err := d.Criteria.MarkCompanyChecked(ctx, c.PageID, d.clock()); err != nil {
			log.Warn("failed to mark company checked", zap.String("company", c.Name), zap.Error(err))
		}
	}
}
