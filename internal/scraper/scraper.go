// Package scraper discovers postings on job boards.
//
// Every board is a Source with two capabilities: Search turns (keyword,
// location) queries into partial postings and GetJobDetails fills the full
// description from the detail page. A Runner drives one source over one
// Session, which it opens for the batch and always closes. The Orchestrator
// runs all sources concurrently and merges their results.
package scraper

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"go.uber.org/zap"
)

const (
	DefaultDelay   = 2 * time.Second
	DefaultMaxJobs = 100
)

// Source is one job board.
type Source interface {
	Source() jobs.Source
	// Search issues one query per (keyword, location) pair and returns the
	// partial postings deduplicated by URL. A failing pair is skipped.
	Search(ctx context.Context, sess Session, keywords, locations []string) ([]*jobs.Posting, error)
	// GetJobDetails fills the posting from its detail page. On failure the
	// posting is returned unchanged together with the error.
	GetJobDetails(ctx context.Context, sess Session, p *jobs.Posting) (*jobs.Posting, error)
}

// LocationFilter is implemented by sources that only cover some locations.
type LocationFilter interface {
	Supports(location string) bool
}

// Opener acquires a session for one scrape batch.
type Opener func(ctx context.Context) (Session, error)

// Options configure a Runner.
type Options struct {
	Delay   time.Duration
	Jitter  time.Duration
	MaxJobs int
}

func (o Options) withDefaults() Options {
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	}
	if o.MaxJobs <= 0 {
		o.MaxJobs = DefaultMaxJobs
	}
	return o
}

// Runner scrapes a source: search, cap, then detail-fetch in discovery order.
// It is safe for concurrent use; every Scrape call owns its own session.
type Runner struct {
	open    Opener
	options Options
	logger  *zap.Logger
}

func NewRunner(open Opener, options Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{open: open, options: options.withDefaults(), logger: log}
}

// MaxJobs is the per-source cap on collected postings.
func (r *Runner) MaxJobs() int {
	return r.options.MaxJobs
}

// Scrape runs one batch against src. The session is closed on every exit
// path. Detail-fetch failures keep the partial posting.
func (r *Runner) Scrape(ctx context.Context, src Source, keywords, locations []string) (postings []*jobs.Posting, err error) {
	log := logger.Component(r.logger, "scraper").With(zap.String(logger.FieldSource, string(src.Source())))

	sess, err := r.open(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s session", src.Source())
	}
	sess = Paced(sess, NewPacer(r.options.Delay, r.options.Jitter))
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			log.Warn("closing session", zap.Error(closeErr))
		}
	}()

	log.Info("starting scrape", zap.Strings("keywords", keywords), zap.Strings("locations", locations))

	found, err := src.Search(ctx, sess, keywords, locations)
	if err != nil {
		return nil, errors.Wrapf(err, "search %s", src.Source())
	}
	log.Info("search finished", zap.Int("count", len(found)))

	if len(found) > r.options.MaxJobs {
		found = found[:r.options.MaxJobs]
	}

	postings = make([]*jobs.Posting, 0, len(found))
	for _, p := range found {
		if ctx.Err() != nil {
			return postings, ctx.Err()
		}

		detailed, err := src.GetJobDetails(ctx, sess, p)
		if err != nil || detailed == nil {
			log.Warn("fetching job details, keeping listing data",
				zap.String(logger.FieldURL, p.URL),
				zap.Error(err),
			)
			postings = append(postings, p)
			continue
		}

		log.Debug("fetched job details", logger.PostingFields(detailed)...)
		postings = append(postings, detailed)
	}

	log.Info("scrape complete", zap.Int("count", len(postings)))
	return postings, nil
}
