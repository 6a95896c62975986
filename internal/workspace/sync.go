// Package workspace keeps the workspace jobs database in step with the
// pipeline: it pushes new postings, detects the statuses a human set and
// writes generated material links back.
package workspace

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"go.uber.org/zap"
)

// Store is the jobs database. notion.Workspace implements it.
type Store interface {
	CreateJob(ctx context.Context, p *jobs.Posting) (string, error)
	UpdateMaterials(ctx context.Context, pageID, cvURL, coverLetterURL string) error
	JobURLs(ctx context.Context) ([]string, error)
	JobsByStatus(ctx context.Context, status jobs.Status) ([]*jobs.Posting, error)
	RecentJobs(ctx context.Context, since time.Time) ([]*jobs.Posting, error)
}

// Sync is not safe for concurrent use. The set of known URLs is loaded on the
// first push and then kept up to date by the pushes themselves.
type Sync struct {
	store      Store
	thresholds scoring.Thresholds
	existing   map[string]struct{}
	logger     *zap.Logger
	now        func() time.Time
}

func NewSync(store Store, thresholds scoring.Thresholds, log *zap.Logger) *Sync {
	return &Sync{
		store:      store,
		thresholds: thresholds.WithDefaults(),
		existing:   make(map[string]struct{}),
		logger:     logger.Component(log, "workspace"),
		now:        time.Now,
	}
}

func (s *Sync) loadExisting(ctx context.Context) error {
	urls, err := s.store.JobURLs(ctx)
	if err != nil {
		return errors.Wrap(err, "loading existing job urls")
	}
	for _, u := range urls {
		s.existing[u] = struct{}{}
	}
	return nil
}

// IsDuplicate reports whether a posting with the same URL is already stored.
func (s *Sync) IsDuplicate(p *jobs.Posting) bool {
	_, ok := s.existing[p.URL]
	return ok
}

// PushJobs creates a page for every posting that is neither stored yet nor
// below the minimum score. A failed create is logged and counted as skipped.
func (s *Sync) PushJobs(ctx context.Context, postings []*jobs.Posting) (added, skipped int, err error) {
	if len(s.existing) == 0 {
		if err := s.loadExisting(ctx); err != nil {
			return 0, 0, err
		}
	}

	for _, p := range postings {
		log := logger.ForPosting(s.logger, p)

		if s.IsDuplicate(p) {
			log.Debug("skipping duplicate job")
			skipped++
			continue
		}

		if p.Score < s.thresholds.MinScore {
			log.Debug("skipping low-score job", zap.Float64("score", p.Score))
			skipped++
			continue
		}

		if _, err := s.store.CreateJob(ctx, p); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return added, skipped, ctxErr
			}
			log.Error("failed to push job", zap.Error(err))
			skipped++
			continue
		}

		s.existing[p.URL] = struct{}{}
		added++
	}

	s.logger.Info("push complete", zap.Int("added", added), zap.Int("skipped", skipped))
	return added, skipped, nil
}

// Changes are the postings needing work after a human changed their status.
type Changes struct {
	// Apply holds postings in Apply status without generated materials.
	Apply []*jobs.Posting
	// Interview holds every posting in Interview status.
	Interview []*jobs.Posting
}

func (s *Sync) GetStatusChanges(ctx context.Context) (Changes, error) {
	var changes Changes

	apply, err := s.store.JobsByStatus(ctx, jobs.StatusApply)
	if err != nil {
		return changes, errors.Wrap(err, "listing jobs to apply")
	}
	for _, p := range apply {
		if p.CVURL == "" {
			changes.Apply = append(changes.Apply, p)
		}
	}

	changes.Interview, err = s.store.JobsByStatus(ctx, jobs.StatusInterview)
	if err != nil {
		return changes, errors.Wrap(err, "listing jobs in interview")
	}

	s.logger.Info("status changes detected",
		zap.Int("apply_count", len(changes.Apply)),
		zap.Int("interview_count", len(changes.Interview)),
	)
	return changes, nil
}

// UpdateMaterials records the generated document links on the posting and
// writes only those links back. Empty links leave the current values in
// place, and the status is never touched.
func (s *Sync) UpdateMaterials(ctx context.Context, p *jobs.Posting, cvURL, coverLetterURL string) error {
	if cvURL != "" {
		p.CVURL = cvURL
	}
	if coverLetterURL != "" {
		p.CoverLetterURL = coverLetterURL
	}

	if p.PageID == "" {
		logger.ForPosting(s.logger, p).Warn("posting has no workspace page, materials not written back")
		return nil
	}
	if err := s.store.UpdateMaterials(ctx, p.PageID, cvURL, coverLetterURL); err != nil {
		return errors.Wrap(err, "writing back materials")
	}
	return nil
}

// Summary describes the jobs discovered within a time window.
type Summary struct {
	Total         int
	StrongMatches int
	BySource      map[string]int
	ByLocation    map[string]int
}

// DailySummary reads back the jobs discovered within window from the store.
func (s *Sync) DailySummary(ctx context.Context, window time.Duration) (Summary, error) {
	recent, err := s.store.RecentJobs(ctx, s.now().Add(-window))
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing recent jobs")
	}

	postings := jobs.NewPostings(recent)
	return Summary{
		Total:         postings.Len(),
		StrongMatches: len(scoring.StrongMatches(recent, s.thresholds.StrongMatch)),
		BySource:      postings.BySource(),
		ByLocation:    postings.ByLocation(),
	}, nil
}
