package pipeline

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/generation"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/workspace"
	"go.uber.org/zap"
)

type StatusSync interface {
	GetStatusChanges(ctx context.Context) (workspace.Changes, error)
	UpdateMaterials(ctx context.Context, p *jobs.Posting, cvURL, coverLetterURL string) error
}

type Generator interface {
	Materials(ctx context.Context, storage generation.Storage, p *jobs.Posting) (cvURL, coverLetterURL string)
	InterviewPrep(ctx context.Context, p *jobs.Posting) jobs.InterviewPrep
}

// PrepStore keeps interview prep entries linked to job pages.
type PrepStore interface {
	HasInterviewPrep(ctx context.Context, jobPageID string) (bool, error)
	CreateInterviewPrep(ctx context.Context, jobPageID string, prep jobs.InterviewPrep) (string, error)
}

// Processing reacts to status changes made in the workspace: postings moved
// to Apply get a tailored CV and cover letter, postings moved to Interview get
// an interview prep entry.
type Processing struct {
	Sync      StatusSync
	Generator Generator
	Storage   generation.Storage
	Preps     PrepStore
	Recorder  Recorder

	// RefreshPrep regenerates interview prep even when an entry exists.
	RefreshPrep bool

	Logger *zap.Logger
	now    func() time.Time
}

func (p *Processing) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Run handles every pending change once. Failures on single postings are
// logged and do not stop the run.
func (p *Processing) Run(ctx context.Context) (*RunReport, error) {
	log := logger.Component(p.Logger, "process")
	report := newReport(KindProcess, p.clock())
	log.Info("processing status changes", zap.String("run_id", report.ID.String()))

	err := p.run(ctx, log, report)
	if err != nil {
		report.Error = err.Error()
	}
	report.Elapsed = p.clock().Sub(report.StartedAt)
	log.Info("status processing complete", report.Fields()...)

	if p.Recorder != nil {
		if recErr := p.Recorder.Record(ctx, report); recErr != nil {
			log.Warn("failed to record run report", zap.Error(recErr))
		}
	}
	return report, err
}

func (p *Processing) run(ctx context.Context, log *zap.Logger, report *RunReport) error {
	changes, err := p.Sync.GetStatusChanges(ctx)
	if err != nil {
		return errors.Wrap(err, "reading status changes")
	}

	for _, posting := range changes.Apply {
		if err := ctx.Err(); err != nil {
			return err
		}
		plog := logger.ForPosting(log, posting)
		plog.Info("generating application materials")

		cvURL, coverURL := p.Generator.Materials(ctx, p.Storage, posting)
		if cvURL == "" && coverURL == "" {
			plog.Warn("no materials generated")
			continue
		}
		if err := p.Sync.UpdateMaterials(ctx, posting, cvURL, coverURL); err != nil {
			plog.Error("failed to write back materials", zap.Error(err))
			continue
		}
		report.Materials++
	}

	if len(changes.Interview) > 0 && p.Preps == nil {
		log.Warn("interview prep store not configured, skipping interview postings",
			zap.Int("count", len(changes.Interview)))
		return nil
	}

	for _, posting := range changes.Interview {
		if err := ctx.Err(); err != nil {
			return err
		}
		plog := logger.ForPosting(log, posting)

		if !p.RefreshPrep {
			exists, err := p.Preps.HasInterviewPrep(ctx, posting.PageID)
			if err != nil {
				plog.Error("failed to check interview prep", zap.Error(err))
				continue
			}
			if exists {
				plog.Debug("interview prep already exists")
				continue
			}
		}

		prep := p.Generator.InterviewPrep(ctx, posting)
		if _, err := p.Preps.CreateInterviewPrep(ctx, posting.PageID, prep); err != nil {
			plog.Error("failed to create interview prep", zap.Error(err))
			continue
		}
		report.InterviewPreps++
	}

	return nil
}
