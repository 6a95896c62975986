// Package pipeline runs the discovery and status processing jobs end to end.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"go.uber.org/zap"
)

// Run kinds.
const (
	KindDiscover = "discover"
	KindProcess  = "process"
)

// RunReport summarizes one run. It is produced even when the run fails.
type RunReport struct {
	ID        uuid.UUID
	Kind      string
	StartedAt time.Time
	Elapsed   time.Duration

	Scraped       int
	Duplicates    int
	Filtered      int
	Scored        int
	Unscored      int
	Qualified     int
	Strong        int
	Pushed        int
	Skipped       int
	PerSource     map[jobs.Source]int
	FailedSources []jobs.Source

	Materials      int
	InterviewPreps int

	// Error is the message of the error that ended or degraded the run.
	Error string
}

func newReport(kind string, now time.Time) *RunReport {
	return &RunReport{ID: uuid.New(), Kind: kind, StartedAt: now}
}

// Fields describes the report in log entries.
func (r *RunReport) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("run_id", r.ID.String()),
		zap.String("kind", r.Kind),
		zap.Float64("elapsed_seconds", r.Elapsed.Seconds()),
	}
	switch r.Kind {
	case KindDiscover:
		fields = append(fields,
			zap.Int("jobs_scraped", r.Scraped),
			zap.Int("duplicates", r.Duplicates),
			zap.Int("filtered", r.Filtered),
			zap.Int("scored", r.Scored),
			zap.Int("unscored", r.Unscored),
			zap.Int("qualified", r.Qualified),
			zap.Int("strong_matches", r.Strong),
			zap.Int("jobs_added", r.Pushed),
			zap.Int("jobs_skipped", r.Skipped),
			zap.Int("failed_sources", len(r.FailedSources)),
		)
	case KindProcess:
		fields = append(fields,
			zap.Int("materials", r.Materials),
			zap.Int("interview_preps", r.InterviewPreps),
		)
	}
	if r.Error != "" {
		fields = append(fields, zap.String("error", r.Error))
	}
	return fields
}

// Recorder persists run reports. runlog.Store implements it.
type Recorder interface {
	Record(ctx context.Context, r *RunReport) error
}
