// Package runlog keeps a history of pipeline runs in PostgreSQL.
package runlog

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/pipeline"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_reports (
	id              uuid PRIMARY KEY,
	kind            text NOT NULL,
	started_at      timestamptz NOT NULL,
	elapsed_ms      bigint NOT NULL,
	scraped         integer NOT NULL DEFAULT 0,
	duplicates      integer NOT NULL DEFAULT 0,
	filtered        integer NOT NULL DEFAULT 0,
	scored          integer NOT NULL DEFAULT 0,
	unscored        integer NOT NULL DEFAULT 0,
	qualified       integer NOT NULL DEFAULT 0,
	strong          integer NOT NULL DEFAULT 0,
	pushed          integer NOT NULL DEFAULT 0,
	skipped         integer NOT NULL DEFAULT 0,
	materials       integer NOT NULL DEFAULT 0,
	interview_preps integer NOT NULL DEFAULT 0,
	per_source      jsonb NOT NULL DEFAULT '{}',
	failed_sources  jsonb NOT NULL DEFAULT '[]',
	error           text NOT NULL DEFAULT ''
)`

const insertReport = `
INSERT INTO run_reports (
	id, kind, started_at, elapsed_ms,
	scraped, duplicates, filtered, scored, unscored, qualified, strong, pushed, skipped,
	materials, interview_preps, per_source, failed_sources, error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (id) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes run reports. It implements pipeline.Recorder.
type Store struct {
	db     execer
	close  func()
	logger *zap.Logger
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "creating postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.WithHint(errors.Wrap(err, "postgres ping failed"),
			"check database-url or unset it to disable the run history")
	}

	s := New(pool, log)
	s.close = pool.Close
	return s, nil
}

func New(db execer, log *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Component(log, "runlog")}
}

// Migrate creates the reports table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "creating run_reports table")
	}
	return nil
}

func (s *Store) Record(ctx context.Context, r *pipeline.RunReport) error {
	counts := r.PerSource
	if counts == nil {
		counts = map[jobs.Source]int{}
	}
	perSource, err := json.Marshal(counts)
	if err != nil {
		return errors.Wrap(err, "encoding per source counts")
	}
	failed := r.FailedSources
	if failed == nil {
		failed = []jobs.Source{}
	}
	failedSources, err := json.Marshal(failed)
	if err != nil {
		return errors.Wrap(err, "encoding failed sources")
	}

	tag, err := s.db.Exec(ctx, insertReport,
		r.ID, r.Kind, r.StartedAt, r.Elapsed.Milliseconds(),
		r.Scraped, r.Duplicates, r.Filtered, r.Scored, r.Unscored, r.Qualified, r.Strong, r.Pushed, r.Skipped,
		r.Materials, r.InterviewPreps, perSource, failedSources, r.Error,
	)
	if err != nil {
		return errors.Wrapf(err, "inserting run report %s", r.ID)
	}

	s.logger.Debug("run report recorded",
		zap.String("run_id", r.ID.String()),
		zap.Int64("rows", tag.RowsAffected()),
	)
	return nil
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
