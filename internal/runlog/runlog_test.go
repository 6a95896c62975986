package runlog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	if strings.Contains(sql, "INSERT") {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestMigrateCreatesTable(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db, nil).Migrate(context.Background()))

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS run_reports")
}

func TestRecordInsertsReport(t *testing.T) {
	db := &fakeDB{}
	report := &pipeline.RunReport{
		ID:            uuid.New(),
		Kind:          pipeline.KindDiscover,
		StartedAt:     time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
		Elapsed:       90 * time.Second,
		Scraped:       12,
		Pushed:        3,
		PerSource:     map[jobs.Source]int{jobs.SourceLinkedIn: 12},
		FailedSources: []jobs.Source{jobs.SourceIndeed},
	}

	require.NoError(t, New(db, nil).Record(context.Background(), report))

	require.Len(t, db.calls, 1)
	args := db.calls[0].args
	require.Len(t, args, 18)
	assert.Equal(t, report.ID, args[0])
	assert.Equal(t, "discover", args[1])
	assert.Equal(t, int64(90000), args[3])
	assert.Equal(t, 12, args[4])
	assert.Equal(t, 3, args[11])
	assert.JSONEq(t, `{"LinkedIn":12}`, string(args[15].([]byte)))
	assert.JSONEq(t, `["Indeed"]`, string(args[16].([]byte)))
}

func TestRecordEncodesEmptyCollections(t *testing.T) {
	db := &fakeDB{}
	report := &pipeline.RunReport{ID: uuid.New(), Kind: pipeline.KindProcess}

	require.NoError(t, New(db, nil).Record(context.Background(), report))

	args := db.calls[0].args
	assert.JSONEq(t, `{}`, string(args[15].([]byte)))
	assert.JSONEq(t, `[]`, string(args[16].([]byte)))
}

func TestRecordWrapsDatabaseErrors(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	report := &pipeline.RunReport{ID: uuid.New(), Kind: pipeline.KindProcess}

	err := New(db, nil).Record(context.Background(), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting run report")
	assert.Contains(t, err.Error(), "connection refused")
}
