package filtering

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func postings(companies ...string) *jobs.Postings {
	items := make([]*jobs.Posting, 0, len(companies))
	for i, c := range companies {
		items = append(items, jobs.NewPosting(fmt.Sprintf("Role %d", i), c, "Paris", fmt.Sprintf("https://example.com/%d", i), jobs.SourceIndeed))
	}
	return jobs.NewPostings(items)
}

func TestRunAppliesEnabledFiltersInOrder(t *testing.T) {
	p := postings("Acme", "Evil Corp", "Globex", "acme ")
	p.Items[2].Description = "Unpaid internship, great exposure"

	core, logs := observer.New(zapcore.InfoLevel)
	cfg := &Config{ExcludedCompanies: []string{"ACME"}, RedFlags: []string{"unpaid"}}

	left, dropped, err := Run(context.Background(), cfg, Deps{Logger: zap.New(core)}, Defaults(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Equal(t, 1, left.Len())
	assert.Equal(t, "Evil Corp", left.Items[0].Company)

	steps := logs.FilterMessage("filter step").All()
	require.Len(t, steps, 3)
	assert.Equal(t, "excluded_companies", steps[0].ContextMap()["name"])
	assert.EqualValues(t, 2, steps[0].ContextMap()["dropped"])
	assert.EqualValues(t, 1, steps[1].ContextMap()["dropped"])
}

func TestDisabledFilterIsSkipped(t *testing.T) {
	steps := Defaults()
	DisableByName(steps, "red_flags", "requested")

	p := postings("Acme")
	p.Items[0].Title = "Unpaid quant"

	left, dropped, err := Run(context.Background(), &Config{RedFlags: []string{"unpaid"}}, Deps{}, steps, p)
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, 1, left.Len())

	statuses := Describe(steps)
	require.Len(t, statuses, 3)
	assert.False(t, statuses[1].Enabled)
	assert.Equal(t, "requested", statuses[1].Reason)
}

func TestExcludeFileUsesDumpedPostings(t *testing.T) {
	previous := postings("Acme", "Globex")
	path, err := previous.DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	current := postings("Acme", "Globex", "Initech")
	left, dropped, err := Run(context.Background(), &Config{ExcludeFile: path}, Deps{}, []Filter{NewExcludeFile()}, current)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Equal(t, 1, left.Len())
	assert.Equal(t, "Initech", left.Items[0].Company)
}

func TestExcludeFileErrors(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("not json"), 0o600))

	_, _, err := Run(context.Background(), &Config{ExcludeFile: broken}, Deps{}, []Filter{NewExcludeFile()}, postings("Acme"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude_file")

	_, _, err = Run(context.Background(), &Config{ExcludeFile: filepath.Join(t.TempDir(), "missing.json")}, Deps{}, []Filter{NewExcludeFile()}, postings("Acme"))
	require.Error(t, err)
}
