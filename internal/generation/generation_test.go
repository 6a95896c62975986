package generation

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// promptedCompleter answers according to the first matching prompt fragment.
type promptedCompleter struct {
	replies map[string]string
	prompts []string
}

func (c *promptedCompleter) Model() string { return "test-model" }

func (c *promptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	for fragment, reply := range c.replies {
		if strings.Contains(prompt, fragment) {
			return reply, nil
		}
	}
	return "", errors.New("no reply")
}

type failingStorage struct{}

func (failingStorage) Upload(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func posting() *jobs.Posting {
	p := jobs.NewPosting("Quant Developer", "Acme/Capital", "Paris", "https://example.com/1", jobs.SourceLinkedIn)
	p.Description = "Build pricing libraries."
	p.KeyRequirements = []string{"Python", "C++"}
	return p
}

func TestMaterialsStoresBothDocuments(t *testing.T) {
	completer := &promptedCompleter{replies: map[string]string{
		"Tailor the master CV": "# CV\n",
		"Write a cover letter": "Dear Acme,",
	}}
	g := NewGenerator(completer, &scoring.Profile{Summary: "Solution architect", Document: `{"personal":{}}`}, zap.NewNop())

	dir := t.TempDir()
	storage := NewLocalStorage(dir)
	storage.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	cvURL, letterURL := g.Materials(context.Background(), storage, posting())
	require.NotEmpty(t, cvURL)
	require.NotEmpty(t, letterURL)

	parsed, err := url.Parse(cvURL)
	require.NoError(t, err)
	assert.Equal(t, "file", parsed.Scheme)
	assert.Equal(t, filepath.Join(dir, "2024-03", "Acme_Capital_Quant Developer_CV.md"), filepath.FromSlash(parsed.Path))

	content, err := os.ReadFile(filepath.FromSlash(parsed.Path))
	require.NoError(t, err)
	assert.Equal(t, "# CV", string(content))

	require.Len(t, completer.prompts, 2)
	assert.Contains(t, completer.prompts[0], `{"personal":{}}`)
	assert.Contains(t, completer.prompts[0], "Key requirements: Python, C++")
}

func TestMaterialsYieldEmptyURLsOnFailure(t *testing.T) {
	completer := &promptedCompleter{replies: map[string]string{"Tailor the master CV": "# CV"}}
	g := NewGenerator(completer, nil, zap.NewNop())

	cvURL, letterURL := g.Materials(context.Background(), failingStorage{}, posting())
	assert.Empty(t, cvURL)
	assert.Empty(t, letterURL)
}

func TestInterviewPrepFallsBackPerPart(t *testing.T) {
	completer := &promptedCompleter{replies: map[string]string{
		"most likely to be asked": "1. Why Acme?",
	}}
	g := NewGenerator(completer, &scoring.Profile{Summary: "Solution architect"}, zap.NewNop())

	prep := g.InterviewPrep(context.Background(), posting())
	assert.Equal(t, "Research on Acme/Capital is pending.", prep.CompanyResearch)
	assert.Equal(t, "1. Why Acme?", prep.LikelyQuestions)
	assert.Equal(t, "Talking points pending generation.", prep.TalkingPoints)
	assert.Len(t, completer.prompts, 3)
}

func TestLocalStorageSanitizesNames(t *testing.T) {
	dir := t.TempDir()
	storage := NewLocalStorage(dir)

	link, err := storage.Upload(context.Background(), `a<b>:c"d/e\f|g?h*.md`, []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(link, "a_b__c_d_e_f_g_h_.md"), link)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = storage.Upload(ctx, "late.md", []byte("x"))
	require.Error(t, err)
}
