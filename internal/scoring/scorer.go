// Package scoring rates postings against the candidate profile with an AI
// completion model.
package scoring

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/ai"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/retry"
	"github.com/jevancousins/jobhunter/internal/utils"
	"go.uber.org/zap"
)

// ErrProviderUnavailable is returned when the AI provider rejected the
// credential or the account ran out of credits. No further postings can be
// scored until an operator fixes the account.
var ErrProviderUnavailable = errors.New("ai provider unavailable")

const (
	maxDescriptionLength = 8000
	defaultMaxLogLength  = 200
)

//go:embed prompt.md
var promptTemplate string

// Outcome is the terminal state of scoring one posting.
type Outcome int

const (
	OutcomeScored Outcome = iota
	OutcomeUnscored
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScored:
		return "scored"
	case OutcomeUnscored:
		return "unscored"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Scorer rates postings one completion call per attempt.
type Scorer struct {
	completer ai.Completer
	profile   *Profile
	policy    retry.Policy
	logger    *zap.Logger
	maxLogLen int
}

// NewScorer builds a scorer. Bad requests are never retried unless the
// policy carries its own classifier.
func NewScorer(completer ai.Completer, profile *Profile, policy retry.Policy, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if profile == nil {
		profile = &Profile{Summary: defaultSummary}
	}
	if policy.Retryable == nil {
		policy.Retryable = func(err error) bool {
			return !errors.Is(err, ai.ErrBadRequest)
		}
	}

	log = logger.WithCommonFields(log, "gemini", completer.Model())
	if policy.Logger == nil {
		policy.Logger = log
	}

	return &Scorer{
		completer: completer,
		profile:   profile,
		policy:    policy,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Score fills the scoring fields of p. Transient failures are retried; when
// the attempts run out the posting keeps its prior score and OutcomeUnscored
// is returned without an error. Fatal provider failures return OutcomeFatal
// with an error marked as ErrProviderUnavailable.
func (s *Scorer) Score(ctx context.Context, p *jobs.Posting) (Outcome, error) {
	if p == nil {
		return OutcomeUnscored, errors.New("posting is required")
	}

	log := logger.ForPosting(s.logger, p)
	prompt := s.buildPrompt(p)

	log.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	var parsed *response
	err := s.policy.Do(ctx, "score posting", func(ctx context.Context) error {
		raw, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			if ai.IsFatal(err) {
				return retry.Permanent(err)
			}
			return err
		}

		log.Debug("scoring response",
			zap.Int("response_length", utf8.RuneCountInString(raw)),
			zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
		)

		r, err := parseResponse(raw)
		if err != nil {
			return err
		}
		parsed = r
		return nil
	})

	switch {
	case err == nil:
	case ai.IsFatal(err):
		log.Error("ai provider unavailable", zap.Error(err))
		return OutcomeFatal, errors.Mark(errors.Wrap(err, "score posting"), ErrProviderUnavailable)
	case ctx.Err() != nil:
		return OutcomeUnscored, ctx.Err()
	default:
		log.Warn("leaving posting unscored", zap.Error(err), zap.Float64("score", p.Score))
		return OutcomeUnscored, nil
	}

	s.apply(p, parsed)

	log.Info("posting scored",
		zap.Float64("score", p.Score),
		zap.String("verdict", p.Verdict),
		zap.String("dealbreaker", p.Dealbreaker),
	)
	return OutcomeScored, nil
}

func (s *Scorer) apply(p *jobs.Posting, r *response) {
	p.Analysis = strings.TrimSpace(r.Summary)

	if reason, ok := r.dealbreaker(); ok {
		p.Score = 0
		p.Breakdown = nil
		p.Dealbreaker = reason
		p.Verdict = ""
		p.KeyRequirements = nil
		p.Concerns = nil
		p.Questions = nil
		return
	}

	p.Dealbreaker = ""
	p.Breakdown = r.breakdown()
	p.Score = p.Breakdown.Total()
	if r.TotalScore != nil && !math.IsNaN(*r.TotalScore) {
		p.Score = math.Max(0, math.Min(100, *r.TotalScore))
	}
	p.Verdict = strings.TrimSpace(r.Verdict)
	p.KeyRequirements = r.KeyRequirements
	p.Concerns = r.PotentialConcerns
	p.Questions = r.QuestionsToAsk
}

// Report counts the outcomes of a batch.
type Report struct {
	Scored   int
	Unscored int
}

// ScoreAll scores postings in order. The first fatal error stops the batch:
// it is returned together with the counts so far and the remaining postings
// are left untouched.
func (s *Scorer) ScoreAll(ctx context.Context, postings []*jobs.Posting) (Report, error) {
	var report Report
	for i, p := range postings {
		outcome, err := s.Score(ctx, p)
		switch outcome {
		case OutcomeScored:
			report.Scored++
		case OutcomeUnscored:
			report.Unscored++
		}
		if err != nil {
			s.logger.Error("stopping scoring",
				zap.Int("scored", report.Scored),
				zap.Int("remaining", len(postings)-i-1),
				zap.Error(err),
			)
			return report, err
		}
	}
	return report, nil
}

func (s *Scorer) buildPrompt(p *jobs.Posting) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE}}\n\nJob: {{TITLE}} at {{COMPANY}} ({{LOCATION}})\n{{DESCRIPTION}}\n\nJSON Response:"
	}

	dealbreakers := "None"
	if len(s.profile.Dealbreakers) > 0 {
		dealbreakers = "- " + strings.Join(s.profile.Dealbreakers, "\n- ")
	}
	goals := strings.TrimSpace(s.profile.Goals)
	if goals == "" {
		goals = "Not specified"
	}

	replacer := strings.NewReplacer(
		"{{PROFILE}}", strings.TrimSpace(s.profile.Summary),
		"{{GOALS}}", goals,
		"{{DEALBREAKERS}}", dealbreakers,
		"{{TITLE}}", p.Title,
		"{{COMPANY}}", p.Company,
		"{{LOCATION}}", p.Location,
		"{{DESCRIPTION}}", utils.Truncate(p.Description, maxDescriptionLength),
	)
	return replacer.Replace(template)
}
