// Package generation produces application materials and interview
// preparation for postings a human moved forward in the workspace.
package generation

import (
	"bytes"
	"context"
	"embed"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/ai"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"github.com/jevancousins/jobhunter/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompts/*.md
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.md"))

// Description limits per prompt, in runes.
var descriptionLimits = map[string]int{
	"cv.md":                  6000,
	"cover_letter.md":        4000,
	"company_research.md":    0,
	"interview_questions.md": 4000,
	"talking_points.md":      3000,
}

type promptData struct {
	Title        string
	Company      string
	Location     string
	Description  string
	Requirements string
	Summary      string
	Document     string
}

// Generator writes documents with a completion model.
type Generator struct {
	completer ai.Completer
	profile   *scoring.Profile
	logger    *zap.Logger
}

func NewGenerator(completer ai.Completer, profile *scoring.Profile, log *zap.Logger) *Generator {
	if profile == nil {
		profile = &scoring.Profile{}
	}
	return &Generator{
		completer: completer,
		profile:   profile,
		logger:    logger.Component(log, "generation"),
	}
}

func (g *Generator) complete(ctx context.Context, name string, p *jobs.Posting) (string, error) {
	requirements := "Not specified"
	if len(p.KeyRequirements) > 0 {
		requirements = strings.Join(p.KeyRequirements, ", ")
	}
	document := g.profile.Document
	if document == "" {
		document = g.profile.Summary
	}

	var buf bytes.Buffer
	err := prompts.ExecuteTemplate(&buf, name, promptData{
		Title:        p.Title,
		Company:      p.Company,
		Location:     p.Location,
		Description:  utils.Truncate(p.Description, descriptionLimits[name]),
		Requirements: requirements,
		Summary:      g.profile.Summary,
		Document:     document,
	})
	if err != nil {
		return "", errors.Wrapf(err, "rendering %s", name)
	}

	text, err := g.completer.Complete(ctx, buf.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// TailorCV rewrites the master CV for the posting.
func (g *Generator) TailorCV(ctx context.Context, p *jobs.Posting) (string, error) {
	logger.ForPosting(g.logger, p).Info("tailoring cv")
	cv, err := g.complete(ctx, "cv.md", p)
	return cv, errors.Wrap(err, "tailor cv")
}

func (g *Generator) CoverLetter(ctx context.Context, p *jobs.Posting) (string, error) {
	logger.ForPosting(g.logger, p).Info("writing cover letter")
	letter, err := g.complete(ctx, "cover_letter.md", p)
	return letter, errors.Wrap(err, "write cover letter")
}

// InterviewPrep researches the company and prepares questions and talking
// points. A failed part is replaced by a placeholder so the entry can still
// be created.
func (g *Generator) InterviewPrep(ctx context.Context, p *jobs.Posting) jobs.InterviewPrep {
	log := logger.ForPosting(g.logger, p)
	log.Info("generating interview prep")

	part := func(name, fallback string) string {
		text, err := g.complete(ctx, name, p)
		if err != nil || text == "" {
			log.Error("interview prep generation failed", zap.String("part", strings.TrimSuffix(name, ".md")), zap.Error(err))
			return fallback
		}
		return text
	}

	return jobs.InterviewPrep{
		CompanyResearch: part("company_research.md", "Research on "+p.Company+" is pending."),
		LikelyQuestions: part("interview_questions.md", "Interview questions pending generation."),
		TalkingPoints:   part("talking_points.md", "Talking points pending generation."),
	}
}

// Materials generates and stores the tailored CV and cover letter. A
// document that could not be generated or stored yields an empty URL.
func (g *Generator) Materials(ctx context.Context, storage Storage, p *jobs.Posting) (cvURL, coverLetterURL string) {
	log := logger.ForPosting(g.logger, p)
	base := p.Company + "_" + p.Title

	if cv, err := g.TailorCV(ctx, p); err != nil {
		log.Error("failed to generate cv", zap.Error(err))
	} else {
		cvURL = upload(ctx, storage, log, base+"_CV.md", cv)
	}

	if letter, err := g.CoverLetter(ctx, p); err != nil {
		log.Error("failed to generate cover letter", zap.Error(err))
	} else {
		coverLetterURL = upload(ctx, storage, log, base+"_CL.md", letter)
	}

	return cvURL, coverLetterURL
}

func upload(ctx context.Context, storage Storage, log *zap.Logger, name, content string) string {
	url, err := storage.Upload(ctx, name, []byte(content))
	if err != nil {
		log.Error("failed to store document", zap.String("name", name), zap.Error(err))
		return ""
	}
	log.Info("document stored", zap.String("url", url))
	return url
}
