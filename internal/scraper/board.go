package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"go.uber.org/zap"
)

// board holds what every source variant shares: its identity, the per-source
// cap and the query loop.
type board struct {
	source  jobs.Source
	maxJobs int
	logger  *zap.Logger
}

func newBoard(source jobs.Source, maxJobs int, log *zap.Logger) board {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	return board{
		source:  source,
		maxJobs: maxJobs,
		logger:  logger.Component(log, "scraper").With(zap.String(logger.FieldSource, string(source))),
	}
}

func (b board) Source() jobs.Source {
	return b.source
}

type (
	searchURL   func(keyword, location string) string
	listingPage func(doc *goquery.Document, location string) []*jobs.Posting
)

// search runs one query per (location, keyword) pair in order and stops once
// maxJobs postings are collected. A failing pair is logged and skipped.
func (b board) search(ctx context.Context, sess Session, keywords, locations []string, build searchURL, parse listingPage) ([]*jobs.Posting, error) {
	var found []*jobs.Posting
	seen := make(map[string]struct{})

	for _, location := range locations {
		for _, keyword := range keywords {
			if err := ctx.Err(); err != nil {
				return found, err
			}

			url := build(keyword, location)
			log := b.logger.With(zap.String("keyword", keyword), zap.String("location", location))
			log.Info("searching", zap.String(logger.FieldURL, url))

			html, err := sess.Fetch(ctx, url)
			if err != nil {
				log.Error("search failed", zap.Error(err))
				continue
			}

			doc, err := parseHTML(html)
			if err != nil {
				log.Error("search failed", zap.Error(err))
				continue
			}

			added := 0
			for _, p := range parse(doc, location) {
				if _, ok := seen[p.URL]; ok {
					continue
				}
				seen[p.URL] = struct{}{}
				found = append(found, p)
				added++
			}
			log.Debug("parsed listing", zap.Int("added", added))

			if len(found) >= b.maxJobs {
				return found, nil
			}
		}
	}
	return found, nil
}

// detail fetches and parses a detail page.
func (b board) detail(ctx context.Context, sess Session, p *jobs.Posting) (*goquery.Document, error) {
	html, err := sess.Fetch(ctx, p.URL)
	if err != nil {
		return nil, err
	}
	return parseHTML(html)
}
