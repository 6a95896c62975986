package scraper

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"go.uber.org/zap"
)

// Result is the merged outcome of one orchestrated run.
type Result struct {
	Postings   []*jobs.Posting
	PerSource  map[jobs.Source]int
	Failed     []jobs.Source
	Duplicates int
}

// Orchestrator runs every source with the same request. Sources run in
// parallel, each on its own session; a failing source contributes nothing.
type Orchestrator struct {
	runner  *Runner
	sources []Source
	logger  *zap.Logger
}

func NewOrchestrator(runner *Runner, sources []Source, log *zap.Logger) *Orchestrator {
	return &Orchestrator{runner: runner, sources: sources, logger: logger.Component(log, "orchestrator")}
}

type sourceResult struct {
	postings []*jobs.Posting
	err      error
}

// Run scrapes all sources and merges the results in source order, keeping the
// first posting seen for every URL.
func (o *Orchestrator) Run(ctx context.Context, keywords, locations []string) *Result {
	results := make([]sourceResult, len(o.sources))

	var wg sync.WaitGroup
	for i, src := range o.sources {
		if filter, ok := src.(LocationFilter); ok {
			covered := 0
			for _, location := range locations {
				if filter.Supports(location) {
					covered++
				}
			}
			o.logger.Debug("source covers a subset of locations",
				zap.String(logger.FieldSource, string(src.Source())),
				zap.Int("covered", covered),
				zap.Int("requested", len(locations)),
			)
		}

		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = sourceResult{err: errors.Newf("panic: %v", r)}
				}
			}()

			postings, err := o.runner.Scrape(ctx, src, keywords, locations)
			results[i] = sourceResult{postings: postings, err: err}
		}(i, src)
	}
	wg.Wait()

	merged := jobs.NewPostings(nil)
	res := &Result{PerSource: make(map[jobs.Source]int, len(o.sources))}
	for i, src := range o.sources {
		r := results[i]
		if r.err != nil {
			o.logger.Error("source failed",
				zap.String(logger.FieldSource, string(src.Source())),
				zap.Error(r.err),
			)
			res.Failed = append(res.Failed, src.Source())
			res.PerSource[src.Source()] = 0
			continue
		}
		res.PerSource[src.Source()] = len(r.postings)
		merged.Items = append(merged.Items, r.postings...)
	}

	res.Duplicates = merged.DedupeByURL()
	res.Postings = merged.Items

	o.logger.Info("scrape finished",
		zap.Int("total", len(res.Postings)),
		zap.Int("duplicates", res.Duplicates),
		zap.Any("per_source", res.PerSource),
		zap.Int("failed_sources", len(res.Failed)),
	)
	return res
}
