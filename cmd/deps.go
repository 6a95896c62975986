package cmd

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/ai"
	"github.com/jevancousins/jobhunter/internal/ai/gemini"
	"github.com/jevancousins/jobhunter/internal/filtering"
	"github.com/jevancousins/jobhunter/internal/generation"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/notion"
	"github.com/jevancousins/jobhunter/internal/pipeline"
	"github.com/jevancousins/jobhunter/internal/retry"
	"github.com/jevancousins/jobhunter/internal/runlock"
	"github.com/jevancousins/jobhunter/internal/runlog"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"github.com/jevancousins/jobhunter/internal/scraper"
	"github.com/jevancousins/jobhunter/internal/secrets"
	"github.com/jevancousins/jobhunter/internal/workspace"
	"go.uber.org/zap"
)

// deps holds the collaborators shared by the commands. Optional parts are nil
// when not configured.
type deps struct {
	completer ai.Completer
	profile   *scoring.Profile
	workspace *notion.Workspace
	sync      *workspace.Sync
	recorder  *runlog.Store
	locker    runlock.Locker

	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func newDeps(ctx context.Context, config *Config, log *zap.Logger) (*deps, error) {
	d := &deps{locker: runlock.Noop{}}

	completer, err := newCompleter(ctx, config.AI)
	if err != nil {
		log.Warn("ai provider unavailable, scoring and generation disabled", zap.Error(err))
	} else {
		d.completer = completer
	}

	d.profile, err = scoring.LoadProfile(config.Scoring.ProfileFile, config.Scoring.Goals, config.Scoring.Dealbreakers, log)
	if err != nil {
		return nil, errors.Wrap(err, "loading candidate profile")
	}

	ws, err := newWorkspace(config.Notion, log)
	if err != nil {
		log.Warn("notion workspace unavailable", zap.Error(err))
	} else {
		d.workspace = ws
		d.sync = workspace.NewSync(ws, config.Scoring.Thresholds, log)
	}

	if url := strings.TrimSpace(config.DatabaseURL); url != "" {
		store, err := runlog.Open(ctx, url, log)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			d.Close()
			return nil, err
		}
		d.recorder = store
	}

	if url := strings.TrimSpace(config.RedisURL); url != "" {
		locker, client, err := runlock.Connect(ctx, url, config.Schedule.LockTTL, log)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = client.Close() })
		d.locker = locker
	}

	return d, nil
}

func newCompleter(ctx context.Context, cfg *AIConfig) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, errors.Newf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, errors.WithHint(err, "set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY")
	}

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, gemini.WithMaxOutputTokens(cfg.Gemini.MaxOutputTokens))
}

func newWorkspace(cfg *NotionConfig, log *zap.Logger) (*notion.Workspace, error) {
	if strings.TrimSpace(cfg.Jobs) == "" {
		return nil, errors.WithHint(errors.New("notion jobs database is not configured"), "set notion.jobs-db in the config file")
	}

	token, err := secrets.Load(secrets.Source{
		Name: "notion token",
		File: cfg.TokenFile,
		Env:  "NOTION_API_KEY",
	})
	if err != nil {
		return nil, errors.WithHint(err, "set notion.token-file, NOTION_TOKEN_FILE or NOTION_API_KEY")
	}

	client := notion.New(token, retry.Default(), logger.Component(log, "notion"))
	return notion.NewWorkspace(client, cfg.Databases), nil
}

func newScraper(cfg *ScrapeConfig, log *zap.Logger) (*scraper.Orchestrator, error) {
	open := scraper.OpenHTTP
	if cfg.Browser {
		open = scraper.OpenBrowser(scraper.BrowserOptions{ChromeBin: cfg.ChromeBin, Logger: log})
	}
	runner := scraper.NewRunner(open, scraper.Options{Delay: cfg.Delay, Jitter: cfg.Jitter, MaxJobs: cfg.MaxJobs}, log)

	var sources []scraper.Source
	for _, name := range cfg.Sources {
		src, err := jobs.ParseSource(name)
		if err != nil {
			return nil, errors.Wrap(err, "scrape.sources")
		}
		switch src {
		case jobs.SourceLinkedIn:
			sources = append(sources, scraper.NewLinkedIn(runner.MaxJobs(), log))
		case jobs.SourceIndeed:
			sources = append(sources, scraper.NewIndeed(runner.MaxJobs(), log))
		case jobs.SourceWTTJ:
			sources = append(sources, scraper.NewWTTJ(cfg.WTTJLang, runner.MaxJobs(), log))
		default:
			return nil, errors.WithHintf(errors.Newf("source %s cannot be scraped", src), "use one of: linkedin, indeed, wttj")
		}
	}
	if len(sources) == 0 {
		return nil, errors.WithHint(errors.New("no sources configured"), "set scrape.sources")
	}

	return scraper.NewOrchestrator(runner, sources, log), nil
}

func newDiscovery(config *Config, d *deps, confirm pipeline.Confirm, log *zap.Logger) (*pipeline.Discovery, error) {
	orchestrator, err := newScraper(config.Scrape, log)
	if err != nil {
		return nil, err
	}

	discovery := &pipeline.Discovery{
		Scraper:    orchestrator,
		Filters:    filtering.Defaults(),
		FilterCfg:  config.Filters,
		Confirm:    confirm,
		Thresholds: config.Scoring.Thresholds,
		Keywords:   config.Search.Keywords,
		Locations:  config.Search.Locations,
		Logger:     log,
	}

	if d.completer != nil {
		discovery.Scorer = scoring.NewScorer(d.completer, d.profile, retry.Default(), log, config.AI.Gemini.MaxLogLength)
	}
	if d.workspace != nil {
		discovery.Criteria = d.workspace
		discovery.Pusher = d.sync
	}
	if d.recorder != nil {
		discovery.Recorder = d.recorder
	}
	return discovery, nil
}

func newProcessing(config *Config, d *deps, log *zap.Logger) (*pipeline.Processing, error) {
	if d.workspace == nil {
		return nil, errors.WithHint(errors.New("processing needs the notion workspace"), "configure notion.jobs-db and the notion token")
	}
	if d.completer == nil {
		return nil, errors.WithHint(errors.New("processing needs an ai provider"), "configure the gemini api key")
	}

	processing := &pipeline.Processing{
		Sync:      d.sync,
		Generator: generation.NewGenerator(d.completer, d.profile, log),
		Storage:   generation.NewLocalStorage(config.OutputDir),
		Logger:    log,
	}
	if config.Notion.InterviewPrep != "" {
		processing.Preps = d.workspace
	}
	if d.recorder != nil {
		processing.Recorder = d.recorder
	}
	return processing, nil
}

// runLocked runs fn while holding the named run lock. A held lock skips the
// run without error.
func runLocked(ctx context.Context, locker runlock.Locker, name string, log *zap.Logger, fn func(context.Context) error) error {
	release, err := locker.Acquire(ctx, name)
	if errors.Is(err, runlock.ErrHeld) {
		log.Warn("another run is in progress, skipping", zap.String("run", name))
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release run lock", zap.String("run", name), zap.Error(err))
		}
	}()

	return fn(ctx)
}
