package filtering

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"go.uber.org/zap"
)

type excludedCompaniesFilter struct {
	toggle
	companies []string
}

// NewExcludedCompanies creates a filter that removes postings of companies
// listed in the config or in the active search criteria.
func NewExcludedCompanies() Filter {
	return &excludedCompaniesFilter{}
}

func (f *excludedCompaniesFilter) Name() string { return "excluded_companies" }

func (f *excludedCompaniesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg != nil {
		for _, c := range cfg.ExcludedCompanies {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				f.companies = append(f.companies, c)
			}
		}
	}
	return nil
}

func (f *excludedCompaniesFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.companies) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Exclude(func(posting *jobs.Posting) bool {
		company := strings.ToLower(strings.TrimSpace(posting.Company))
		for _, c := range f.companies {
			if company == c {
				return true
			}
		}
		return false
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding postings by company",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *excludedCompaniesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type redFlagsFilter struct {
	toggle
	phrases []string
}

// NewRedFlags creates a filter that removes postings whose title or
// description contains one of the configured phrases.
func NewRedFlags() Filter {
	return &redFlagsFilter{}
}

func (f *redFlagsFilter) Name() string { return "red_flags" }

func (f *redFlagsFilter) Validate(cfg *Config) error {
	f.phrases = nil
	if cfg != nil {
		for _, phrase := range cfg.RedFlags {
			if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" {
				f.phrases = append(f.phrases, phrase)
			}
		}
	}
	return nil
}

func (f *redFlagsFilter) match(posting *jobs.Posting) string {
	text := strings.ToLower(posting.Title + "\n" + posting.Description)
	for _, phrase := range f.phrases {
		if strings.Contains(text, phrase) {
			return phrase
		}
	}
	return ""
}

func (f *redFlagsFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.phrases) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Exclude(func(posting *jobs.Posting) bool {
		phrase := f.match(posting)
		if phrase == "" {
			return false
		}
		deps.Logger.Debug("red flag found",
			zap.String("posting_id", posting.EnsureID()),
			zap.String("title", posting.Title),
			zap.String("phrase", phrase),
		)
		return true
	})

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *redFlagsFilter) Status() Status {
	details := map[string]string{}
	if len(f.phrases) > 0 {
		details["phrases"] = strings.Join(f.phrases, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes postings listed in a JSON
// dump written by a previous run.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.path == "" {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	urls, err := excludedURLsFromFile(f.path)
	if err != nil {
		return p, Step{}, errors.Wrap(err, "getting excluded postings from file")
	}

	removed := p.Exclude(func(posting *jobs.Posting) bool {
		_, ok := urls[posting.URL]
		return ok
	})
	if len(removed) > 0 {
		deps.Logger.Info("excluding postings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(removed), Left: p.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// excludedURLsFromFile reads a postings dump and returns its URLs.
func excludedURLsFromFile(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var postings []*jobs.Posting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "parsing %s", path),
			"the exclude file must be a JSON array of postings, as written by discover --dump",
		)
	}

	urls := make(map[string]struct{}, len(postings))
	for _, posting := range postings {
		if posting != nil && posting.URL != "" {
			urls[posting.URL] = struct{}{}
		}
	}
	return urls, nil
}
