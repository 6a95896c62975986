package scraper

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/utils"
	"golang.org/x/time/rate"
)

const (
	fetchTimeout   = 30 * time.Second
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	languageHeader = "en-GB,en;q=0.9,fr;q=0.8"
	maxBodySize    = 10 << 20
)

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

func randomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// Session fetches pages for one scrape batch. Close releases the underlying
// client or browser and must be called exactly once by the owner.
type Session interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// HTTPSession fetches pages with a plain HTTP client that presents itself as
// a desktop browser. The user agent is picked once per session.
type HTTPSession struct {
	client    *http.Client
	userAgent string
}

func NewHTTPSession() *HTTPSession {
	return newHTTPSession(&http.Client{Timeout: fetchTimeout})
}

func newHTTPSession(client *http.Client) *HTTPSession {
	return &HTTPSession{client: client, userAgent: randomUserAgent()}
}

// OpenHTTP is an Opener for HTTP sessions.
func OpenHTTP(context.Context) (Session, error) {
	return NewHTTPSession(), nil
}

func (s *HTTPSession) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(err, "build request for %s", url)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", languageHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", errors.Newf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", errors.Wrapf(err, "read %s", url)
	}
	return string(body), nil
}

func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Pacer spaces fetches: at most one per base interval, each preceded by a
// uniform random jitter.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
	wait    func(ctx context.Context, d time.Duration) error
}

func NewPacer(base, jitter time.Duration) *Pacer {
	limit := rate.Inf
	if base > 0 {
		limit = rate.Every(base)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		jitter:  jitter,
		wait:    utils.WaitFor,
	}
}

// Wait blocks until the next fetch may start.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.jitter > 0 {
		if err := p.wait(ctx, time.Duration(rand.Int64N(int64(p.jitter)))); err != nil {
			return err
		}
	}
	return p.limiter.Wait(ctx)
}

type pacedSession struct {
	Session
	pacer *Pacer
	once  sync.Once
	err   error
}

// Paced wraps a session so every fetch waits for the pacer first.
func Paced(sess Session, pacer *Pacer) Session {
	return &pacedSession{Session: sess, pacer: pacer}
}

func (s *pacedSession) Fetch(ctx context.Context, url string) (string, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "waiting for pacer")
	}
	return s.Session.Fetch(ctx, url)
}

func (s *pacedSession) Close() error {
	s.once.Do(func() { s.err = s.Session.Close() })
	return s.err
}
