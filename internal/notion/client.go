// Package notion talks to the Notion REST API: pages, database queries and
// the property mapping of the job hunting workspace.
package notion

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/retry"
	"go.uber.org/zap"
)

const (
	apiURL     = "https://api.notion.com/v1"
	apiVersion = "2022-06-28"
	userAgent  = "jevancousins/jobhunter"
	timeout    = 30 * time.Second
)

type Client struct {
	token      string
	logger     *zap.Logger
	policy     retry.Policy
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New returns a client authenticated with an integration token. Page writes
// are retried with policy on rate limits, server errors and network errors.
func New(token string, policy retry.Policy, log *zap.Logger) *Client {
	log = logger.Component(log, "notion")
	if policy.Logger == nil {
		policy.Logger = log
	}
	policy.Retryable = isTransient

	return &Client{
		token:  token,
		logger: log,
		policy: policy,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		APIURL:    apiURL,
	}
}

type createPageRequest struct {
	Parent     parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type updatePageRequest struct {
	Properties Properties `json:"properties"`
}

// CreatePage adds a page to the database and returns its id.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props Properties) (string, error) {
	return c.CreatePageOnce(ctx, databaseID, props, nil)
}

// CreatePageOnce is CreatePage for pages that must not be created twice. A
// create whose response was lost may still have succeeded, so before every
// retried attempt lookup is asked for the page; a non-empty id is returned
// as is.
func (c *Client) CreatePageOnce(ctx context.Context, databaseID string, props Properties, lookup func(ctx context.Context) (string, error)) (string, error) {
	var page Page
	attempt := 0
	err := c.policy.Do(ctx, "create page", func(ctx context.Context) error {
		attempt++
		if attempt > 1 && lookup != nil {
			id, err := lookup(ctx)
			if err != nil {
				return errors.Wrap(err, "looking up page from a failed attempt")
			}
			if id != "" {
				c.logger.Warn("page created by a failed attempt, not creating it again", zap.String("page_id", id))
				page.ID = id
				return nil
			}
		}
		return c.postJSON(ctx, http.MethodPost, "/pages", createPageRequest{
			Parent:     parent{DatabaseID: databaseID},
			Properties: props,
		}, &page)
	})
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

// UpdatePage overwrites the given properties of a page. Properties absent
// from props are left untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) error {
	return c.policy.Do(ctx, "update page", func(ctx context.Context) error {
		return c.postJSON(ctx, http.MethodPatch, "/pages/"+pageID, updatePageRequest{Properties: props}, nil)
	})
}

// Query returns an iterator over the database pages matching filter, in the
// order given by sorts. Both may be nil. No request is made until the first
// call to Next.
func (c *Client) Query(ctx context.Context, databaseID string, filter *Filter, sorts []Sort) *Iterator {
	return &Iterator{
		ctx:        ctx,
		client:     c,
		databaseID: databaseID,
		request:    queryRequest{Filter: filter, Sorts: sorts},
	}
}
