package notion

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Max value for page_size.
const pageSize = 100

// Filter is a single property filter of a database query.
type Filter struct {
	Property string     `json:"property"`
	Select   *Condition `json:"select,omitempty"`
	Checkbox *Condition `json:"checkbox,omitempty"`
	Date     *Condition `json:"date,omitempty"`
	Relation *Condition `json:"relation,omitempty"`
	URL      *Condition `json:"url,omitempty"`
}

type Condition struct {
	Equals    any    `json:"equals,omitempty"`
	OnOrAfter string `json:"on_or_after,omitempty"`
	Contains  string `json:"contains,omitempty"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

func SelectEquals(property, name string) *Filter {
	return &Filter{Property: property, Select: &Condition{Equals: name}}
}

func CheckboxEquals(property string, v bool) *Filter {
	return &Filter{Property: property, Checkbox: &Condition{Equals: v}}
}

func DateOnOrAfter(property string, t time.Time) *Filter {
	return &Filter{Property: property, Date: &Condition{OnOrAfter: t.Format(time.RFC3339)}}
}

func RelationContains(property, pageID string) *Filter {
	return &Filter{Property: property, Relation: &Condition{Contains: pageID}}
}

func URLEquals(property, u string) *Filter {
	return &Filter{Property: property, URL: &Condition{Equals: u}}
}

func Descending(property string) Sort {
	return Sort{Property: property, Direction: "descending"}
}

type queryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Iterator walks the results of a database query, requesting the next batch
// only when the current one is consumed. It cannot be restarted.
type Iterator struct {
	ctx        context.Context
	client     *Client
	databaseID string
	request    queryRequest

	batch   []Page
	pos     int
	current Page
	done    bool
	err     error
}

// Next advances to the next page and reports whether there is one. It
// returns false at the end of the results or on the first error.
func (it *Iterator) Next() bool {
	for it.pos >= len(it.batch) {
		if it.done || it.err != nil {
			return false
		}
		it.fetch()
	}
	it.current = it.batch[it.pos]
	it.pos++
	return true
}

// Page returns the page the iterator is positioned on.
func (it *Iterator) Page() Page {
	return it.current
}

func (it *Iterator) Err() error {
	return it.err
}

// Collect drains the iterator.
func (it *Iterator) Collect() ([]Page, error) {
	var pages []Page
	for it.Next() {
		pages = append(pages, it.Page())
	}
	return pages, it.Err()
}

func (it *Iterator) fetch() {
	it.request.PageSize = pageSize

	var resp queryResponse
	if err := it.client.postJSON(it.ctx, http.MethodPost, "/databases/"+it.databaseID+"/query", it.request, &resp); err != nil {
		it.err = errors.Wrapf(err, "querying database %s", it.databaseID)
		return
	}

	it.client.logger.Debug("got query results",
		zap.String("database", it.databaseID),
		zap.Int("results", len(resp.Results)),
		zap.Bool("has_more", resp.HasMore),
	)

	it.batch = resp.Results
	it.pos = 0
	if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
		it.done = true
		return
	}
	it.request.StartCursor = *resp.NextCursor
}
