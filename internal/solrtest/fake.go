// Package solrtest provides an in-memory solr.Client for tests.
package solrtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hugr-lab/airport-solr/solr"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected failure")

// Call records one operation issued against the fake.
type Call struct {
	Op string // add, request, delete, commit, rollback, query
	// Docs holds the documents of an add or request call, in order.
	Docs []solr.Document
	// Overwrite is the identity-check flag of the submitted documents.
	Overwrite bool
	Query     string
	Sort      string
}

// Client is an in-memory store for one collection. Submitted documents
// become visible after Commit.
type Client struct {
	mu         sync.Mutex
	collection string
	calls      []Call
	pending    []solr.Document
	committed  []solr.Document
	fail       map[string]error
}

var _ solr.Client = (*Client)(nil)

// New returns an empty fake bound to collection.
func New(collection string) *Client {
	return &Client{collection: collection, fail: make(map[string]error)}
}

// FailOn makes every following call of op fail with err (ErrInjected when nil).
func (c *Client) FailOn(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[op] = err
}

// Heal clears all injected failures.
func (c *Client) Heal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = make(map[string]error)
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsOf returns the recorded calls of op.
func (c *Client) CallsOf(op string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

// Seed stores committed documents directly.
func (c *Client) Seed(docs ...solr.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, docs...)
}

// Committed returns the visible documents.
func (c *Client) Committed() []solr.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]solr.Document, len(c.committed))
	copy(out, c.committed)
	return out
}

func (c *Client) record(call Call) error {
	c.calls = append(c.calls, call)
	return c.fail[call.Op]
}

func (c *Client) Collection() string { return c.collection }

func (c *Client) Add(ctx context.Context, docs []solr.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(Call{Op: "add", Docs: append([]solr.Document(nil), docs...), Overwrite: true}); err != nil {
		return err
	}
	c.pending = append(c.pending, docs...)
	return nil
}

func (c *Client) Request(ctx context.Context, req *solr.UpdateRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	call := Call{Op: "request"}
	for _, a := range req.Adds {
		call.Docs = append(call.Docs, a.Doc)
		call.Overwrite = call.Overwrite || a.Overwrite
	}
	if err := c.record(call); err != nil {
		return err
	}
	c.pending = append(c.pending, call.Docs...)
	return nil
}

func (c *Client) DeleteByQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(Call{Op: "delete", Query: query}); err != nil {
		return err
	}
	if query == solr.MatchAll {
		c.pending = nil
		c.committed = nil
	}
	return nil
}

func (c *Client) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(Call{Op: "commit"}); err != nil {
		return err
	}
	c.committed = append(c.committed, c.pending...)
	c.pending = nil
	return nil
}

func (c *Client) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(Call{Op: "rollback"}); err != nil {
		return err
	}
	c.pending = nil
	return nil
}

// Query pages over the committed documents in insertion order. Only the
// "field:value" filter form and the match-all query are understood.
func (c *Client) Query(ctx context.Context, q *solr.Query) (*solr.QueryResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(Call{Op: "query", Query: q.Q, Sort: q.Sort}); err != nil {
		return nil, err
	}

	var matched []solr.Document
	for _, doc := range c.committed {
		if matches(doc, q.Q) && matchesAll(doc, q.FilterQueries) {
			matched = append(matched, doc)
		}
	}

	resp := &solr.QueryResponse{NumFound: int64(len(matched)), Start: int64(q.Start)}
	if q.FacetField != "" {
		counts := make(map[string]int64)
		for _, doc := range matched {
			if v, ok := doc[q.FacetField]; ok {
				counts[toString(v)]++
			}
		}
		for v, n := range counts {
			resp.Facets = append(resp.Facets, solr.FacetBucket{Value: v, Count: n})
		}
		sort.Slice(resp.Facets, func(i, j int) bool {
			if resp.Facets[i].Count != resp.Facets[j].Count {
				return resp.Facets[i].Count > resp.Facets[j].Count
			}
			return resp.Facets[i].Value < resp.Facets[j].Value
		})
	}

	if q.Start < len(matched) && q.Rows > 0 {
		end := q.Start + q.Rows
		if end > len(matched) {
			end = len(matched)
		}
		resp.Docs = append(resp.Docs, matched[q.Start:end]...)
	}
	return resp, nil
}

func matchesAll(doc solr.Document, fqs []string) bool {
	for _, fq := range fqs {
		if !matches(doc, fq) {
			return false
		}
	}
	return true
}

func matches(doc solr.Document, q string) bool {
	if q == "" || q == solr.MatchAll {
		return true
	}
	field, value, ok := strings.Cut(q, ":")
	if !ok {
		return false
	}
	v, ok := doc[field]
	if !ok {
		return false
	}
	return toString(v) == strings.Trim(value, `"`)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case interface{ String() string }:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
