// Package solr implements the remote protocol of a Solr-style document
// store: batched document adds, raw update requests, delete-by-query,
// commit, rollback and select queries with optional field facets.
//
// Client is the abstraction the rest of the module programs against.
// HTTPClient is the implementation backed by the store's JSON API.
package solr

import (
	"bytes"
	"context"

	"github.com/goccy/go-json"
)

// MatchAll is the query matching every document of a collection.
const MatchAll = "*:*"

// Document is a single store document keyed by field name.
type Document map[string]any

// Client is a connection bound to one collection.
// Implementations must be safe for concurrent use.
type Client interface {
	// Collection returns the default collection the client targets.
	Collection() string

	// Add submits docs as one batch with the store's identity check enabled:
	// a document whose unique key already exists replaces it.
	Add(ctx context.Context, docs []Document) error

	// Request submits a raw update request.
	Request(ctx context.Context, req *UpdateRequest) error

	// DeleteByQuery removes every document matching query.
	DeleteByQuery(ctx context.Context, query string) error

	// Commit makes every submitted change visible.
	Commit(ctx context.Context) error

	// Rollback discards changes submitted since the last commit.
	Rollback(ctx context.Context) error

	// Query runs a select query.
	Query(ctx context.Context, q *Query) (*QueryResponse, error)
}

// AddCommand is one document of an update request.
type AddCommand struct {
	Doc Document
	// Overwrite enables the unique-key check for this document.
	// With Overwrite false the store appends without looking for an
	// existing document.
	Overwrite bool
}

// UpdateRequest is a raw update request with per-document overwrite flags.
type UpdateRequest struct {
	Adds []AddCommand
}

// Add appends doc to the request and returns the request.
func (r *UpdateRequest) Add(doc Document, overwrite bool) *UpdateRequest {
	r.Adds = append(r.Adds, AddCommand{Doc: doc, Overwrite: overwrite})
	return r
}

// Len returns the number of documents in the request.
func (r *UpdateRequest) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Adds)
}

// MarshalJSON encodes the request as a JSON update command object.
// The store accepts repeated "add" keys in one object, one per document.
func (r *UpdateRequest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range r.Adds {
		if i > 0 {
			buf.WriteByte(',')
		}
		doc, err := json.Marshal(a.Doc)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"add":{"doc":`)
		buf.Write(doc)
		if a.Overwrite {
			buf.WriteString(`,"overwrite":true}`)
		} else {
			buf.WriteString(`,"overwrite":false}`)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Query is a select query.
type Query struct {
	Q             string   // main query, MatchAll when empty
	FilterQueries []string // fq parameters
	Start         int
	Rows          int
	Fields        []string // fl parameter
	FacetField    string   // enables field faceting when set
	Sort          string   // sort parameter, e.g. "id asc"
}

// FacetBucket is one value of a field facet and its document count.
type FacetBucket struct {
	Value string
	Count int64
}

// QueryResponse is the part of a select response the module consumes.
type QueryResponse struct {
	NumFound int64
	Start    int64
	Docs     []Document
	Facets   []FacetBucket
}
