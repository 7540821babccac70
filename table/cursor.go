package table

import (
	"context"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/solr"
)

// Cursor describes a range of a table's rows for a reader.
type Cursor struct {
	Collection string
	// Start is the offset of the first document.
	Start int
	// PageSize is the maximum number of documents to read. Zero or less
	// means every matching document. Faceted tables always use 1.
	PageSize int
	// BatchHint is the number of documents fetched per request.
	BatchHint   int
	FilterQuery string
	Query       string
	FacetField  string
	// Sort orders document pages; empty for faceted tables.
	Sort string
}

// Cursor returns the descriptor of count rows starting at start. A faceted
// table aggregates instead of listing documents, so its page size is
// always 1: one facet request returning every bucket.
func (h *Handle) Cursor(start, count int) Cursor {
	cur := Cursor{
		Collection:  h.cfg.Collection,
		Start:       start,
		PageSize:    count,
		BatchHint:   h.cfg.BatchSize,
		FilterQuery: h.tr.FilterQuery,
		Query:       h.Query(),
		FacetField:  h.cfg.FacetField,
	}
	switch {
	case h.cfg.FacetField != "":
		cur.PageSize = 1
	case h.cfg.SortField != "":
		cur.Sort = h.cfg.SortField + " asc"
	}
	return cur
}

// NewReader returns a lazy forward-only reader over the rows described by
// cur. Documents are fetched BatchHint at a time as the reader advances;
// each fetched page becomes one record batch of the handle's schema.
//
// With a facet field the reader issues a single facet request and yields
// one row per bucket: the bucket value in the first column and its count
// in the second.
func NewReader(ctx context.Context, h *Handle, cur Cursor) (array.RecordReader, error) {
	if err := h.checkRequiredFilters("cursor"); err != nil {
		return nil, err
	}
	if cur.BatchHint <= 0 {
		cur.BatchHint = DefaultBatchSize
	}
	r := &reader{
		ctx:    ctx,
		h:      h,
		cur:    cur,
		offset: cur.Start,
	}
	r.refs.Store(1)
	return r, nil
}

type reader struct {
	refs atomic.Int64

	ctx      context.Context
	h        *Handle
	cur      Cursor
	offset   int
	produced int
	done     bool
	rec      arrow.RecordBatch
	err      error
}

var _ array.RecordReader = (*reader)(nil)

func (r *reader) Retain() {
	r.refs.Add(1)
}

func (r *reader) Release() {
	if r.refs.Add(-1) == 0 && r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
}

func (r *reader) Schema() *arrow.Schema { return r.h.cfg.Schema }

func (r *reader) RecordBatch() arrow.RecordBatch { return r.rec }

func (r *reader) Record() arrow.RecordBatch { return r.rec }

func (r *reader) Err() error { return r.err }

func (r *reader) Next() bool {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	if r.done || r.err != nil {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if r.cur.FacetField != "" {
		return r.nextFacets()
	}

	rows := r.cur.BatchHint
	if r.cur.PageSize > 0 {
		rows = min(rows, r.cur.PageSize-r.produced)
	}
	if rows <= 0 {
		r.done = true
		return false
	}

	q := r.query(r.offset, rows)
	q.Fields = r.h.fields
	metrics.CounterQueries.WithLabelValues("page").Inc()
	resp, err := r.h.client.Query(r.ctx, q)
	if err != nil {
		r.fail(err)
		return false
	}
	if len(resp.Docs) == 0 {
		r.done = true
		return false
	}

	rec, err := r.documents(resp.Docs)
	if err != nil {
		r.err = solr.NewError(solr.KindRead, "cursor", r.cur.Collection, err)
		return false
	}
	r.offset += len(resp.Docs)
	r.produced += len(resp.Docs)
	if len(resp.Docs) < rows || int64(r.offset) >= resp.NumFound {
		r.done = true
	}
	r.rec = rec
	return true
}

func (r *reader) nextFacets() bool {
	r.done = true

	q := r.query(0, 0)
	q.FacetField = r.cur.FacetField
	metrics.CounterQueries.WithLabelValues("facet").Inc()
	resp, err := r.h.client.Query(r.ctx, q)
	if err != nil {
		r.fail(err)
		return false
	}
	if len(resp.Facets) == 0 {
		return false
	}

	rec, err := r.facets(resp.Facets)
	if err != nil {
		r.err = solr.NewError(solr.KindRead, "cursor", r.cur.Collection, err)
		return false
	}
	r.rec = rec
	return true
}

func (r *reader) query(start, rows int) *solr.Query {
	q := &solr.Query{Q: r.cur.Query, Start: start, Rows: rows, Sort: r.cur.Sort}
	if r.cur.FilterQuery != "" {
		q.FilterQueries = []string{r.cur.FilterQuery}
	}
	return q
}

func (r *reader) fail(err error) {
	metrics.CounterQueryFailures.Inc()
	r.h.logger.Error("Failed to read page",
		"collection", r.cur.Collection,
		"start", r.offset,
		"error", err,
	)
	r.err = solr.NewError(solr.KindRead, "cursor", r.cur.Collection, err)
}

func (r *reader) documents(docs []solr.Document) (arrow.RecordBatch, error) {
	b := array.NewRecordBuilder(r.h.alloc, r.h.cfg.Schema)
	defer b.Release()

	for _, doc := range docs {
		for i, name := range r.h.fields {
			if err := appendValue(b.Field(i), doc[name]); err != nil {
				return nil, &fieldError{field: name, err: err}
			}
		}
	}
	return b.NewRecordBatch(), nil
}

func (r *reader) facets(buckets []solr.FacetBucket) (arrow.RecordBatch, error) {
	b := array.NewRecordBuilder(r.h.alloc, r.h.cfg.Schema)
	defer b.Release()

	for _, fb := range buckets {
		if err := appendValue(b.Field(0), fb.Value); err != nil {
			return nil, &fieldError{field: r.cur.FacetField, err: err}
		}
		if err := appendValue(b.Field(1), fb.Count); err != nil {
			return nil, &fieldError{field: "count", err: err}
		}
		for i := 2; i < len(b.Fields()); i++ {
			b.Field(i).AppendNull()
		}
	}
	return b.NewRecordBatch(), nil
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return "field " + e.field + ": " + e.err.Error() }

func (e *fieldError) Unwrap() error { return e.err }
