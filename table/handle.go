// Package table implements table handles: the unit the Flight layer reads
// and writes through.
//
// A Handle binds an immutable Config to a shared store connection taken
// from a registry.Registry and to its own write buffer. Reads run the
// handle's pre-built query; writes go through the buffer and reach the
// store in batches.
//
// A Handle is meant to be driven by one worker at a time. Many handles for
// the same collection share one connection.
package table

import (
	"context"
	"log/slog"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-solr/filter"
	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/registry"
	"github.com/hugr-lab/airport-solr/solr"
	"github.com/hugr-lab/airport-solr/writer"
)

// Options holds the collaborators of a handle.
type Options struct {
	// REQUIRED: source of shared connections.
	Registry *registry.Registry

	// OPTIONAL: filter translator. Defaults to a SolrEncoder mapping
	// schema columns to their store fields.
	Translator filter.Translator

	// OPTIONAL: logger; defaults to slog.Default().
	Logger *slog.Logger

	// OPTIONAL: allocator for record batches built by readers.
	Allocator memory.Allocator
}

// Handle is one open table.
type Handle struct {
	cfg    Config
	fields []string
	tr     filter.Translation
	client solr.Client
	w      *writer.Writer
	logger *slog.Logger
	alloc  memory.Allocator
}

// New validates cfg, translates its filter, acquires the collection's
// connection and creates the write buffer.
//
// A malformed filter and an invalid configuration are
// solr.KindConfiguration errors. A failed connect handshake is a
// solr.KindConnection error.
func New(ctx context.Context, cfg Config, opts Options) (*Handle, error) {
	cfg = cfg.WithDefaults()
	cfg.Columns = slices.Clone(cfg.Columns)
	cfg.RequiredFilterFields = slices.Clone(cfg.RequiredFilterFields)
	cfg.Filter = slices.Clone(cfg.Filter)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		return nil, solr.Errorf(solr.KindConfiguration, "open", cfg.Collection, "registry is required")
	}

	h := &Handle{
		cfg:    cfg,
		fields: cfg.FieldNames(),
		logger: opts.Logger,
		alloc:  opts.Allocator,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.alloc == nil {
		h.alloc = memory.DefaultAllocator
	}

	if len(cfg.Filter) > 0 {
		fp, err := filter.Parse(cfg.Filter)
		if err != nil {
			return nil, solr.NewError(solr.KindConfiguration, "open", cfg.Collection, err)
		}
		tr := opts.Translator
		if tr == nil {
			tr = filter.NewSolrEncoder(&filter.EncoderOptions{ColumnMapping: h.columnMapping()})
		}
		h.tr = tr.Translate(fp)
	}

	client, err := opts.Registry.GetOrCreate(ctx, cfg.ClusterLocator, cfg.Collection)
	if err != nil {
		return nil, err
	}
	h.client = client

	w, err := writer.New(client, writer.Options{
		BatchSize: cfg.BatchSize,
		Overwrite: cfg.Overwrite,
		Logger:    h.logger,
	})
	if err != nil {
		return nil, err
	}
	h.w = w

	h.logger.Debug("Opened table handle",
		"collection", cfg.Collection,
		"fq", h.tr.FilterQuery,
		"q", h.Query(),
	)
	return h, nil
}

func (h *Handle) columnMapping() map[string]string {
	m := make(map[string]string, len(h.fields))
	for i, name := range h.fields {
		if col := h.cfg.Schema.Field(i).Name; col != name {
			m[col] = name
		}
	}
	return m
}

// Config returns the handle configuration with defaults applied.
func (h *Handle) Config() Config { return h.cfg }

// Collection returns the collection id.
func (h *Handle) Collection() string { return h.cfg.Collection }

// Schema returns the Arrow schema of the table rows.
func (h *Handle) Schema() *arrow.Schema { return h.cfg.Schema }

// Client returns the shared connection.
func (h *Handle) Client() solr.Client { return h.client }

// FilterQuery returns the fq fragment built from the filter.
func (h *Handle) FilterQuery() string { return h.tr.FilterQuery }

// Query returns the main query: the configured query string combined with
// the text predicates of the filter.
func (h *Handle) Query() string {
	switch {
	case h.tr.Query == "":
		return h.cfg.QueryString
	case h.cfg.QueryString == solr.MatchAll:
		return h.tr.Query
	default:
		return "(" + h.cfg.QueryString + ") AND (" + h.tr.Query + ")"
	}
}

// checkRequiredFilters rejects reads whose filter leaves a required field
// unconstrained.
func (h *Handle) checkRequiredFilters(op string) error {
	for _, f := range h.cfg.RequiredFilterFields {
		if !slices.Contains(h.tr.Fields, f) {
			return solr.Errorf(solr.KindConfiguration, op, h.cfg.Collection, "a filter on field %q is required", f)
		}
	}
	return nil
}

func (h *Handle) query(start, rows int) *solr.Query {
	q := &solr.Query{
		Q:     h.Query(),
		Start: start,
		Rows:  rows,
	}
	if h.tr.FilterQuery != "" {
		q.FilterQueries = []string{h.tr.FilterQuery}
	}
	return q
}

// Count returns the number of documents matching the handle's query
// without fetching any of them.
func (h *Handle) Count(ctx context.Context) (int64, error) {
	if err := h.checkRequiredFilters("count"); err != nil {
		return 0, err
	}
	metrics.CounterQueries.WithLabelValues("count").Inc()
	resp, err := h.client.Query(ctx, h.query(0, 0))
	if err != nil {
		metrics.CounterQueryFailures.Inc()
		h.logger.Error("Failed to count documents",
			"collection", h.cfg.Collection,
			"error", err,
		)
		return 0, solr.NewError(solr.KindRead, "count", h.cfg.Collection, err)
	}
	return resp.NumFound, nil
}

// Save buffers doc for writing. See writer.Writer.Append.
func (h *Handle) Save(ctx context.Context, doc solr.Document) error {
	return h.w.Append(ctx, doc)
}

// SaveRecord converts every row of rec to a document and saves it. It
// returns the number of rows saved before the first failure.
func (h *Handle) SaveRecord(ctx context.Context, rec arrow.RecordBatch) (int64, error) {
	if int(rec.NumCols()) != len(h.fields) {
		return 0, solr.Errorf(solr.KindWrite, "save", h.cfg.Collection,
			"record has %d columns, table has %d", rec.NumCols(), len(h.fields))
	}
	docs, err := Documents(rec, h.fields)
	if err != nil {
		return 0, solr.NewError(solr.KindWrite, "save", h.cfg.Collection, err)
	}
	for i, doc := range docs {
		if err := h.w.Append(ctx, doc); err != nil {
			return int64(i), err
		}
	}
	return int64(len(docs)), nil
}

// Flush submits the buffered documents.
func (h *Handle) Flush(ctx context.Context) error { return h.w.Flush(ctx) }

// Commit flushes and commits.
func (h *Handle) Commit(ctx context.Context) error { return h.w.Commit(ctx) }

// Rollback discards the buffered documents and rolls the store back.
func (h *Handle) Rollback(ctx context.Context) error { return h.w.Rollback(ctx) }

// Drop deletes every document of the collection and commits.
func (h *Handle) Drop(ctx context.Context) error { return h.w.Drop(ctx) }

// Pending returns the number of buffered documents.
func (h *Handle) Pending() int { return h.w.Pending() }

// State returns the write buffer state.
func (h *Handle) State() writer.State { return h.w.State() }
