// Package writer batches documents for one table handle and applies them
// to the store under explicit commit and rollback.
//
// The store has no real transactions: Commit makes every flushed document
// visible and Rollback discards what was flushed since the last commit.
// A Writer only guarantees that documents are submitted in append order,
// in batches of at most Capacity documents, and that pending documents are
// never lost on a failed flush.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/solr"
)

// State is the lifecycle state of a Writer.
type State int

const (
	// StateEmpty: nothing pending and nothing finished yet.
	StateEmpty State = iota
	// StateAccumulating: at least one document is pending.
	StateAccumulating
	// StateFlushing: a batch is being submitted.
	StateFlushing
	// StateCommitted: the last finishing operation was a successful commit.
	StateCommitted
	// StateRolledBack: the last finishing operation was a rollback.
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Writer.
type Options struct {
	// REQUIRED: maximum number of pending documents. Must be positive.
	BatchSize int

	// OPTIONAL: submit batches with the store's identity check enabled
	// (upsert). When false documents are appended without the check.
	Overwrite bool

	// OPTIONAL: logger; defaults to slog.Default().
	Logger *slog.Logger
}

// Writer is the write buffer and transactional writer of one table handle.
// It is safe for concurrent use, although a handle is normally driven by a
// single worker.
type Writer struct {
	mu      sync.Mutex
	client  solr.Client
	size    int
	over    bool
	pending []solr.Document
	state   State
	logger  *slog.Logger
}

// New creates a Writer submitting to client.
func New(client solr.Client, opts Options) (*Writer, error) {
	if client == nil {
		return nil, solr.Errorf(solr.KindConfiguration, "writer", "", "client is required")
	}
	if opts.BatchSize <= 0 {
		return nil, solr.Errorf(solr.KindConfiguration, "writer", client.Collection(),
			"batch size must be positive, got %d", opts.BatchSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		client:  client,
		size:    opts.BatchSize,
		over:    opts.Overwrite,
		pending: make([]solr.Document, 0, opts.BatchSize),
		logger:  logger,
	}, nil
}

// Capacity returns the batch capacity.
func (w *Writer) Capacity() int { return w.size }

// Overwrite reports whether batches are submitted with the identity check.
func (w *Writer) Overwrite() bool { return w.over }

// Pending returns the number of documents not yet flushed.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// State returns the current state.
func (w *Writer) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Append adds doc to the pending batch and flushes when the batch reaches
// capacity. If a previous flush failed and the batch is still full, the
// batch is flushed first and doc is rejected when that flush fails again.
// On an automatic flush failure doc stays pending with the rest.
func (w *Writer) Append(ctx context.Context, doc solr.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) >= w.size {
		if err := w.flushLocked(ctx); err != nil {
			return err
		}
	}

	w.pending = append(w.pending, doc)
	w.state = StateAccumulating

	if len(w.pending) >= w.size {
		return w.flushLocked(ctx)
	}
	return nil
}

// Flush submits all pending documents as one batch. Pending documents are
// cleared only when the store accepts the batch.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *Writer) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}

	prev := w.state
	w.state = StateFlushing

	mode := "checked"
	var err error
	if w.over {
		err = w.client.Add(ctx, w.pending)
	} else {
		mode = "unchecked"
		req := &solr.UpdateRequest{Adds: make([]solr.AddCommand, 0, len(w.pending))}
		for _, doc := range w.pending {
			req.Add(doc, false)
		}
		err = w.client.Request(ctx, req)
	}

	if err != nil {
		w.state = prev
		metrics.CounterFlushFailures.Inc()
		w.logger.Error("Failed to flush batch",
			"collection", w.client.Collection(),
			"docs", len(w.pending),
			"mode", mode,
			"error", err,
		)
		return solr.NewError(solr.KindWrite, "flush", w.client.Collection(), err)
	}

	n := len(w.pending)
	w.pending = make([]solr.Document, 0, w.size)
	w.state = StateEmpty

	metrics.CounterFlushes.WithLabelValues(mode).Inc()
	metrics.CounterFlushedDocuments.Add(float64(n))
	w.logger.Debug("Flushed batch",
		"collection", w.client.Collection(),
		"docs", n,
		"mode", mode,
	)
	return nil
}

// Commit flushes pending documents and commits. If the flush succeeds but
// the commit fails, the flushed documents remain submitted and uncommitted.
func (w *Writer) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushLocked(ctx); err != nil {
		return err
	}
	if err := w.client.Commit(ctx); err != nil {
		w.logger.Error("Failed to commit",
			"collection", w.client.Collection(),
			"error", err,
		)
		return solr.NewError(solr.KindWrite, "commit", w.client.Collection(), err)
	}
	w.state = StateCommitted
	metrics.CounterCommits.Inc()
	return nil
}

// Rollback discards pending documents and asks the store to discard
// uncommitted changes. Pending documents are discarded even when the store
// rejects the rollback. Earlier commits are not undone.
func (w *Writer) Rollback(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	discarded := len(w.pending)
	w.pending = make([]solr.Document, 0, w.size)
	w.state = StateRolledBack
	metrics.CounterRollbacks.Inc()

	if err := w.client.Rollback(ctx); err != nil {
		w.logger.Error("Failed to roll back",
			"collection", w.client.Collection(),
			"discarded", discarded,
			"error", err,
		)
		return solr.NewError(solr.KindWrite, "rollback", w.client.Collection(), err)
	}
	return nil
}

// Drop deletes every document of the collection and commits.
// Pending documents are kept.
func (w *Writer) Drop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	coll := w.client.Collection()
	if err := w.client.DeleteByQuery(ctx, solr.MatchAll); err != nil {
		return solr.NewError(solr.KindWrite, "drop", coll, err)
	}
	if err := w.client.Commit(ctx); err != nil {
		return solr.NewError(solr.KindWrite, "drop", coll, err)
	}
	metrics.CounterDrops.Inc()
	w.logger.Info("Dropped collection contents", "collection", coll)
	return nil
}
