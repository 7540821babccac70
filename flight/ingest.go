package flight

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/internal/recovery"
	"github.com/hugr-lab/airport-solr/table"
)

// recordSource is the part of a Flight record reader ingest consumes.
type recordSource interface {
	Next() bool
	RecordBatch() arrow.RecordBatch
	Err() error
}

// ingest saves every batch of src through h. onBatch, when set, is called
// with each saved batch.
//
// Inside a transaction (a transaction id in ctx and a configured manager)
// h is enlisted and its documents are flushed but not committed; a failure
// rolls the whole transaction back. Outside a transaction the handle is
// committed on success and rolled back on failure.
func (s *Server) ingest(ctx context.Context, h *table.Handle, src recordSource, onBatch func(arrow.RecordBatch) error) (int64, error) {
	txID, inTx := catalog.TransactionIDFromContext(ctx)
	inTx = inTx && s.txManager != nil
	logger := s.logger.With(logAttrs(ctx)...).With("collection", h.Collection())

	if inTx {
		if err := s.txManager.Enlist(ctx, txID, h); err != nil {
			return 0, err
		}
	}

	var rows int64
	err := func() error {
		for src.Next() {
			rec := src.RecordBatch()
			n, err := h.SaveRecord(ctx, rec)
			rows += n
			metrics.CounterRowsReceived.Add(float64(n))
			if err != nil {
				return err
			}
			if onBatch != nil {
				if err := onBatch(rec); err != nil {
					return err
				}
			}
		}
		if err := src.Err(); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if inTx {
			return h.Flush(ctx)
		}
		return h.Commit(ctx)
	}()
	if err != nil {
		s.abort(ctx, logger, h, txID, inTx)
		return rows, err
	}

	logger.Debug("Rows saved", "rows", rows, "in_transaction", inTx)
	return rows, nil
}

// abort rolls back after a failed write, even when the request was
// canceled. Rollback failures are logged; the write error is what the
// client sees.
func (s *Server) abort(ctx context.Context, logger *slog.Logger, h *table.Handle, txID string, inTx bool) {
	ctx = context.WithoutCancel(ctx)
	recovery.Recover(logger, "rollback", func() {
		var err error
		if inTx {
			err = s.txManager.RollbackTransaction(ctx, txID)
		} else {
			err = h.Rollback(ctx)
		}
		if err != nil {
			logger.Error("Rollback after failed write failed", "error", err)
		}
	})
}
