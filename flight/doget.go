package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/internal/recovery"
	"github.com/hugr-lab/airport-solr/table"
)

// DoGet streams the rows of one split of a table.
//
// The handler:
//  1. Decodes the ticket to get the table, filter and split
//  2. Opens a handle of the table with the ticket's filter
//  3. Reads the split through a lazy cursor, one page per record batch
//  4. Streams record batches using Arrow IPC format
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	return recovery.RecoverToError(s.logger, "DoGet", func() error {
		return s.doGet(ticket, stream)
	})
}

func (s *Server) doGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := withRequestMeta(stream.Context())
	logger := s.logger.With(logAttrs(ctx)...)

	td, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		logger.Error("Failed to decode ticket", "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	logger.Debug("DoGet request",
		"schema", td.Schema,
		"table", td.Table,
		"start", td.Start,
		"count", td.Count,
		"has_filter", len(td.Filter) > 0,
	)

	_, h, err := s.open(ctx, td.Schema, td.Table, td.Filter)
	if err != nil {
		logger.Error("Failed to open table", "table", td.Table, "error", err)
		return toStatus("open table", err)
	}

	reader, err := table.NewReader(ctx, h, h.Cursor(td.Start, td.Count))
	if err != nil {
		return toStatus("scan", err)
	}
	defer reader.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(h.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batchCount := 0
	totalRows := int64(0)
	for reader.Next() {
		record := reader.RecordBatch()
		if err := writer.Write(record); err != nil {
			logger.Error("Failed to write record batch",
				"table", td.Table,
				"batch", batchCount,
				"error", err,
			)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batchCount, err)
		}
		batchCount++
		totalRows += record.NumRows()
		metrics.CounterRowsStreamed.Add(float64(record.NumRows()))
	}
	if err := reader.Err(); err != nil {
		logger.Error("Scan failed",
			"table", td.Table,
			"batches_sent", batchCount,
			"error", err,
		)
		return toStatus("scan", err)
	}

	logger.Debug("DoGet completed successfully",
		"table", td.Table,
		"batches_sent", batchCount,
		"total_rows", totalRows,
	)
	return nil
}
