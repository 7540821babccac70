package flight

import (
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/internal/msgpack"
	"github.com/hugr-lab/airport-solr/internal/recovery"
)

// PutResultMetadata is the MessagePack app metadata of a DoPut result.
type PutResultMetadata struct {
	RowsInserted int64  `msgpack:"rows_inserted"`
	Schema       string `msgpack:"schema"`
	Table        string `msgpack:"table"`
}

// DoPut writes the client's record batches into a table.
//
// The descriptor must be PATH type with [schema, table]. Batches must
// have the table's columns in order. With an airport-transaction-id header
// the table is enlisted in that transaction; otherwise it is committed when
// the stream ends and rolled back on failure.
func (s *Server) DoPut(stream flight.FlightService_DoPutServer) error {
	return recovery.RecoverToError(s.logger, "DoPut", func() error {
		return s.doPut(stream)
	})
}

func (s *Server) doPut(stream flight.FlightService_DoPutServer) error {
	ctx := withRequestMeta(stream.Context())
	logger := s.logger.With(logAttrs(ctx)...)

	msg, err := stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return status.Error(codes.InvalidArgument, "no descriptor received")
		}
		logger.Error("Failed to receive DoPut message", "error", err)
		return status.Errorf(codes.Internal, "failed to receive message: %v", err)
	}

	descriptor := msg.FlightDescriptor
	if descriptor == nil {
		return status.Error(codes.InvalidArgument, "missing flight descriptor")
	}
	if descriptor.GetType() != flight.DescriptorPATH || len(descriptor.GetPath()) != 2 {
		return status.Error(codes.InvalidArgument, "descriptor must be PATH type with [schema, table]")
	}
	schemaName, tableName := descriptor.GetPath()[0], descriptor.GetPath()[1]
	if err := auth.AuthorizeWrite(ctx, s.auth, tableName); err != nil {
		logger.Warn("Write refused", "table", tableName, "identity", auth.IdentityFromContext(ctx))
		return err
	}

	_, h, err := s.open(ctx, schemaName, tableName, nil)
	if err != nil {
		logger.Error("Failed to open table", "table", tableName, "error", err)
		return toStatus("open table", err)
	}

	reader, err := flight.NewRecordReader(newFlightDataReader(msg, stream), ipc.WithAllocator(s.allocator))
	if err != nil {
		logger.Error("Failed to create record reader", "error", err)
		return status.Errorf(codes.InvalidArgument, "failed to create reader: %v", err)
	}
	defer reader.Release()

	rows, err := s.ingest(ctx, h, reader, nil)
	if err != nil {
		logger.Error("DoPut failed", "table", tableName, "rows", rows, "error", err)
		return toStatus("write", err)
	}

	resultMetadata, err := msgpack.Encode(PutResultMetadata{
		RowsInserted: rows,
		Schema:       schemaName,
		Table:        tableName,
	})
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	if err := stream.Send(&flight.PutResult{AppMetadata: resultMetadata}); err != nil {
		logger.Error("Failed to send PutResult", "error", err)
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}

	logger.Debug("DoPut completed successfully", "table", tableName, "rows", rows)
	return nil
}

// doPutDataStream replays the first message of a DoPut stream before the
// rest, so flight.NewRecordReader sees the schema message.
type doPutDataStream struct {
	firstMsg  *flight.FlightData
	stream    flight.FlightService_DoPutServer
	firstSent bool
}

// Recv implements the DataStreamReader interface for flight.NewRecordReader.
func (s *doPutDataStream) Recv() (*flight.FlightData, error) {
	if !s.firstSent {
		s.firstSent = true
		return s.firstMsg, nil
	}
	return s.stream.Recv()
}

func newFlightDataReader(firstMsg *flight.FlightData, stream flight.FlightService_DoPutServer) flight.DataStreamReader {
	return &doPutDataStream{firstMsg: firstMsg, stream: stream}
}
