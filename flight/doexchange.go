package flight

import (
	"errors"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/internal/msgpack"
	"github.com/hugr-lab/airport-solr/internal/recovery"
)

// AirportChangedFinalMetadata is the msgpack response for DML operations.
type AirportChangedFinalMetadata struct {
	TotalChanged uint64 `msgpack:"total_changed"`
}

// DoExchange handles INSERT statements of the Airport extension.
//
// Headers:
//   - airport-operation: "insert"; update and delete need row ids, which
//     the store does not have
//   - airport-flight-path: "schema/table"
//   - return-chunks: "1" to echo the inserted rows back (RETURNING)
//
// The client streams row batches; the server answers with the schema,
// optional RETURNING batches and a final metadata message with the number
// of inserted rows.
func (s *Server) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	return recovery.RecoverToError(s.logger, "DoExchange", func() error {
		return s.doExchange(stream)
	})
}

func (s *Server) doExchange(stream flight.FlightService_DoExchangeServer) error {
	ctx := withRequestMeta(stream.Context())
	logger := s.logger.With(logAttrs(ctx)...)

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Errorf(codes.InvalidArgument, "missing metadata")
	}
	operation := md.Get("airport-operation")
	if len(operation) == 0 {
		return status.Errorf(codes.InvalidArgument, "missing airport-operation header")
	}
	if operation[0] != "insert" {
		return status.Errorf(codes.Unimplemented, "unsupported airport-operation: %s", operation[0])
	}
	returnChunks := md.Get("return-chunks")
	returnData := len(returnChunks) > 0 && returnChunks[0] == "1"

	flightPath := md.Get("airport-flight-path")
	if len(flightPath) == 0 {
		return status.Errorf(codes.InvalidArgument, "missing airport-flight-path in metadata")
	}
	schemaName, tableName, ok := strings.Cut(flightPath[0], "/")
	if !ok || schemaName == "" || tableName == "" || strings.Contains(tableName, "/") {
		return status.Errorf(codes.InvalidArgument, "invalid flight path format: %s", flightPath[0])
	}

	logger.Debug("DoExchange insert requested",
		"schema", schemaName,
		"table", tableName,
		"return_data", returnData,
	)
	if err := auth.AuthorizeWrite(ctx, s.auth, tableName); err != nil {
		logger.Warn("Write refused", "table", tableName, "identity", auth.IdentityFromContext(ctx))
		return err
	}

	_, h, err := s.open(ctx, schemaName, tableName, nil)
	if err != nil {
		logger.Error("Failed to open table", "table", tableName, "error", err)
		return toStatus("open table", err)
	}

	inputReader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.allocator))
	if errors.Is(err, io.EOF) {
		return s.sendDMLFinalMetadata(stream, 0)
	}
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to create input record reader: %v", err)
	}
	defer inputReader.Release()

	writer := NewSchemaWriter(stream, inputReader.Schema(), s.allocator)
	defer writer.Close()
	if err := writer.Begin(); err != nil {
		return status.Errorf(codes.Internal, "failed to send output schema: %v", err)
	}

	var echo func(arrow.RecordBatch) error
	if returnData {
		echo = writer.Write
	}
	rows, err := s.ingest(ctx, h, inputReader, echo)
	if err != nil {
		logger.Error("INSERT failed", "table", tableName, "rows", rows, "error", err)
		return toStatus("insert", err)
	}

	logger.Debug("INSERT completed", "table", tableName, "total_rows", rows)
	return s.sendDMLFinalMetadata(stream, uint64(rows))
}

// sendDMLFinalMetadata sends the final metadata message for DML operations.
func (s *Server) sendDMLFinalMetadata(stream flight.FlightService_DoExchangeServer, totalChanged uint64) error {
	metadataBytes, err := msgpack.Encode(AirportChangedFinalMetadata{TotalChanged: totalChanged})
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode final metadata: %v", err)
	}
	return stream.Send(&flight.FlightData{AppMetadata: metadataBytes})
}
