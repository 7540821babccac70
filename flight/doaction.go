package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/internal/msgpack"
	"github.com/hugr-lab/airport-solr/internal/recovery"
)

// DoAction executes server actions.
//
// Airport actions:
//   - list_schemas, endpoints, list_tables
//   - create_transaction, commit_transaction, rollback_transaction,
//     transaction_status
//
// Store actions:
//   - count: number of rows of a table matching an optional filter
//   - drop: deletes every row of a table
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	return recovery.RecoverToError(s.logger, "DoAction", func() error {
		return s.doAction(action, stream)
	})
}

func (s *Server) doAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := withRequestMeta(stream.Context())

	s.logger.Debug("DoAction called",
		append(logAttrs(ctx),
			"type", action.GetType(),
			"body_size", len(action.GetBody()),
		)...,
	)

	switch action.GetType() {
	case "list_schemas":
		return s.handleListSchemas(ctx, action, stream)
	case "endpoints":
		return s.handleEndpoints(ctx, action, stream)
	case "list_tables":
		return s.handleListTables(ctx, action, stream)
	case "count":
		return s.handleCount(ctx, action, stream)
	case "drop":
		return s.handleDrop(ctx, action, stream)
	case "create_transaction":
		return s.handleCreateTransaction(ctx, action, stream)
	case "commit_transaction":
		return s.handleFinishTransaction(ctx, action, stream, true)
	case "rollback_transaction":
		return s.handleFinishTransaction(ctx, action, stream, false)
	case "transaction_status":
		return s.handleTransactionStatus(ctx, action, stream)
	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
}

// sendResult encodes v as MessagePack and sends it as the action result.
func sendResult(stream flight.FlightService_DoActionServer, v any) error {
	body, err := msgpack.Encode(v)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}

// tableRequest names a table in the body of count and drop.
type tableRequest struct {
	Schema string `msgpack:"schema"`
	Table  string `msgpack:"table"`
	Filter string `msgpack:"filter"`
}

// decodeTableRequest decodes a tableRequest. The schema defaults to the
// served schema.
func (s *Server) decodeTableRequest(action *flight.Action) (tableRequest, error) {
	var req tableRequest
	if err := msgpack.Decode(action.GetBody(), &req); err != nil {
		return req, status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
	}
	if req.Table == "" {
		return req, status.Error(codes.InvalidArgument, "table is required")
	}
	if req.Schema == "" {
		req.Schema = s.schema
	}
	return req, nil
}

// handleListTables returns the table names of the schema.
//
// Request (optional): {"schema_name": "main"}
// Response: {"schema": "main", "tables": ["..."]}
func (s *Server) handleListTables(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var params struct {
		SchemaName string `msgpack:"schema_name"`
	}
	if err := msgpack.DecodeOptional(action.GetBody(), &params); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
	}
	if params.SchemaName != "" && params.SchemaName != s.schema {
		return status.Errorf(codes.NotFound, "schema not found: %s", params.SchemaName)
	}

	defs, err := s.catalog.Tables(ctx)
	if err != nil {
		return toStatus("list tables", err)
	}
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}

	s.logger.Debug("handleListTables completed", "schema", s.schema, "table_count", len(names))
	return sendResult(stream, map[string]any{
		"schema": s.schema,
		"tables": names,
	})
}

// handleCount returns the number of matching rows.
//
// Request: {"schema": "main", "table": "...", "filter": "<json>"}
// Response: {"count": n}
func (s *Server) handleCount(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	req, err := s.decodeTableRequest(action)
	if err != nil {
		return err
	}
	_, h, err := s.open(ctx, req.Schema, req.Table, []byte(req.Filter))
	if err != nil {
		return toStatus("open table", err)
	}
	n, err := h.Count(ctx)
	if err != nil {
		return toStatus("count", err)
	}
	return sendResult(stream, map[string]any{"count": n})
}

// handleDrop deletes every row of a table and commits.
//
// Request: {"schema": "main", "table": "..."}
// Response: {"dropped": true}
func (s *Server) handleDrop(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	req, err := s.decodeTableRequest(action)
	if err != nil {
		return err
	}
	if err := auth.AuthorizeWrite(ctx, s.auth, req.Table); err != nil {
		return err
	}
	_, h, err := s.open(ctx, req.Schema, req.Table, nil)
	if err != nil {
		return toStatus("open table", err)
	}
	if err := h.Drop(ctx); err != nil {
		return toStatus("drop", err)
	}
	s.logger.Info("Table dropped", append(logAttrs(ctx), "table", req.Table)...)
	return sendResult(stream, map[string]any{"dropped": true})
}
