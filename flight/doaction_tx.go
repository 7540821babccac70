package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/internal/msgpack"
)

// transactionRequest carries the transaction id of commit, rollback and
// status actions. The id may also come from the airport-transaction-id
// header.
type transactionRequest struct {
	Identifier string `msgpack:"identifier"`
}

func (s *Server) transactionID(ctx context.Context, action *flight.Action) (string, error) {
	var req transactionRequest
	if err := msgpack.DecodeOptional(action.GetBody(), &req); err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
	}
	if req.Identifier == "" {
		req.Identifier, _ = catalog.TransactionIDFromContext(ctx)
	}
	if req.Identifier == "" {
		return "", status.Error(codes.InvalidArgument, "transaction identifier is required")
	}
	return req.Identifier, nil
}

// handleCreateTransaction starts a transaction.
//
// Response: {"identifier": "<id>"}, or a nil identifier when the server
// has no transaction manager.
func (s *Server) handleCreateTransaction(ctx context.Context, _ *flight.Action, stream flight.FlightService_DoActionServer) error {
	if s.txManager == nil {
		s.logger.Debug("Transactions disabled, returning nil identifier")
		return sendResult(stream, map[string]any{"identifier": nil})
	}

	txID, err := s.txManager.BeginTransaction(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return toStatus("begin transaction", err)
	}

	s.logger.Debug("Transaction created", append(logAttrs(ctx), "transaction", txID)...)
	return sendResult(stream, map[string]any{"identifier": txID})
}

// handleFinishTransaction commits or rolls back a transaction.
//
// Request: {"identifier": "<id>"}
// Response: {"identifier": "<id>", "state": "committed"|"aborted"}
func (s *Server) handleFinishTransaction(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer, commit bool) error {
	if s.txManager == nil {
		return status.Error(codes.FailedPrecondition, "transactions are not enabled")
	}
	txID, err := s.transactionID(ctx, action)
	if err != nil {
		return err
	}

	op := "rollback transaction"
	if commit {
		op = "commit transaction"
		err = s.txManager.CommitTransaction(ctx, txID)
	} else {
		err = s.txManager.RollbackTransaction(ctx, txID)
	}
	if err != nil {
		s.logger.Error("Transaction finish failed",
			append(logAttrs(ctx), "transaction", txID, "commit", commit, "error", err)...,
		)
		return toStatus(op, err)
	}

	state, _ := s.txManager.GetTransactionStatus(ctx, txID)
	return sendResult(stream, map[string]any{
		"identifier": txID,
		"state":      string(state),
	})
}

// handleTransactionStatus reports the state of a transaction.
//
// Request: {"identifier": "<id>"}
// Response: {"state": "active"|"committed"|"aborted"|"", "exists": bool}
func (s *Server) handleTransactionStatus(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	if s.txManager == nil {
		return status.Error(codes.FailedPrecondition, "transactions are not enabled")
	}
	txID, err := s.transactionID(ctx, action)
	if err != nil {
		return err
	}
	state, exists := s.txManager.GetTransactionStatus(ctx, txID)
	return sendResult(stream, map[string]any{
		"state":  string(state),
		"exists": exists,
	})
}
