package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/solr"
)

var (
	// ErrTableNotFound is returned for a table missing from the catalog.
	ErrTableNotFound = errors.New("table not found")
	// ErrSchemaNotFound is returned for any schema other than the server's.
	ErrSchemaNotFound = errors.New("schema not found")
)

// statusCode maps an error to the gRPC code reported to the client.
func statusCode(err error) codes.Code {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st.Code()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrSchemaNotFound),
		errors.Is(err, catalog.ErrTransactionNotFound):
		return codes.NotFound
	case errors.Is(err, catalog.ErrTransactionFinished):
		return codes.FailedPrecondition
	}
	switch solr.KindOf(err) {
	case solr.KindConfiguration:
		return codes.InvalidArgument
	case solr.KindConnection:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// toStatus converts err into a gRPC status error prefixed with op.
// Status errors pass through unchanged.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Errorf(statusCode(err), "%s: %v", op, err)
}
