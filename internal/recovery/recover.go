// Package recovery keeps a panicking handler, such as one fed a malformed
// document or a faulty store client, from taking the server down.
package recovery

import (
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-solr/internal/metrics"
)

func logPanic(logger *slog.Logger, operation string, r any) {
	metrics.CounterPanics.WithLabelValues(operation).Inc()
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}

// RecoverToError runs fn and reports a panic as a codes.Internal error.
//
//	return recovery.RecoverToError(s.logger, "DoGet", func() error {
//	    return s.doGet(ticket, stream)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			err = status.Errorf(codes.Internal, "%s: internal error: %v", operation, r)
		}
	}()
	return fn()
}

// Recover runs a cleanup step whose panic is logged and swallowed.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
		}
	}()
	fn()
}
