package catalog

import (
	"context"
	"errors"

	"github.com/hugr-lab/airport-solr/table"
)

// TransactionState represents the lifecycle stage of a transaction.
type TransactionState string

const (
	// TransactionActive indicates an open transaction accepting handles.
	TransactionActive TransactionState = "active"

	// TransactionCommitted indicates every enlisted handle committed.
	TransactionCommitted TransactionState = "committed"

	// TransactionAborted indicates a rolled-back or failed transaction.
	TransactionAborted TransactionState = "aborted"
)

var (
	// ErrTransactionNotFound is returned for an unknown transaction id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionFinished is returned when enlisting into, committing or
	// rolling back a transaction that already ended the other way.
	ErrTransactionFinished = errors.New("transaction already finished")
)

// TransactionManager coordinates writes of several table handles.
// The store has no distributed transactions: committing a transaction
// commits its handles one after another, so a failure part way leaves the
// earlier handles committed.
//
// Usage:
//   - Client calls create_transaction action to get a transaction ID
//   - Client includes transaction ID in the airport-transaction-id header
//     of DoPut calls; their handles are enlisted instead of committed
//   - Client calls commit_transaction or rollback_transaction
//
// Implementations MUST be goroutine-safe.
type TransactionManager interface {
	// BeginTransaction creates a new transaction and returns its unique ID.
	BeginTransaction(ctx context.Context) (txID string, err error)

	// Enlist adds h to an active transaction. Enlisting the same handle
	// twice has no effect.
	Enlist(ctx context.Context, txID string, h *table.Handle) error

	// CommitTransaction commits every enlisted handle in enlistment order.
	// Idempotent for committed transactions.
	CommitTransaction(ctx context.Context, txID string) error

	// RollbackTransaction rolls back every enlisted handle.
	// Idempotent for aborted transactions.
	RollbackTransaction(ctx context.Context, txID string) error

	// GetTransactionStatus returns the current state of a transaction.
	// Returns (state, true) if transaction exists, ("", false) otherwise.
	GetTransactionStatus(ctx context.Context, txID string) (TransactionState, bool)
}

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const transactionIDKey contextKey = iota

// WithTransactionID returns a new context with the transaction ID set.
func WithTransactionID(ctx context.Context, txID string) context.Context {
	return context.WithValue(ctx, transactionIDKey, txID)
}

// TransactionIDFromContext retrieves the transaction ID if present.
// Returns ("", false) if no transaction ID is set.
func TransactionIDFromContext(ctx context.Context) (string, bool) {
	txID, ok := ctx.Value(transactionIDKey).(string)
	if !ok || txID == "" {
		return "", false
	}
	return txID, true
}
