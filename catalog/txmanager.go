package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/table"
)

// DefaultRetention is how long finished transactions stay queryable.
const DefaultRetention = 10 * time.Minute

type transaction struct {
	mu       sync.Mutex
	state    TransactionState
	handles  []*table.Handle
	finished time.Time
}

// MemoryTransactionManager keeps transactions in memory. Finished
// transactions are forgotten after Retention.
type MemoryTransactionManager struct {
	// Retention of finished transactions; DefaultRetention when zero.
	Retention time.Duration

	mu     sync.Mutex
	txs    map[string]*transaction
	logger *slog.Logger
	now    func() time.Time
}

var _ TransactionManager = (*MemoryTransactionManager)(nil)

// NewTransactionManager creates an empty in-memory transaction manager.
func NewTransactionManager(logger *slog.Logger) *MemoryTransactionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryTransactionManager{
		txs:    make(map[string]*transaction),
		logger: logger,
		now:    time.Now,
	}
}

// BeginTransaction implements TransactionManager.
func (m *MemoryTransactionManager) BeginTransaction(ctx context.Context) (string, error) {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.txs[id] = &transaction{state: TransactionActive}
	m.logger.Debug("Transaction started", "tx_id", id)
	return id, nil
}

func (m *MemoryTransactionManager) pruneLocked() {
	retention := m.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := m.now().Add(-retention)
	for id, tx := range m.txs {
		tx.mu.Lock()
		expired := tx.state != TransactionActive && tx.finished.Before(cutoff)
		tx.mu.Unlock()
		if expired {
			delete(m.txs, id)
		}
	}
}

func (m *MemoryTransactionManager) get(txID string) (*transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
	}
	return tx, nil
}

// Enlist implements TransactionManager.
func (m *MemoryTransactionManager) Enlist(ctx context.Context, txID string, h *table.Handle) error {
	tx, err := m.get(txID)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != TransactionActive {
		return fmt.Errorf("%w: %s is %s", ErrTransactionFinished, txID, tx.state)
	}
	for _, e := range tx.handles {
		if e == h {
			return nil
		}
	}
	tx.handles = append(tx.handles, h)
	return nil
}

// CommitTransaction implements TransactionManager. Every handle is
// committed even after a failure; handles that failed are rolled back, the
// transaction is aborted and the first failure is returned.
func (m *MemoryTransactionManager) CommitTransaction(ctx context.Context, txID string) error {
	tx, err := m.get(txID)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	switch tx.state {
	case TransactionCommitted:
		return nil
	case TransactionAborted:
		return fmt.Errorf("%w: %s is %s", ErrTransactionFinished, txID, tx.state)
	}

	n := len(tx.handles)
	var first error
	for _, h := range tx.handles {
		if err := h.Commit(ctx); err != nil {
			m.logger.Error("Failed to commit enlisted table",
				"tx_id", txID,
				"collection", h.Collection(),
				"error", err,
			)
			if first == nil {
				first = err
			}
			if rbErr := h.Rollback(ctx); rbErr != nil {
				m.logger.Error("Failed to roll back enlisted table",
					"tx_id", txID,
					"collection", h.Collection(),
					"error", rbErr,
				)
			}
		}
	}

	m.finishLocked(tx, TransactionCommitted, first)
	if first != nil {
		return fmt.Errorf("commit transaction %s: %w", txID, first)
	}
	m.logger.Debug("Transaction committed", "tx_id", txID, "tables", n)
	return nil
}

// RollbackTransaction implements TransactionManager. Every handle is rolled
// back; the first failure is returned.
func (m *MemoryTransactionManager) RollbackTransaction(ctx context.Context, txID string) error {
	tx, err := m.get(txID)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	switch tx.state {
	case TransactionAborted:
		return nil
	case TransactionCommitted:
		return fmt.Errorf("%w: %s is %s", ErrTransactionFinished, txID, tx.state)
	}

	n := len(tx.handles)
	var first error
	for _, h := range tx.handles {
		if err := h.Rollback(ctx); err != nil {
			m.logger.Error("Failed to roll back enlisted table",
				"tx_id", txID,
				"collection", h.Collection(),
				"error", err,
			)
			if first == nil {
				first = err
			}
		}
	}

	m.finishLocked(tx, TransactionAborted, nil)
	if first != nil {
		return fmt.Errorf("rollback transaction %s: %w", txID, first)
	}
	m.logger.Debug("Transaction rolled back", "tx_id", txID, "tables", n)
	return nil
}

// finishLocked ends tx. A commit that failed ends as aborted.
func (m *MemoryTransactionManager) finishLocked(tx *transaction, state TransactionState, err error) {
	if err != nil {
		state = TransactionAborted
	}
	tx.state = state
	tx.finished = m.now()
	tx.handles = nil

	outcome := "committed"
	if state == TransactionAborted {
		outcome = "rolled_back"
	}
	metrics.CounterTransactionsCompleted.WithLabelValues(outcome).Inc()
}

// GetTransactionStatus implements TransactionManager.
func (m *MemoryTransactionManager) GetTransactionStatus(ctx context.Context, txID string) (TransactionState, bool) {
	tx, err := m.get(txID)
	if err != nil {
		return "", false
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state, true
}
