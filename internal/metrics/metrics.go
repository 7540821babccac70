// Package metrics holds the Prometheus collectors of the write path, the
// connection registry and the Flight handlers. Collectors are registered
// with the default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "airport_solr"

const (
	MetricConnectionsCreated    = "connections_created_total"
	MetricConnectionFailures    = "connection_failures_total"
	MetricFlushes               = "flushes_total"
	MetricFlushedDocuments      = "flushed_documents_total"
	MetricFlushFailures         = "flush_failures_total"
	MetricCommits               = "commits_total"
	MetricRollbacks             = "rollbacks_total"
	MetricDrops                 = "drops_total"
	MetricQueries               = "queries_total"
	MetricQueryFailures         = "query_failures_total"
	MetricTransactionsCompleted = "transactions_completed_total"
	MetricHandlesOpened         = "handles_opened_total"
	MetricRowsStreamed          = "rows_streamed_total"
	MetricRowsReceived          = "rows_received_total"
	MetricPanics                = "panics_recovered_total"
)

var CounterConnectionsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricConnectionsCreated,
		Help:      "Connections created by the registry.",
	},
)

var CounterConnectionFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricConnectionFailures,
		Help:      "Failed connect handshakes.",
	},
)

// CounterFlushes is labeled by mode: "checked" or "unchecked".
var CounterFlushes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricFlushes,
		Help:      "Successful batch flushes.",
	},
	[]string{
		"mode",
	},
)

var CounterFlushedDocuments = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricFlushedDocuments,
		Help:      "Documents submitted by successful flushes.",
	},
)

var CounterFlushFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricFlushFailures,
		Help:      "Rejected flushes.",
	},
)

var CounterCommits = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricCommits,
		Help:      "Successful commits.",
	},
)

var CounterRollbacks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRollbacks,
		Help:      "Rollbacks issued.",
	},
)

var CounterDrops = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricDrops,
		Help:      "Collections emptied by drop.",
	},
)

// CounterQueries is labeled by kind: "count", "page" or "facet".
var CounterQueries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricQueries,
		Help:      "Select queries issued.",
	},
	[]string{
		"kind",
	},
)

var CounterQueryFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricQueryFailures,
		Help:      "Failed select queries.",
	},
)

// CounterTransactionsCompleted is labeled by outcome: "committed" or "rolled_back".
var CounterTransactionsCompleted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricTransactionsCompleted,
		Help:      "Transactions finished by the transaction manager.",
	},
	[]string{
		"outcome",
	},
)

var CounterHandlesOpened = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricHandlesOpened,
		Help:      "Table handles opened by Flight requests.",
	},
)

var CounterRowsStreamed = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRowsStreamed,
		Help:      "Rows sent to clients by DoGet.",
	},
)

var CounterRowsReceived = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRowsReceived,
		Help:      "Rows received from clients for writing.",
	},
)

// CounterPanics is labeled by the operation that panicked.
var CounterPanics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricPanics,
		Help:      "Panics recovered in request handlers.",
	},
	[]string{"operation"},
)

func init() {
	prometheus.MustRegister(CounterConnectionsCreated)
	prometheus.MustRegister(CounterConnectionFailures)
	prometheus.MustRegister(CounterFlushes)
	prometheus.MustRegister(CounterFlushedDocuments)
	prometheus.MustRegister(CounterFlushFailures)
	prometheus.MustRegister(CounterCommits)
	prometheus.MustRegister(CounterRollbacks)
	prometheus.MustRegister(CounterDrops)
	prometheus.MustRegister(CounterQueries)
	prometheus.MustRegister(CounterQueryFailures)
	prometheus.MustRegister(CounterTransactionsCompleted)
	prometheus.MustRegister(CounterHandlesOpened)
	prometheus.MustRegister(CounterRowsStreamed)
	prometheus.MustRegister(CounterRowsReceived)
	prometheus.MustRegister(CounterPanics)
}
