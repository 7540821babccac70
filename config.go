package airport

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/filter"
	"github.com/hugr-lab/airport-solr/registry"
)

// ServerConfig contains configuration for the Airport Flight server.
type ServerConfig struct {
	// Catalog provides the tables served.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Registry shares store connections between table handles.
	// REQUIRED: MUST NOT be nil.
	Registry *registry.Registry

	// TransactionManager enables the transaction actions. Writes carrying
	// an airport-transaction-id header are enlisted in the transaction.
	// OPTIONAL: If nil, every write commits on its own.
	TransactionManager catalog.TransactionManager

	// Translator renders pushed-down filters as store queries.
	// OPTIONAL: If nil, each handle uses a SolrEncoder with its column mapping.
	Translator filter.Translator

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string

	// SchemaName is the schema the tables are listed under.
	// OPTIONAL: Defaults to "main".
	SchemaName string

	// SplitSize is the number of rows served by one scan endpoint.
	// OPTIONAL: Defaults to 100000.
	SplitSize int
}

// Standard errors returned by airport package.
var (
	// ErrUnauthorized indicates authentication failed.
	// Return this from the validation function of BearerAuth for invalid tokens.
	ErrUnauthorized = auth.ErrUnauthenticated

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)
