// Package flight implements the Arrow Flight handlers of the server: scans
// stream table cursors, writes go through table handles, and the Airport
// actions expose the catalog, counts and transactions.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/filter"
	"github.com/hugr-lab/airport-solr/registry"
)

const (
	// DefaultSchemaName is the schema all catalog tables are listed under.
	DefaultSchemaName = "main"

	// DefaultSplitSize is the number of rows covered by one scan endpoint.
	DefaultSplitSize = 100_000
)

// Config holds the collaborators of a Server.
type Config struct {
	// REQUIRED: tables served.
	Catalog catalog.Catalog

	// REQUIRED: shared store connections.
	Registry *registry.Registry

	// OPTIONAL: enables the transaction actions and enlisting of writes.
	TxManager catalog.TransactionManager

	// OPTIONAL: filter translator passed to every handle.
	Translator filter.Translator

	// OPTIONAL: authenticator consulted for write authorization when it
	// implements auth.WriteAuthorizer.
	Auth auth.Authenticator

	// OPTIONAL: defaults to memory.DefaultAllocator.
	Allocator memory.Allocator

	// OPTIONAL: defaults to slog.Default().
	Logger *slog.Logger

	// OPTIONAL: public address put in endpoint locations.
	Address string

	// OPTIONAL: schema name; DefaultSchemaName when empty.
	SchemaName string

	// OPTIONAL: rows per scan endpoint; DefaultSplitSize when zero.
	SplitSize int
}

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	catalog    catalog.Catalog
	registry   *registry.Registry
	txManager  catalog.TransactionManager
	translator filter.Translator
	auth       auth.Authenticator
	allocator  memory.Allocator
	logger     *slog.Logger
	address    string
	schema     string
	splitSize  int
}

// NewServer creates a Flight server from cfg, filling in defaults.
func NewServer(cfg Config) *Server {
	s := &Server{
		catalog:    cfg.Catalog,
		registry:   cfg.Registry,
		txManager:  cfg.TxManager,
		translator: cfg.Translator,
		auth:       cfg.Auth,
		allocator:  cfg.Allocator,
		logger:     cfg.Logger,
		address:    cfg.Address,
		schema:     cfg.SchemaName,
		splitSize:  cfg.SplitSize,
	}
	if s.allocator == nil {
		s.allocator = memory.DefaultAllocator
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.schema == "" {
		s.schema = DefaultSchemaName
	}
	if s.splitSize <= 0 {
		s.splitSize = DefaultSplitSize
	}
	return s
}

// SchemaName returns the schema the tables are listed under.
func (s *Server) SchemaName() string { return s.schema }

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
