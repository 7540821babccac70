package airport

import (
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/grpc"

	"github.com/hugr-lab/airport-solr/auth"
	"github.com/hugr-lab/airport-solr/flight"
)

// NewServer registers the Airport Flight service handlers on the provided
// gRPC server.
//
// The function:
//  1. Validates the ServerConfig
//  2. Creates the Flight service implementation
//  3. Registers it on grpcServer
//
// Returns error if config is invalid (e.g., nil Catalog or Registry).
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// Example:
//
//	reg := registry.New(registry.SolrDialer(solr.Config{}))
//	cat, _ := airport.NewCatalogBuilder().
//	    Table("movies", table.Config{
//	        ClusterLocator: "http://solr:8983/solr",
//	        Collection:     "movies",
//	        Schema:         movieSchema,
//	    }).
//	    Build()
//	config := airport.ServerConfig{Catalog: cat, Registry: reg}
//	grpcServer := grpc.NewServer(airport.ServerOptions(config)...)
//	if err := airport.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := serverLogger(config)
	flightServer := flight.NewServer(flight.Config{
		Catalog:    config.Catalog,
		Registry:   config.Registry,
		TxManager:  config.TransactionManager,
		Translator: config.Translator,
		Auth:       config.Auth,
		Allocator:  config.Allocator,
		Logger:     logger,
		Address:    config.Address,
		SchemaName: config.SchemaName,
		SplitSize:  config.SplitSize,
	})
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("Airport Flight server registered",
		"schema", flightServer.SchemaName(),
		"has_auth", config.Auth != nil,
		"has_transactions", config.TransactionManager != nil,
		"max_message_size", config.MaxMessageSize,
	)
	return nil
}

// validateConfig checks that required ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if config.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if config.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	if config.SplitSize < 0 {
		return fmt.Errorf("split size must not be negative")
	}
	return nil
}

func serverLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with authentication interceptors.
// Use this when creating a gRPC server if you want authentication enabled.
//
// Example:
//
//	config := airport.ServerConfig{
//	    Catalog:  cat,
//	    Registry: reg,
//	    Auth:     airport.StaticTokens(map[string]string{"secret": "etl"}),
//	}
//	grpcServer := grpc.NewServer(airport.ServerOptions(config)...)
//	airport.NewServer(grpcServer, config)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	var opts []grpc.ServerOption

	if config.Auth != nil {
		opts = append(opts,
			grpc.UnaryInterceptor(auth.UnaryServerInterceptor(config.Auth)),
			grpc.StreamInterceptor(auth.StreamServerInterceptor(config.Auth)),
		)
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}
