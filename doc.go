// Package airport serves document store collections to DuckDB through the
// Airport extension's Arrow Flight protocol.
//
// Each catalog table is a view of one collection: a query selecting its
// documents, an Arrow schema and a mapping of columns to fields. Reads are
// split into row ranges served by lazy cursors; writes are buffered per
// table handle and submitted in batches, then committed or rolled back.
// Handles of the same collection share a single connection held by a
// registry.Registry.
//
// # Quick Start
//
//	reg := registry.New(registry.SolrDialer(solr.Config{}))
//
//	movieSchema := arrow.NewSchema([]arrow.Field{
//	    {Name: "id", Type: arrow.BinaryTypes.String},
//	    {Name: "title", Type: arrow.BinaryTypes.String},
//	    {Name: "year", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
//	}, nil)
//
//	cat, err := airport.NewCatalogBuilder().
//	    Table("movies", table.Config{
//	        ClusterLocator: "http://localhost:8983/solr",
//	        Collection:     "movies",
//	        Schema:         movieSchema,
//	    }).
//	    Columns("id", "title_t", "year_i").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := airport.ServerConfig{
//	    Catalog:            cat,
//	    Registry:           reg,
//	    TransactionManager: catalog.NewTransactionManager(nil),
//	}
//	grpcServer := grpc.NewServer(airport.ServerOptions(config)...)
//	if err := airport.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// From DuckDB:
//
//	ATTACH 'grpc://localhost:50051' AS solr (TYPE airport);
//	SELECT title FROM solr.main.movies WHERE year > 2000;
//
// # Server Lifecycle
//
// The package registers Flight service handlers on a user-provided grpc.Server
// but does NOT manage server lifecycle (start/stop/listen). This gives users
// full control over:
//   - TLS configuration via grpc.Creds()
//   - Server options and interceptors
//   - Graceful shutdown via grpcServer.GracefulStop()
//
// # Transactions
//
// Without a TransactionManager every DoPut commits its rows when the stream
// ends. With one, a client can create a transaction, send its id in the
// airport-transaction-id header of several writes and commit or roll them
// back together. The store has no distributed commit: handles commit one
// after another.
//
// # Authentication
//
// Bearer token authentication is supported via BearerAuth and StaticTokens:
//
//	config.Auth = airport.StaticTokens(map[string]string{
//	    "secret-api-key": "etl",
//	})
//
// # Logging
//
// Every component logs through log/slog. ServerConfig.Logger wins over
// ServerConfig.LogLevel; with neither, slog.Default() is used.
//
// # Memory Management
//
// Arrow uses manual reference counting. Record batches received by DoPut
// are converted to documents before they are released; readers release
// each batch when they advance.
package airport
