package airport_test

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	airport "github.com/hugr-lab/airport-solr"
	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/internal/solrtest"
	"github.com/hugr-lab/airport-solr/registry"
	"github.com/hugr-lab/airport-solr/solr"
	"github.com/hugr-lab/airport-solr/table"
)

var booksSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String},
	{Name: "title", Type: arrow.BinaryTypes.String},
	{Name: "pages", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

// testServer is a running Airport server over in-memory collections.
type testServer struct {
	grpcServer *grpc.Server
	listener   net.Listener
	address    string
	stores     map[string]*solrtest.Client
}

// newTestServer starts a server with a "books" table (stored in the
// "books" collection under fields id, title_t, pages_i) and a "shelves"
// table faceting the books by shelf.
func newTestServer(t testing.TB, auth airport.Authenticator, alloc memory.Allocator) *testServer {
	t.Helper()

	stores := map[string]*solrtest.Client{"books": solrtest.New("books")}
	reg := registry.New(func(ctx context.Context, locator, collection string) (solr.Client, error) {
		return stores[collection], nil
	})

	cat, err := airport.NewCatalogBuilder().
		Table("books", table.Config{
			ClusterLocator: "http://solr:8983/solr",
			Collection:     "books",
			Schema:         booksSchema,
		}).
		Comment("Library books").
		Columns("id", "title_t", "pages_i").
		BatchSize(100).
		Table("shelves", table.Config{
			ClusterLocator: "http://solr:8983/solr",
			Collection:     "books",
			Schema: arrow.NewSchema([]arrow.Field{
				{Name: "shelf", Type: arrow.BinaryTypes.String},
				{Name: "books", Type: arrow.PrimitiveTypes.Int64},
			}, nil),
		}).
		Facet("shelf_s").
		Build()
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	config := airport.ServerConfig{
		Catalog:            cat,
		Registry:           reg,
		TransactionManager: catalog.NewTransactionManager(nil),
		Auth:               auth,
		Allocator:          alloc,
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Address:            lis.Addr().String(),
		SplitSize:          1000,
	}
	grpcServer := grpc.NewServer(airport.ServerOptions(config)...)
	if err := airport.NewServer(grpcServer, config); err != nil {
		t.Fatalf("Failed to register server: %v", err)
	}

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	s := &testServer{
		grpcServer: grpcServer,
		listener:   lis,
		address:    lis.Addr().String(),
		stores:     stores,
	}
	t.Cleanup(s.stop)
	return s
}

// stop stops the test server.
func (s *testServer) stop() {
	s.grpcServer.Stop()
	s.listener.Close()
}

func (s *testServer) client(t testing.TB) flight.Client {
	t.Helper()
	client, err := flight.NewClientWithMiddleware(s.address, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// bookBatch builds a batch of n books with ids prefix-0..prefix-(n-1).
func bookBatch(alloc memory.Allocator, prefix string, n int) arrow.RecordBatch {
	b := array.NewRecordBuilder(alloc, booksSchema)
	defer b.Release()
	for i := range n {
		b.Field(0).(*array.StringBuilder).Append(prefix + "-" + string(rune('a'+i%26)) + string(rune('a'+i/26%26)))
		b.Field(1).(*array.StringBuilder).Append("Title " + prefix)
		if i%5 == 0 {
			b.Field(2).AppendNull()
		} else {
			b.Field(2).(*array.Int32Builder).Append(int32(100 + i))
		}
	}
	return b.NewRecordBatch()
}

// putBooks writes rec to the books table and returns the server's response.
func putBooks(ctx context.Context, client flight.Client, rec arrow.RecordBatch) (*flight.PutResult, error) {
	stream, err := client.DoPut(ctx)
	if err != nil {
		return nil, err
	}
	w := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	w.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"main", "books"},
	})
	// A rejected request ends the stream early: sends then fail with io.EOF
	// and Recv reports the status.
	for _, send := range []func() error{
		func() error { return w.Write(rec) },
		w.Close,
		stream.CloseSend,
	} {
		if err := send(); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}
	return stream.Recv()
}

// scan reads every endpoint of a table and returns the number of rows.
func scan(ctx context.Context, client flight.Client, tableName string) (int64, error) {
	info, err := client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"main", tableName},
	})
	if err != nil {
		return 0, err
	}
	var rows int64
	for _, e := range info.GetEndpoint() {
		stream, err := client.DoGet(ctx, e.GetTicket())
		if err != nil {
			return rows, err
		}
		r, err := flight.NewRecordReader(stream)
		if err != nil {
			return rows, err
		}
		for r.Next() {
			rows += r.RecordBatch().NumRows()
		}
		err = r.Err()
		r.Release()
		if err != nil && err != io.EOF {
			return rows, err
		}
	}
	return rows, nil
}
