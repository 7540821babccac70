package airport_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/airport-solr/internal/msgpack"
	"github.com/hugr-lab/airport-solr/solr"
)

// TestCatalogDiscovery verifies that a client can discover the served
// tables.
func TestCatalogDiscovery(t *testing.T) {
	server := newTestServer(t, nil, nil)
	client := server.client(t)
	ctx := context.Background()

	t.Run("ListTables", func(t *testing.T) {
		stream, err := client.DoAction(ctx, &flight.Action{Type: "list_tables"})
		if err != nil {
			t.Fatalf("DoAction failed: %v", err)
		}
		res, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		var body struct {
			Tables []string `msgpack:"tables"`
		}
		if err := msgpack.Decode(res.GetBody(), &body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(body.Tables) != 2 || body.Tables[0] != "books" || body.Tables[1] != "shelves" {
			t.Errorf("Expected [books shelves], got %v", body.Tables)
		}
	})

	t.Run("TableSchema", func(t *testing.T) {
		info, err := client.GetFlightInfo(ctx, &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{"main", "books"},
		})
		if err != nil {
			t.Fatalf("GetFlightInfo failed: %v", err)
		}
		schema, err := flight.DeserializeSchema(info.GetSchema(), memory.DefaultAllocator)
		if err != nil {
			t.Fatalf("DeserializeSchema failed: %v", err)
		}
		if !schema.Equal(booksSchema) {
			t.Errorf("Expected schema %s, got %s", booksSchema, schema)
		}
	})
}

// TestWriteThenRead verifies that rows written through DoPut land in the
// store under their mapped fields and can be scanned back.
func TestWriteThenRead(t *testing.T) {
	server := newTestServer(t, nil, nil)
	client := server.client(t)
	ctx := context.Background()

	rec := bookBatch(memory.DefaultAllocator, "w", 250)
	defer rec.Release()
	if _, err := putBooks(ctx, client, rec); err != nil {
		t.Fatalf("DoPut failed: %v", err)
	}

	docs := server.stores["books"].Committed()
	if len(docs) != 250 {
		t.Fatalf("Expected 250 documents, got %d", len(docs))
	}
	if _, ok := docs[1]["title_t"]; !ok {
		t.Errorf("Expected mapped field 'title_t', got %v", docs[1])
	}
	if _, ok := docs[0]["pages_i"]; ok {
		t.Errorf("Expected null pages to be omitted, got %v", docs[0])
	}

	rows, err := scan(ctx, client, "books")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if rows != 250 {
		t.Errorf("Expected 250 rows, got %d", rows)
	}
}

// TestFacetTable verifies that a faceted table reads one row per value.
func TestFacetTable(t *testing.T) {
	server := newTestServer(t, nil, nil)
	server.stores["books"].Seed(
		solr.Document{"id": "1", "shelf_s": "a"},
		solr.Document{"id": "2", "shelf_s": "a"},
		solr.Document{"id": "3", "shelf_s": "b"},
		solr.Document{"id": "4", "shelf_s": "c"},
	)
	client := server.client(t)

	rows, err := scan(context.Background(), client, "shelves")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if rows != 3 {
		t.Errorf("Expected 3 shelves, got %d", rows)
	}
}

// TestTransactionAcrossWrites verifies that writes enlisted in one
// transaction become visible together on commit.
func TestTransactionAcrossWrites(t *testing.T) {
	server := newTestServer(t, nil, nil)
	client := server.client(t)
	ctx := context.Background()

	stream, err := client.DoAction(ctx, &flight.Action{Type: "create_transaction"})
	if err != nil {
		t.Fatalf("create_transaction failed: %v", err)
	}
	res, err := stream.Recv()
	if err != nil {
		t.Fatalf("create_transaction failed: %v", err)
	}
	var created struct {
		Identifier string `msgpack:"identifier"`
	}
	if err := msgpack.Decode(res.GetBody(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	txCtx := metadata.AppendToOutgoingContext(ctx, "airport-transaction-id", created.Identifier)
	for _, prefix := range []string{"t1", "t2"} {
		rec := bookBatch(memory.DefaultAllocator, prefix, 10)
		_, err := putBooks(txCtx, client, rec)
		rec.Release()
		if err != nil {
			t.Fatalf("DoPut %s failed: %v", prefix, err)
		}
	}
	if n := len(server.stores["books"].Committed()); n != 0 {
		t.Fatalf("Expected nothing visible before commit, got %d", n)
	}

	body, _ := msgpack.Encode(map[string]string{"identifier": created.Identifier})
	stream, err = client.DoAction(ctx, &flight.Action{Type: "commit_transaction", Body: body})
	if err != nil {
		t.Fatalf("commit_transaction failed: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("commit_transaction failed: %v", err)
	}
	if n := len(server.stores["books"].Committed()); n != 20 {
		t.Errorf("Expected 20 documents after commit, got %d", n)
	}
}
