package airport_test

import (
	"context"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	airport "github.com/hugr-lab/airport-solr"
)

func testAuth() airport.Authenticator {
	return airport.StaticTokens(map[string]string{
		"valid-token": "reader",
		"admin-token": "admin",
	})
}

func listTables(ctx context.Context, client flight.Client) error {
	stream, err := client.DoAction(ctx, &flight.Action{Type: "list_tables"})
	if err != nil {
		return err
	}
	_, err = stream.Recv()
	return err
}

// TestAuthentication verifies that bearer token authentication works correctly.
func TestAuthentication(t *testing.T) {
	server := newTestServer(t, testAuth(), nil)
	client := server.client(t)

	tests := []struct {
		name  string
		token string
		code  codes.Code
	}{
		{"NoToken", "", codes.Unauthenticated},
		{"InvalidToken", "invalid-token", codes.Unauthenticated},
		{"ValidToken", "valid-token", codes.OK},
		{"AdminToken", "admin-token", codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.token != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tt.token)
			}
			err := listTables(ctx, client)
			if status.Code(err) != tt.code {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}
}

// TestAuthenticationUnary verifies that unary calls are authenticated too.
func TestAuthenticationUnary(t *testing.T) {
	server := newTestServer(t, testAuth(), nil)
	client := server.client(t)
	desc := &flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{"main", "books"}}

	if _, err := client.GetFlightInfo(context.Background(), desc); status.Code(err) != codes.Unauthenticated {
		t.Errorf("Expected Unauthenticated, got %v", err)
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer valid-token")
	if _, err := client.GetFlightInfo(ctx, desc); err != nil {
		t.Errorf("Expected success with valid token, got %v", err)
	}
}

// TestTokenValidation verifies concurrent authenticated requests.
func TestTokenValidation(t *testing.T) {
	server := newTestServer(t, testAuth(), nil)
	client := server.client(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := "valid-token"
			if i%2 == 0 {
				token = "admin-token"
			}
			ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
			errs <- listTables(ctx, client)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Expected success, got %v", err)
		}
	}
}

// TestReadOnlyIdentity verifies that a read-only identity can scan but
// not write.
func TestReadOnlyIdentity(t *testing.T) {
	server := newTestServer(t, airport.ReadOnly(testAuth(), "reader"), nil)
	client := server.client(t)
	bearer := func(token string) context.Context {
		return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
	}

	rec := bookBatch(memory.DefaultAllocator, "ro", 3)
	defer rec.Release()

	if _, err := putBooks(bearer("valid-token"), client, rec); status.Code(err) != codes.PermissionDenied {
		t.Errorf("Expected PermissionDenied for reader, got %v", err)
	}
	if _, err := putBooks(bearer("admin-token"), client, rec); err != nil {
		t.Fatalf("Expected admin write to succeed, got %v", err)
	}

	rows, err := scan(bearer("valid-token"), client, "books")
	if err != nil {
		t.Fatalf("Expected reader scan to succeed, got %v", err)
	}
	if rows != 3 {
		t.Errorf("Expected 3 rows, got %d", rows)
	}

	body, err := msgpack.Marshal(map[string]string{"table": "books"})
	if err != nil {
		t.Fatalf("Failed to encode action: %v", err)
	}
	stream, err := client.DoAction(bearer("valid-token"), &flight.Action{Type: "drop", Body: body})
	if err == nil {
		_, err = stream.Recv()
	}
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("Expected PermissionDenied for drop, got %v", err)
	}
}
