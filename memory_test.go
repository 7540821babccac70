package airport_test

import (
	"context"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestMemoryLeaks uses memory.NewCheckedAllocator to detect memory leaks.
// This test ensures that all Arrow objects built by the server are
// released once its handlers return.
func TestMemoryLeaks(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	server := newTestServer(t, nil, allocator)
	client := server.client(t)
	ctx := context.Background()

	rec := bookBatch(memory.DefaultAllocator, "m", 300)
	defer rec.Release()

	if _, err := putBooks(ctx, client, rec); err != nil {
		t.Fatalf("DoPut failed: %v", err)
	}
	rows, err := scan(ctx, client, "books")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if rows != 300 {
		t.Errorf("Expected 300 rows, got %d", rows)
	}

	server.grpcServer.GracefulStop()
	allocator.AssertSize(t, 0)
}

// TestMemoryLeaksInConcurrentScans scans the same table from many
// goroutines.
func TestMemoryLeaksInConcurrentScans(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	server := newTestServer(t, nil, allocator)
	client := server.client(t)
	ctx := context.Background()

	rec := bookBatch(memory.DefaultAllocator, "c", 120)
	defer rec.Release()
	if _, err := putBooks(ctx, client, rec); err != nil {
		t.Fatalf("DoPut failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := scan(ctx, client, "books")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Scan failed: %v", err)
		}
	}

	server.grpcServer.GracefulStop()
	allocator.AssertSize(t, 0)
}

// TestNoMemoryLeaksWithErrors verifies failed writes release their batches.
func TestNoMemoryLeaksWithErrors(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	server := newTestServer(t, nil, allocator)
	server.stores["books"].FailOn("request", nil)
	client := server.client(t)

	rec := bookBatch(memory.DefaultAllocator, "e", 150)
	defer rec.Release()
	_, err := putBooks(context.Background(), client, rec)
	if status.Code(err) != codes.Internal {
		t.Errorf("Expected Internal, got %v", err)
	}

	server.grpcServer.GracefulStop()
	allocator.AssertSize(t, 0)
}
