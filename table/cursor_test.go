package table

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-solr/internal/solrtest"
	"github.com/hugr-lab/airport-solr/solr"
)

func seedBooks(fake *solrtest.Client, n int) {
	for i := range n {
		fake.Seed(solr.Document{
			"id":    fmt.Sprintf("%d", i),
			"title": fmt.Sprintf("book %d", i),
			"year":  1950 + i,
		})
	}
}

func readAll(t *testing.T, rdr array.RecordReader) (batches []int64, ids []string) {
	t.Helper()
	defer rdr.Release()
	for rdr.Next() {
		rec := rdr.RecordBatch()
		batches = append(batches, rec.NumRows())
		col := rec.Column(0).(*array.String)
		for i := 0; i < col.Len(); i++ {
			ids = append(ids, col.Value(i))
		}
	}
	if err := rdr.Err(); err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	return batches, ids
}

func TestReaderPaging(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		start     int
		count     int
		batches   []int64
		first     string
	}{
		{"all documents", 4, 0, 0, []int64{4, 4, 2}, "0"},
		{"bounded count", 4, 0, 6, []int64{4, 2}, "0"},
		{"offset", 4, 7, 0, []int64{3}, "7"},
		{"offset and count", 3, 2, 5, []int64{3, 2}, "2"},
		{"exact pages", 5, 0, 0, []int64{5, 5}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := booksConfig()
			cfg.BatchSize = tt.batchSize
			h, fake := openHandle(t, cfg)
			seedBooks(fake, 10)

			rdr, err := NewReader(context.Background(), h, h.Cursor(tt.start, tt.count))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			batches, ids := readAll(t, rdr)
			if fmt.Sprint(batches) != fmt.Sprint(tt.batches) {
				t.Errorf("expected batches %v, got %v", tt.batches, batches)
			}
			if len(ids) == 0 || ids[0] != tt.first {
				t.Errorf("expected first id '%s', got %v", tt.first, ids)
			}
		})
	}
}

func TestReaderSortField(t *testing.T) {
	tests := []struct {
		name   string
		sort   string
		expect string
	}{
		{"store order", "", ""},
		{"unique key", "id", "id asc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := booksConfig()
			cfg.BatchSize = 2
			cfg.SortField = tt.sort
			h, fake := openHandle(t, cfg)
			seedBooks(fake, 3)

			rdr, err := NewReader(context.Background(), h, h.Cursor(0, 0))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			readAll(t, rdr)
			calls := fake.CallsOf("query")
			if len(calls) == 0 {
				t.Fatal("expected a query")
			}
			for _, c := range calls {
				if c.Sort != tt.expect {
					t.Errorf("expected sort '%s', got '%s'", tt.expect, c.Sort)
				}
			}
		})
	}
}

func TestCursorFacetIgnoresSort(t *testing.T) {
	cfg := booksConfig()
	cfg.SortField = "id"
	cfg.FacetField = "title"
	h, _ := openHandle(t, cfg)
	if cur := h.Cursor(0, 0); cur.Sort != "" {
		t.Errorf("expected no sort for a faceted table, got '%s'", cur.Sort)
	}
}

func TestReaderIsLazy(t *testing.T) {
	cfg := booksConfig()
	cfg.BatchSize = 2
	h, fake := openHandle(t, cfg)
	seedBooks(fake, 6)

	rdr, err := NewReader(context.Background(), h, h.Cursor(0, 0))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer rdr.Release()
	if n := len(fake.CallsOf("query")); n != 0 {
		t.Fatalf("expected no query before Next, got %d", n)
	}
	if !rdr.Next() {
		t.Fatal("expected a batch")
	}
	if n := len(fake.CallsOf("query")); n != 1 {
		t.Errorf("expected 1 query after first Next, got %d", n)
	}
}

func TestReaderValues(t *testing.T) {
	h, fake := openHandle(t, booksConfig())
	fake.Seed(
		solr.Document{"id": "1", "title": []any{"Dune", "Dune (1965)"}, "year": "1965"},
		solr.Document{"id": "2"},
	)

	rdr, err := NewReader(context.Background(), h, h.Cursor(0, 0))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer rdr.Release()
	if !rdr.Next() {
		t.Fatalf("expected a batch: %v", rdr.Err())
	}
	rec := rdr.RecordBatch()
	title := rec.Column(1).(*array.String)
	year := rec.Column(2).(*array.Int64)
	if title.Value(0) != "Dune" {
		t.Errorf("expected first value of multi-valued field, got '%s'", title.Value(0))
	}
	if year.Value(0) != 1965 {
		t.Errorf("expected 1965, got %d", year.Value(0))
	}
	if !title.IsNull(1) || !year.IsNull(1) {
		t.Error("expected nulls for missing fields")
	}
}

func TestReaderQueryFailure(t *testing.T) {
	h, fake := openHandle(t, booksConfig())
	seedBooks(fake, 3)
	fake.FailOn("query", nil)

	rdr, err := NewReader(context.Background(), h, h.Cursor(0, 0))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer rdr.Release()
	if rdr.Next() {
		t.Fatal("expected no batch")
	}
	if !errors.Is(rdr.Err(), solr.ErrRead) {
		t.Errorf("expected read error, got %v", rdr.Err())
	}
}

func TestReaderConversionFailure(t *testing.T) {
	h, fake := openHandle(t, booksConfig())
	fake.Seed(solr.Document{"id": "1", "year": "not a number"})

	rdr, err := NewReader(context.Background(), h, h.Cursor(0, 0))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer rdr.Release()
	if rdr.Next() {
		t.Fatal("expected no batch")
	}
	if !errors.Is(rdr.Err(), solr.ErrRead) {
		t.Errorf("expected read error, got %v", rdr.Err())
	}
}

func TestReaderCanceled(t *testing.T) {
	h, fake := openHandle(t, booksConfig())
	seedBooks(fake, 3)

	ctx, cancel := context.WithCancel(context.Background())
	rdr, err := NewReader(ctx, h, h.Cursor(0, 0))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer rdr.Release()
	cancel()
	if rdr.Next() {
		t.Fatal("expected no batch after cancel")
	}
	if !errors.Is(rdr.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", rdr.Err())
	}
}

func TestReaderFacets(t *testing.T) {
	cfg := booksConfig()
	cfg.FacetField = "genre"
	cfg.Schema = arrow.NewSchema([]arrow.Field{
		{Name: "genre", Type: arrow.BinaryTypes.String},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	h, fake := openHandle(t, cfg)
	fake.Seed(
		solr.Document{"id": "1", "genre": "scifi"},
		solr.Document{"id": "2", "genre": "drama"},
		solr.Document{"id": "3", "genre": "scifi"},
	)

	rdr, err := NewReader(context.Background(), h, h.Cursor(0, 100))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer rdr.Release()

	if !rdr.Next() {
		t.Fatalf("expected a batch: %v", rdr.Err())
	}
	rec := rdr.RecordBatch()
	if rec.NumRows() != 2 {
		t.Fatalf("expected 2 buckets, got %d", rec.NumRows())
	}
	values := rec.Column(0).(*array.String)
	counts := rec.Column(1).(*array.Int64)
	if values.Value(0) != "scifi" || counts.Value(0) != 2 {
		t.Errorf("expected scifi=2, got %s=%d", values.Value(0), counts.Value(0))
	}
	if values.Value(1) != "drama" || counts.Value(1) != 1 {
		t.Errorf("expected drama=1, got %s=%d", values.Value(1), counts.Value(1))
	}
	if rdr.Next() {
		t.Error("expected a single facet batch")
	}
	if n := len(fake.CallsOf("query")); n != 1 {
		t.Errorf("expected 1 facet query, got %d", n)
	}
}

func TestReaderAllocations(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	cfg := booksConfig()
	cfg.BatchSize = 3
	fake := solrtest.New("books")
	seedBooks(fake, 7)
	h, err := New(context.Background(), cfg, Options{Registry: fakeRegistry(fake), Allocator: mem})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rdr, err := NewReader(context.Background(), h, h.Cursor(0, 0))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	rows := int64(0)
	for rdr.Next() {
		rows += rdr.RecordBatch().NumRows()
	}
	rdr.Release()
	if rows != 7 {
		t.Errorf("expected 7 rows, got %d", rows)
	}
}
