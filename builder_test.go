package airport

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/solr"
	"github.com/hugr-lab/airport-solr/table"
)

var builderSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String},
	{Name: "title", Type: arrow.BinaryTypes.String},
}, nil)

func builderConfig(collection string) table.Config {
	return table.Config{
		ClusterLocator: "http://solr:8983/solr",
		Collection:     collection,
		Schema:         builderSchema,
	}
}

// TestCatalogBuilderBasic tests basic catalog building functionality.
func TestCatalogBuilderBasic(t *testing.T) {
	cat, err := NewCatalogBuilder().
		Table("movies", builderConfig("movies")).
		Build()
	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}
	if cat == nil {
		t.Fatal("Expected non-nil catalog")
	}

	def, err := cat.Table(context.Background(), "movies")
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if def == nil {
		t.Fatal("Expected table 'movies'")
	}
	if def.Config.QueryString != table.DefaultQuery {
		t.Errorf("Expected default query '%s', got '%s'", table.DefaultQuery, def.Config.QueryString)
	}
}

// TestCatalogBuilderOptions tests that table options reach the table config.
func TestCatalogBuilderOptions(t *testing.T) {
	cat, err := NewCatalogBuilder().
		Table("movies", builderConfig("movies")).
		Comment("Movie catalog").
		Query("type_s:movie").
		Columns("id", "title_t").
		BatchSize(50).
		Overwrite().
		RequireFilter("year").
		RequireFilter("genre").
		Table("titles", builderConfig("movies")).
		Facet("title").
		Build()
	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}

	ctx := context.Background()
	def, _ := cat.Table(ctx, "movies")
	if def == nil {
		t.Fatal("Expected table 'movies'")
	}
	cfg := def.Config
	if def.Comment != "Movie catalog" {
		t.Errorf("Expected comment 'Movie catalog', got '%s'", def.Comment)
	}
	if cfg.QueryString != "type_s:movie" {
		t.Errorf("Expected query 'type_s:movie', got '%s'", cfg.QueryString)
	}
	if cfg.FieldName(1) != "title_t" {
		t.Errorf("Expected field 'title_t', got '%s'", cfg.FieldName(1))
	}
	if cfg.BatchSize != 50 || !cfg.Overwrite {
		t.Errorf("Expected batch size 50 with overwrite, got %d/%v", cfg.BatchSize, cfg.Overwrite)
	}
	if len(cfg.RequiredFilterFields) != 2 {
		t.Errorf("Expected 2 required filter fields, got %v", cfg.RequiredFilterFields)
	}

	facet, _ := cat.Table(ctx, "titles")
	if facet == nil || facet.Config.FacetField != "title" {
		t.Errorf("Expected faceted table 'titles', got %+v", facet)
	}
	if facet != nil && len(facet.Config.Columns) != 0 {
		t.Errorf("Expected options of 'movies' not to leak, got columns %v", facet.Config.Columns)
	}
}

// TestCatalogBuilderErrors tests invalid catalogs.
func TestCatalogBuilderErrors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (catalog.Catalog, error)
		wantErr error
	}{
		{
			name: "empty table name",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Table("", builderConfig("movies")).Build()
			},
			wantErr: catalog.ErrInvalidTable,
		},
		{
			name: "duplicate table",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().
					Table("movies", builderConfig("movies")).
					Table("movies", builderConfig("films")).
					Build()
			},
			wantErr: catalog.ErrTableExists,
		},
		{
			name: "missing collection",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Table("movies", builderConfig("")).Build()
			},
			wantErr: solr.ErrConfiguration,
		},
		{
			name: "column count mismatch",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().
					Table("movies", builderConfig("movies")).
					Columns("id").
					Build()
			},
			wantErr: solr.ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestCatalogBuilderBuildOnce tests that Build can only be called once.
func TestCatalogBuilderBuildOnce(t *testing.T) {
	cb := NewCatalogBuilder()
	cb.Table("movies", builderConfig("movies"))
	if _, err := cb.Build(); err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	if _, err := cb.Build(); err == nil {
		t.Error("Expected error on second build")
	}
}

// TestCatalogBuilderEmpty tests that an empty catalog is valid.
func TestCatalogBuilderEmpty(t *testing.T) {
	cat, err := NewCatalogBuilder().Build()
	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}
	tables, err := cat.Tables(context.Background())
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Expected no tables, got %d", len(tables))
	}
}
