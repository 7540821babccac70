package airport

import (
	"fmt"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/table"
)

// CatalogBuilder builds static catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	tables []*TableBuilder
	built  bool
}

// NewCatalogBuilder creates a new fluent catalog builder with no tables.
//
// Example:
//
//	cat, err := airport.NewCatalogBuilder().
//	    Table("movies", moviesConfig).
//	        Comment("Movie catalog").
//	        RequireFilter("year").
//	    Table("genres", genresConfig).
//	        Facet("genre_s").
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Table starts defining a table over a collection. The config is copied;
// the TableBuilder methods adjust the copy.
func (cb *CatalogBuilder) Table(name string, cfg table.Config) *TableBuilder {
	tb := &TableBuilder{
		def:     catalog.TableDef{Name: name, Config: cfg},
		catalog: cb,
	}
	cb.tables = append(cb.tables, tb)
	return tb
}

// Build finalizes the catalog and returns an immutable Catalog.
// Can only be called once.
// Returns error if the catalog is invalid: an empty or duplicate table
// name, or a table configuration that does not validate.
func (cb *CatalogBuilder) Build() (catalog.Catalog, error) {
	if cb.built {
		return nil, fmt.Errorf("catalog already built")
	}
	defs := make([]catalog.TableDef, 0, len(cb.tables))
	for _, tb := range cb.tables {
		defs = append(defs, tb.def)
	}
	cat, err := catalog.NewStatic(defs...)
	if err != nil {
		return nil, err
	}
	cb.built = true
	return cat, nil
}

// TableBuilder configures one table of a catalog.
// Not thread-safe - use only during initialization.
type TableBuilder struct {
	def     catalog.TableDef
	catalog *CatalogBuilder
}

// Comment sets optional table documentation.
func (tb *TableBuilder) Comment(comment string) *TableBuilder {
	tb.def.Comment = comment
	return tb
}

// Query sets the query selecting the table's documents.
func (tb *TableBuilder) Query(q string) *TableBuilder {
	tb.def.Config.QueryString = q
	return tb
}

// Columns maps every schema column, by position, to a store field.
func (tb *TableBuilder) Columns(fields ...string) *TableBuilder {
	tb.def.Config.Columns = fields
	return tb
}

// Facet makes the table read (value, count) rows of field.
func (tb *TableBuilder) Facet(field string) *TableBuilder {
	tb.def.Config.FacetField = field
	return tb
}

// BatchSize sets the write buffer capacity.
func (tb *TableBuilder) BatchSize(n int) *TableBuilder {
	tb.def.Config.BatchSize = n
	return tb
}

// Overwrite makes writes replace documents with the same unique key.
func (tb *TableBuilder) Overwrite() *TableBuilder {
	tb.def.Config.Overwrite = true
	return tb
}

// RequireFilter lists fields every read of the table must be filtered on.
func (tb *TableBuilder) RequireFilter(fields ...string) *TableBuilder {
	tb.def.Config.RequiredFilterFields = append(tb.def.Config.RequiredFilterFields, fields...)
	return tb
}

// Table starts the next table (returns to CatalogBuilder).
func (tb *TableBuilder) Table(name string, cfg table.Config) *TableBuilder {
	return tb.catalog.Table(name, cfg)
}

// Build finalizes the catalog (returns to CatalogBuilder).
// Same as calling catalogBuilder.Build().
func (tb *TableBuilder) Build() (catalog.Catalog, error) {
	return tb.catalog.Build()
}
