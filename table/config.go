package table

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-solr/solr"
)

const (
	// DefaultBatchSize is the write buffer capacity used when
	// Config.BatchSize is zero.
	DefaultBatchSize = 1000

	// DefaultQuery is the query used when Config.QueryString is empty.
	DefaultQuery = solr.MatchAll
)

// Config is the configuration of a table handle. A handle keeps its own
// copy; changing a Config after New has no effect on existing handles.
type Config struct {
	// REQUIRED: store address passed to the registry dialer.
	ClusterLocator string

	// REQUIRED: collection id. Handles with the same id share a connection.
	Collection string

	// OPTIONAL: query selecting the table's documents. Defaults to
	// DefaultQuery. Combined with text predicates pushed by the filter.
	QueryString string

	// OPTIONAL: store field name for every schema column, by position.
	// Empty means the schema field names are used.
	Columns []string

	// REQUIRED: Arrow schema of the table rows.
	Schema *arrow.Schema

	// OPTIONAL: field to facet on. A faceted table reads (value, count)
	// rows into the first two schema columns instead of documents.
	FacetField string

	// OPTIONAL: write buffer capacity. Defaults to DefaultBatchSize.
	BatchSize int

	// OPTIONAL: replace documents with the same unique key instead of
	// appending duplicates.
	Overwrite bool

	// OPTIONAL: field document pages are ordered by, ascending. Set it to
	// the collection's unique key so split endpoints page over a stable
	// order. Empty keeps the store's default order.
	SortField string

	// OPTIONAL: fields every read must be filtered on.
	RequiredFilterFields []string

	// OPTIONAL: DuckDB filter pushdown JSON.
	Filter []byte
}

// WithDefaults returns c with unset optional fields filled in.
func (c Config) WithDefaults() Config {
	if c.QueryString == "" {
		c.QueryString = DefaultQuery
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Validate reports the first configuration problem as a
// solr.KindConfiguration error.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return solr.Errorf(solr.KindConfiguration, "configure", c.Collection, format, args...)
	}
	if c.Collection == "" {
		return fail("collection is required")
	}
	if c.ClusterLocator == "" {
		return fail("cluster locator is required")
	}
	if c.Schema == nil || c.Schema.NumFields() == 0 {
		return fail("schema with at least one column is required")
	}
	if c.BatchSize < 0 {
		return fail("batch size must be positive, got %d", c.BatchSize)
	}
	if len(c.Columns) != 0 && len(c.Columns) != c.Schema.NumFields() {
		return fail("got %d column names for %d schema columns", len(c.Columns), c.Schema.NumFields())
	}
	seen := make(map[string]struct{}, c.Schema.NumFields())
	for i := range c.Schema.NumFields() {
		name := c.FieldName(i)
		if name == "" {
			return fail("column %d has no field name", i)
		}
		if _, dup := seen[name]; dup {
			return fail("field %q is mapped twice", name)
		}
		seen[name] = struct{}{}
	}
	if c.FacetField != "" && c.Schema.NumFields() < 2 {
		return fail("facet field %q needs a value and a count column", c.FacetField)
	}
	return nil
}

// FieldName returns the store field of schema column i.
func (c Config) FieldName(i int) string {
	if len(c.Columns) > i {
		return c.Columns[i]
	}
	return c.Schema.Field(i).Name
}

// FieldNames returns the store fields of every schema column.
func (c Config) FieldNames() []string {
	names := make([]string, c.Schema.NumFields())
	for i := range names {
		names[i] = c.FieldName(i)
	}
	return names
}
