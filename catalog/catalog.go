// Package catalog names the tables a server exposes and coordinates
// transactions spanning several table handles.
//
// A Catalog only describes tables: each TableDef carries the table.Config
// a handle is opened from. Handles themselves are opened per request by the
// Flight layer, so many handles of one table may be alive at once.
package catalog

import (
	"context"
	"errors"

	"github.com/hugr-lab/airport-solr/table"
)

var (
	// ErrTableExists is returned when a catalog is built with two tables of
	// the same name.
	ErrTableExists = errors.New("table already exists")
	// ErrInvalidTable is returned for a table definition without a name or
	// with an invalid configuration.
	ErrInvalidTable = errors.New("invalid table definition")
)

// Catalog lists the tables a server exposes.
// Implementations MUST be goroutine-safe.
type Catalog interface {
	// Tables returns every table, ordered by name.
	// Returns empty slice (not nil) if no tables are defined.
	Tables(ctx context.Context) ([]TableDef, error)

	// Table returns the named table.
	// Returns (nil, nil) if the table doesn't exist (not an error).
	Table(ctx context.Context, name string) (*TableDef, error)
}

// TableDef binds a table name to the configuration its handles are
// opened with.
type TableDef struct {
	Name    string
	Comment string
	Config  table.Config
}
