package catalog

import (
	"context"
	"fmt"
	"sort"
)

// staticCatalog is an immutable catalog built from a fixed list of tables.
type staticCatalog struct {
	tables map[string]*TableDef
	names  []string
}

// NewStatic creates a catalog holding defs. Every definition is validated
// with its defaults applied; names must be unique and non-empty.
func NewStatic(defs ...TableDef) (Catalog, error) {
	c := &staticCatalog{
		tables: make(map[string]*TableDef, len(defs)),
		names:  make([]string, 0, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: table name is required", ErrInvalidTable)
		}
		if _, ok := c.tables[def.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrTableExists, def.Name)
		}
		def.Config = def.Config.WithDefaults()
		if err := def.Config.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTable, def.Name, err)
		}
		c.tables[def.Name] = &def
		c.names = append(c.names, def.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Tables implements Catalog interface.
func (c *staticCatalog) Tables(ctx context.Context) ([]TableDef, error) {
	result := make([]TableDef, 0, len(c.names))
	for _, name := range c.names {
		result = append(result, *c.tables[name])
	}
	return result, nil
}

// Table implements Catalog interface.
func (c *staticCatalog) Table(ctx context.Context, name string) (*TableDef, error) {
	def, ok := c.tables[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	cp := *def
	return &cp, nil
}
