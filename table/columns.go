package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// ColumnDef declares one table column in configuration files.
type ColumnDef struct {
	Name string `toml:"name"`
	// Type is one of the names accepted by ParseType.
	Type string `toml:"type"`
	// Field is the store field; empty means Name.
	Field    string `toml:"field"`
	Nullable bool   `toml:"nullable"`
	// SRID of geometry columns.
	SRID int `toml:"srid"`
}

var scalarTypes = map[string]arrow.DataType{
	"bool":      arrow.FixedWidthTypes.Boolean,
	"boolean":   arrow.FixedWidthTypes.Boolean,
	"int8":      arrow.PrimitiveTypes.Int8,
	"int16":     arrow.PrimitiveTypes.Int16,
	"int32":     arrow.PrimitiveTypes.Int32,
	"int":       arrow.PrimitiveTypes.Int32,
	"int64":     arrow.PrimitiveTypes.Int64,
	"long":      arrow.PrimitiveTypes.Int64,
	"uint8":     arrow.PrimitiveTypes.Uint8,
	"uint16":    arrow.PrimitiveTypes.Uint16,
	"uint32":    arrow.PrimitiveTypes.Uint32,
	"uint64":    arrow.PrimitiveTypes.Uint64,
	"float32":   arrow.PrimitiveTypes.Float32,
	"float":     arrow.PrimitiveTypes.Float32,
	"float64":   arrow.PrimitiveTypes.Float64,
	"double":    arrow.PrimitiveTypes.Float64,
	"string":    arrow.BinaryTypes.String,
	"text":      arrow.BinaryTypes.String,
	"binary":    arrow.BinaryTypes.Binary,
	"date":      arrow.FixedWidthTypes.Date32,
	"timestamp": &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"},
}

// ParseType returns the Arrow type named by s: a scalar name such as
// "int64", "string" or "timestamp", "geometry", or "[]" followed by a
// scalar name for multi-valued fields.
func ParseType(s string) (arrow.DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if elem, ok := strings.CutPrefix(s, "[]"); ok {
		dt, ok := scalarTypes[elem]
		if !ok {
			return nil, fmt.Errorf("unknown list element type %q", elem)
		}
		return arrow.ListOf(dt), nil
	}
	if s == "geometry" {
		return NewGeometryExtensionType(), nil
	}
	dt, ok := scalarTypes[s]
	if !ok {
		return nil, fmt.Errorf("unknown column type %q", s)
	}
	return dt, nil
}

// SchemaFromColumns builds a table schema and the store field of every
// column.
func SchemaFromColumns(defs []ColumnDef) (*arrow.Schema, []string, error) {
	fields := make([]arrow.Field, 0, len(defs))
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, nil, fmt.Errorf("column without name")
		}
		dt, err := ParseType(d.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", d.Name, err)
		}
		if IsGeometry(dt) {
			fields = append(fields, NewGeometryField(d.Name, d.Nullable, d.SRID))
		} else {
			fields = append(fields, arrow.Field{Name: d.Name, Type: dt, Nullable: d.Nullable})
		}
		field := d.Field
		if field == "" {
			field = d.Name
		}
		names = append(names, field)
	}
	return arrow.NewSchema(fields, nil), names, nil
}
