package table

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeometryExtensionType is the Arrow extension type of geometry columns.
// Values are WKB in a Binary column, the layout DuckDB spatial reads as
// GEOMETRY. The store keeps geometries as WKT strings.
type GeometryExtensionType struct {
	arrow.ExtensionBase
}

// NewGeometryExtensionType creates a geometry extension type.
func NewGeometryExtensionType() *GeometryExtensionType {
	return &GeometryExtensionType{
		ExtensionBase: arrow.ExtensionBase{
			Storage: arrow.BinaryTypes.Binary,
		},
	}
}

// GeometryArray holds WKB values.
type GeometryArray struct {
	array.ExtensionArrayBase
}

func (g *GeometryExtensionType) ArrayType() reflect.Type {
	return reflect.TypeOf(GeometryArray{})
}

// ExtensionName returns "geoarrow.wkb".
func (g *GeometryExtensionType) ExtensionName() string {
	return "geoarrow.wkb"
}

func (g *GeometryExtensionType) String() string {
	return "extension<geoarrow.wkb>"
}

func (g *GeometryExtensionType) Serialize() string {
	return ""
}

func (g *GeometryExtensionType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	if !arrow.TypeEqual(storageType, arrow.BinaryTypes.Binary) {
		return nil, fmt.Errorf("invalid storage type for geometry: %s (expected Binary)", storageType)
	}
	return NewGeometryExtensionType(), nil
}

func (g *GeometryExtensionType) ExtensionEquals(other arrow.ExtensionType) bool {
	_, ok := other.(*GeometryExtensionType)
	return ok
}

// geometryMetadata is the geoarrow field metadata.
type geometryMetadata struct {
	CRS      *crs   `json:"crs,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

type crs struct {
	ID struct {
		Authority string `json:"authority"`
		Code      int    `json:"code"`
	} `json:"id"`
}

// NewGeometryField creates a geometry column. srid 0 omits the CRS.
func NewGeometryField(name string, nullable bool, srid int) arrow.Field {
	extType := NewGeometryExtensionType()

	meta := geometryMetadata{Encoding: "WKB"}
	if srid != 0 {
		meta.CRS = &crs{}
		meta.CRS.ID.Authority = "EPSG"
		meta.CRS.ID.Code = srid
	}
	metaJSON, _ := json.Marshal(meta)

	return arrow.Field{
		Name:     name,
		Type:     extType,
		Nullable: nullable,
		Metadata: arrow.MetadataFrom(map[string]string{
			"ARROW:extension:name":     extType.ExtensionName(),
			"ARROW:extension:metadata": string(metaJSON),
			"srid":                     strconv.Itoa(srid),
		}),
	}
}

// IsGeometry reports whether dt is the geometry extension type.
func IsGeometry(dt arrow.DataType) bool {
	_, ok := dt.(*GeometryExtensionType)
	return ok
}

// wkbToWKT converts a stored column value to the store representation.
func wkbToWKT(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("cannot decode empty WKB data")
	}
	geom, err := wkb.Unmarshal(b)
	if err != nil {
		return "", err
	}
	return wkt.MarshalString(geom), nil
}

// wktToWKB parses a store value into column bytes.
func wktToWKB(s string) ([]byte, error) {
	geom, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, err
	}
	if err := validateGeometry(geom); err != nil {
		return nil, err
	}
	return wkb.Marshal(geom)
}

func validateGeometry(geom orb.Geometry) error {
	switch g := geom.(type) {
	case nil:
		return fmt.Errorf("geometry is nil")
	case orb.LineString:
		if len(g) < 2 {
			return fmt.Errorf("linestring must have at least 2 points, has %d", len(g))
		}
	case orb.Polygon:
		if len(g) == 0 {
			return fmt.Errorf("polygon has no rings")
		}
		for i, ring := range g {
			if len(ring) < 4 {
				return fmt.Errorf("polygon ring %d must have at least 4 points, has %d", i, len(ring))
			}
			if !ring[0].Equal(ring[len(ring)-1]) {
				return fmt.Errorf("polygon ring %d is not closed", i)
			}
		}
	case orb.MultiPolygon:
		for i, p := range g {
			if err := validateGeometry(p); err != nil {
				return fmt.Errorf("multipolygon[%d]: %w", i, err)
			}
		}
	case orb.Collection:
		for i, c := range g {
			if err := validateGeometry(c); err != nil {
				return fmt.Errorf("collection[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func init() {
	_ = arrow.RegisterExtensionType(NewGeometryExtensionType())
}
