package filter

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// LogicalTypeID identifies a DuckDB data type.
type LogicalTypeID string

const (
	TypeIDBoolean      LogicalTypeID = "BOOLEAN"
	TypeIDTinyInt      LogicalTypeID = "TINYINT"
	TypeIDSmallInt     LogicalTypeID = "SMALLINT"
	TypeIDInteger      LogicalTypeID = "INTEGER"
	TypeIDBigInt       LogicalTypeID = "BIGINT"
	TypeIDUTinyInt     LogicalTypeID = "UTINYINT"
	TypeIDUSmallInt    LogicalTypeID = "USMALLINT"
	TypeIDUInteger     LogicalTypeID = "UINTEGER"
	TypeIDUBigInt      LogicalTypeID = "UBIGINT"
	TypeIDFloat        LogicalTypeID = "FLOAT"
	TypeIDDouble       LogicalTypeID = "DOUBLE"
	TypeIDDecimal      LogicalTypeID = "DECIMAL"
	TypeIDVarchar      LogicalTypeID = "VARCHAR"
	TypeIDChar         LogicalTypeID = "CHAR"
	TypeIDBlob         LogicalTypeID = "BLOB"
	TypeIDUUID         LogicalTypeID = "UUID"
	TypeIDDate         LogicalTypeID = "DATE"
	TypeIDTime         LogicalTypeID = "TIME"
	TypeIDTimestamp    LogicalTypeID = "TIMESTAMP"
	TypeIDTimestampTZ  LogicalTypeID = "TIMESTAMP_TZ"
	TypeIDTimestampSec LogicalTypeID = "TIMESTAMP_SEC"
	TypeIDTimestampMs  LogicalTypeID = "TIMESTAMP_MS"
	TypeIDTimestampNs  LogicalTypeID = "TIMESTAMP_NS"
	TypeIDList         LogicalTypeID = "LIST"
)

// aliases maps alternative spellings DuckDB may send to the IDs above.
var aliases = map[LogicalTypeID]LogicalTypeID{
	"TIMESTAMP WITH TIME ZONE":    TypeIDTimestampTZ,
	"TIMESTAMPTZ":                 TypeIDTimestampTZ,
	"TIMESTAMP WITHOUT TIME ZONE": TypeIDTimestamp,
	"TIMESTAMP_S":                 TypeIDTimestampSec,
	"INT":                         TypeIDInteger,
	"INT1":                        TypeIDTinyInt,
	"INT2":                        TypeIDSmallInt,
	"INT4":                        TypeIDInteger,
	"INT8":                        TypeIDBigInt,
	"UINT1":                       TypeIDUTinyInt,
	"UINT2":                       TypeIDUSmallInt,
	"UINT4":                       TypeIDUInteger,
	"UINT8":                       TypeIDUBigInt,
	"REAL":                        TypeIDFloat,
	"FLOAT4":                      TypeIDFloat,
	"FLOAT8":                      TypeIDDouble,
	"STRING":                      TypeIDVarchar,
	"TEXT":                        TypeIDVarchar,
	"BOOL":                        TypeIDBoolean,
}

// Normalize returns the canonical ID for t.
func (t LogicalTypeID) Normalize() LogicalTypeID {
	if mapped, ok := aliases[t]; ok {
		return mapped
	}
	return t
}

// IsTemporal reports whether t is a date or timestamp type.
func (t LogicalTypeID) IsTemporal() bool {
	switch t {
	case TypeIDDate, TypeIDTimestamp, TypeIDTimestampTZ, TypeIDTimestampSec, TypeIDTimestampMs, TypeIDTimestampNs:
		return true
	}
	return false
}

// LogicalType is the type of a column, constant or expression result.
type LogicalType struct {
	ID LogicalTypeID
}

// Value is a typed constant. Data holds:
//   - bool for BOOLEAN
//   - int64 for signed integers, DATE (days since epoch), TIME and
//     timestamps (units of the timestamp type)
//   - uint64 for unsigned integers
//   - float64 for FLOAT and DOUBLE
//   - string for DECIMAL, VARCHAR, CHAR and UUID
//   - []byte for BLOB
//   - []Value for LIST
//
// Other types keep the decoded JSON value.
type Value struct {
	Type   LogicalType
	IsNull bool
	Data   any
}

type rawValue struct {
	Type   rawType         `json:"type"`
	IsNull bool            `json:"is_null"`
	Value  json.RawMessage `json:"value"`
}

type rawType struct {
	ID string `json:"id"`
}

func (r rawValue) decode() (Value, error) {
	v := Value{Type: LogicalType{ID: LogicalTypeID(r.Type.ID).Normalize()}, IsNull: r.IsNull}
	if r.IsNull || len(r.Value) == 0 || string(r.Value) == "null" {
		v.IsNull = true
		return v, nil
	}
	data, err := decodeData(r.Value, v.Type.ID)
	if err != nil {
		return Value{}, fmt.Errorf("invalid %s value: %w", v.Type.ID, err)
	}
	v.Data = data
	return v, nil
}

func decodeData(data json.RawMessage, id LogicalTypeID) (any, error) {
	switch id {
	case TypeIDBoolean:
		var b bool
		err := json.Unmarshal(data, &b)
		return b, err

	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt,
		TypeIDDate, TypeIDTime, TypeIDTimestamp, TypeIDTimestampTZ,
		TypeIDTimestampSec, TypeIDTimestampMs, TypeIDTimestampNs:
		var n int64
		err := json.Unmarshal(data, &n)
		return n, err

	case TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt:
		var n uint64
		err := json.Unmarshal(data, &n)
		return n, err

	case TypeIDFloat, TypeIDDouble:
		var f float64
		err := json.Unmarshal(data, &f)
		return f, err

	case TypeIDDecimal:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			return n.String(), nil
		}
		var s string
		err := json.Unmarshal(data, &s)
		return s, err

	case TypeIDVarchar, TypeIDChar, TypeIDUUID:
		s, err := decodeString(data)
		return s, err

	case TypeIDBlob:
		s, err := decodeString(data)
		return []byte(s), err

	case TypeIDList:
		var raw struct {
			Children []rawValue `json:"children"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(raw.Children))
		for _, c := range raw.Children {
			v, err := c.decode()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	default:
		var v any
		err := json.Unmarshal(data, &v)
		return v, err
	}
}

// decodeString accepts a plain JSON string or {"base64": "..."} used for
// non UTF-8 content.
func decodeString(data json.RawMessage) (string, error) {
	var wrapped struct {
		Base64 string `json:"base64"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Base64 != "" {
		b, err := base64.StdEncoding.DecodeString(wrapped.Base64)
		if err != nil {
			return "", fmt.Errorf("invalid base64: %w", err)
		}
		return string(b), nil
	}
	var s string
	err := json.Unmarshal(data, &s)
	return s, err
}
