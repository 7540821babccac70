package table

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"

	"github.com/hugr-lab/airport-solr/solr"
)

// Documents converts every row of rec to a document. fields holds the
// store field of every column. Null values are left out of the document.
func Documents(rec arrow.RecordBatch, fields []string) ([]solr.Document, error) {
	if int(rec.NumCols()) != len(fields) {
		return nil, fmt.Errorf("record has %d columns, expected %d", rec.NumCols(), len(fields))
	}
	docs := make([]solr.Document, rec.NumRows())
	for row := range docs {
		doc := make(solr.Document, len(fields))
		for col, name := range fields {
			v, err := columnValue(rec.Column(col), row)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", row, rec.Schema().Field(col).Name, err)
			}
			if v != nil {
				doc[name] = v
			}
		}
		docs[row] = doc
	}
	return docs, nil
}

// columnValue returns the store value of arr[i], or nil for null.
func columnValue(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return int64(a.Value(i)), nil
	case *array.Int16:
		return int64(a.Value(i)), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return uint64(a.Value(i)), nil
	case *array.Uint16:
		return uint64(a.Value(i)), nil
	case *array.Uint32:
		return uint64(a.Value(i)), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Binary:
		return base64.StdEncoding.EncodeToString(a.Value(i)), nil
	case *array.LargeBinary:
		return base64.StdEncoding.EncodeToString(a.Value(i)), nil
	case *array.Date32:
		return formatInstant(a.Value(i).ToTime()), nil
	case *array.Date64:
		return formatInstant(a.Value(i).ToTime()), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return formatInstant(a.Value(i).ToTime(unit)), nil
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValue(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValue(a.ListValues(), start, end)
	case array.ExtensionArray:
		if IsGeometry(a.DataType()) {
			b, ok := a.Storage().(*array.Binary)
			if !ok {
				return nil, fmt.Errorf("unexpected geometry storage %s", a.Storage().DataType())
			}
			return wkbToWKT(b.Value(i))
		}
		return columnValue(a.Storage(), i)
	default:
		return arr.ValueStr(i), nil
	}
}

func listValue(values arrow.Array, start, end int64) ([]any, error) {
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		v, err := columnValue(values, int(j))
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// appendValue appends a store value to b, converting it to the builder's
// type. nil appends a null. A multi-valued field read into a scalar column
// keeps its first value.
func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	if list, ok := v.([]any); ok {
		switch b.(type) {
		case *array.ListBuilder, *array.LargeListBuilder:
		default:
			if len(list) == 0 {
				b.AppendNull()
				return nil
			}
			v = list[0]
		}
	}

	switch bb := b.(type) {
	case *array.BooleanBuilder:
		x, err := toBool(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Int8Builder:
		x, err := toIntRange(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		bb.Append(int8(x))
	case *array.Int16Builder:
		x, err := toIntRange(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		bb.Append(int16(x))
	case *array.Int32Builder:
		x, err := toIntRange(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		bb.Append(int32(x))
	case *array.Int64Builder:
		x, err := toInt(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Uint8Builder:
		x, err := toUintRange(v, math.MaxUint8)
		if err != nil {
			return err
		}
		bb.Append(uint8(x))
	case *array.Uint16Builder:
		x, err := toUintRange(v, math.MaxUint16)
		if err != nil {
			return err
		}
		bb.Append(uint16(x))
	case *array.Uint32Builder:
		x, err := toUintRange(v, math.MaxUint32)
		if err != nil {
			return err
		}
		bb.Append(uint32(x))
	case *array.Uint64Builder:
		x, err := toUintRange(v, math.MaxUint64)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Float32Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(float32(x))
	case *array.Float64Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.StringBuilder:
		bb.Append(toString(v))
	case *array.LargeStringBuilder:
		bb.Append(toString(v))
	case *array.BinaryBuilder:
		x, err := toBytes(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Date32Builder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		bb.Append(arrow.Date32FromTime(t))
	case *array.Date64Builder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		bb.Append(arrow.Date64FromTime(t))
	case *array.TimestampBuilder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, bb.Type().(*arrow.TimestampType).Unit)
		if err != nil {
			return err
		}
		bb.Append(ts)
	case *array.ListBuilder:
		return appendList(bb, bb.ValueBuilder(), v)
	case *array.LargeListBuilder:
		return appendList(bb, bb.ValueBuilder(), v)
	case *array.ExtensionBuilder:
		if !IsGeometry(bb.Type()) {
			return appendValue(bb.StorageBuilder(), v)
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("geometry must be a WKT string, got %T", v)
		}
		g, err := wktToWKB(s)
		if err != nil {
			return err
		}
		bb.StorageBuilder().(*array.BinaryBuilder).Append(g)
	default:
		return fmt.Errorf("unsupported column type %s", b.Type())
	}
	return nil
}

type listAppender interface {
	Append(bool)
}

func appendList(b listAppender, values array.Builder, v any) error {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	b.Append(true)
	for _, item := range list {
		if err := appendValue(values, item); err != nil {
			return err
		}
	}
	return nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		return floatToInt(x)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return 0, fmt.Errorf("value %v is not an integer", f)
	}
	return int64(f), nil
}

func toIntRange(v any, lo, hi int64) (int64, error) {
	n, err := toInt(v)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func toUintRange(v any, hi uint64) (uint64, error) {
	var n uint64
	switch x := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, err
		}
		n = u
	case uint64:
		n = x
	case string:
		u, err := strconv.ParseUint(x, 10, 64)
		if err != nil {
			return 0, err
		}
		n = u
	default:
		i, err := toInt(v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, fmt.Errorf("value %d is negative", i)
		}
		n = uint64(i)
	}
	if n > hi {
		return 0, fmt.Errorf("value %d out of range [0, %d]", n, hi)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func toBytes(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to binary", v)
	}
	return base64.StdEncoding.DecodeString(s)
}

// toTime parses an ISO-8601 instant or date.
func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid time %q", x)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
}
