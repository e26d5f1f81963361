package hydrate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"daogen/internal/introspection"
	"daogen/internal/sqltype"
	"daogen/internal/uuidutil"
)

// Converter normalizes driver values by the column's source type.
type Converter struct {
	// DecimalNumerics returns numeric/decimal columns as decimal.Decimal
	// instead of the driver's string or float.
	DecimalNumerics bool
}

// Convert turns a scanned driver value into the field value for col.
func (c Converter) Convert(col introspection.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	category := sqltype.Map(col.SourceType)
	if col.IsJSON {
		category = sqltype.JSON
	}

	switch category {
	case sqltype.JSON:
		return decodeJSON(v)
	case sqltype.Bytes:
		if b, ok := v.([]byte); ok {
			return append([]byte(nil), b...), nil
		}
		return v, nil
	case sqltype.Array:
		return decodeArray(col.SourceType, v)
	case sqltype.Decimal:
		if c.DecimalNumerics {
			return decodeDecimal(v)
		}
	case sqltype.Int:
		if b, ok := v.([]byte); ok && strings.HasPrefix(strings.ToLower(col.SourceType), "bit") {
			var n int64
			for _, octet := range b {
				n = n<<8 | int64(octet)
			}
			return n, nil
		}
		if s, ok := textValue(v); ok {
			return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		}
	case sqltype.Float:
		if s, ok := textValue(v); ok {
			return strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
	case sqltype.Bool:
		return decodeBool(v)
	case sqltype.UUID:
		return uuidutil.Canonical(v)
	}

	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return v, nil
}

func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case []byte:
		return string(t), true
	case string:
		return t, true
	}
	return "", false
}

func decodeJSON(v any) (any, error) {
	s, ok := textValue(v)
	if !ok {
		return v, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return out, nil
}

func decodeDecimal(v any) (any, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	}
	s, ok := textValue(v)
	if !ok {
		return v, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		// Formatted values such as money with a currency symbol stay text.
		return s, nil
	}
	return d, nil
}

func decodeBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	}
	s, ok := textValue(v)
	if !ok {
		return v, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes", "on":
		return true, nil
	case "f", "false", "0", "n", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("decode bool %q", s)
}

// decodeArray parses Postgres array text into a slice typed by the element type.
func decodeArray(sourceType string, v any) (any, error) {
	if _, ok := textValue(v); !ok {
		return v, nil
	}
	element := strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(sourceType), "_"), "[]")
	switch sqltype.Map(element) {
	case sqltype.Int:
		var out pq.Int64Array
		if err := out.Scan(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", sourceType, err)
		}
		return []int64(out), nil
	case sqltype.Float:
		var out pq.Float64Array
		if err := out.Scan(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", sourceType, err)
		}
		return []float64(out), nil
	case sqltype.Bool:
		var out pq.BoolArray
		if err := out.Scan(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", sourceType, err)
		}
		return []bool(out), nil
	default:
		var out pq.StringArray
		if err := out.Scan(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", sourceType, err)
		}
		return []string(out), nil
	}
}
