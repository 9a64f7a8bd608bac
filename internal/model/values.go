package model

import (
	"reflect"
	"time"
)

// Normalize folds the numeric representations produced by different decoders
// (YAML ints, JSON float64s, Go literals) into int64 or float64.
func Normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, e := range n {
			out[i] = Normalize(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, e := range n {
			out[k] = Normalize(e)
		}
		return out
	default:
		return v
	}
}

// ValuesEqual compares two literal values the way a column value comparer
// would: numerically for numbers, by instant for times, deeply otherwise.
func ValuesEqual(a, b interface{}) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// ZeroValue returns the value used to back-fill existing rows when a
// non-nullable column without a default is added to a populated table.
func ZeroValue(columnType string) interface{} {
	switch columnType {
	case TypeString:
		return ""
	case TypeArray:
		return []interface{}{}
	case TypeInt, TypeInt64:
		return int64(0)
	case TypeFloat, TypeDecimal:
		return float64(0)
	case TypeBool:
		return false
	case TypeBytes:
		return []byte{}
	case TypeTime:
		return time.Time{}
	case TypeUUID:
		return "00000000-0000-0000-0000-000000000000"
	case TypeJSON:
		return "{}"
	default:
		return int64(0)
	}
}
