package inventory

import (
	"math"
	"strconv"
	"strings"
)

// Request fields arrive as decoded JSON (bool, float64, string, []any) so
// that type errors surface as validation messages after the ownership check.

// asID interprets v as a positive integer identifier.
func asID(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, x > 0
	case int:
		return int64(x), x > 0
	case float64:
		if x <= 0 || x != math.Trunc(x) || x >= math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil && n > 0
	default:
		return 0, false
	}
}

// asBool accepts true/false, 1/0 and their string forms.
func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		switch x {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	case int:
		switch x {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	case string:
		switch strings.TrimSpace(x) {
		case "0", "false":
			return false, true
		case "1", "true":
			return true, true
		}
	}
	return false, false
}

// asList interprets v as a list; the second result is false if v is not a list.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
