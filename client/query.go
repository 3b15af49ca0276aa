package client

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"slices"
	"strings"
)

// QueryPolicy selects how query parameters are serialized. It is chosen
// once per [Client] via [WithQueryPolicy].
type QueryPolicy int

const (
	// QueryEncodeAll keeps every key and percent-encodes keys and values.
	// This is the default.
	QueryEncodeAll QueryPolicy = iota
	// QueryDropFalsy drops keys whose value is nil, "", a numeric zero,
	// NaN or false. Pairs are written as literal key=value, unencoded.
	QueryDropFalsy
)

func (p QueryPolicy) String() string {
	switch p {
	case QueryEncodeAll:
		return "encode-all"
	case QueryDropFalsy:
		return "drop-falsy"
	default:
		return fmt.Sprintf("QueryPolicy(%d)", int(p))
	}
}

// Encode serializes params under the policy. Keys are emitted in sorted
// order. An empty or nil map yields "".
func (p QueryPolicy) Encode(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}

	switch p {
	case QueryDropFalsy:
		keys := make([]string, 0, len(params))
		for k, v := range params {
			if truthy(v) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+stringify(params[k]))
		}

		return strings.Join(pairs, "&")

	default:
		values := make(url.Values, len(params))
		for k, v := range params {
			values.Set(k, stringify(v))
		}

		return values.Encode()
	}
}

// Params serializes params with the default [QueryEncodeAll] policy.
func Params(params map[string]any) string {
	return QueryEncodeAll.Encode(params)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprint(v)
}

func truthy(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}
