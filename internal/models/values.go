package models

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeValue converts v to the canonical representation for kind.
// It never converts between kinds: a numeric string is not a number.
func NormalizeValue(kind FieldKind, v any) (any, bool) {
	switch kind {
	case KindString, KindRichText:
		s, ok := v.(string)
		return s, ok
	case KindBoolean:
		b, ok := v.(bool)
		return b, ok
	case KindNumber:
		return normalizeNumber(v)
	}
	return nil, false
}

// Numbers outside these limits are refused. String and JSON rendering
// expand the exponent, so 1e20000000 would become twenty million digits.
const (
	maxNumberText     = 64
	maxNumberDigits   = 40
	maxNumberExponent = 40
)

func withinNumberLimits(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxNumberExponent || exp < -maxNumberExponent {
		return false
	}
	return len(d.Coefficient().Text(10)) <= maxNumberDigits+1 // sign
}

func parseDecimal(text string) (decimal.Decimal, bool) {
	if len(text) > maxNumberText {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil || !withinNumberLimits(d) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func normalizeNumber(v any) (any, bool) {
	d, ok := toDecimal(v)
	if !ok || !withinNumberLimits(d) {
		return nil, false
	}
	return d, true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return *n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0), true
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case json.Number:
		return parseDecimal(n.String())
	}
	return decimal.Decimal{}, false
}

// ZeroValue returns the empty value a fresh draft holds for kind
func ZeroValue(kind FieldKind) any {
	switch kind {
	case KindNumber:
		return decimal.Zero
	case KindBoolean:
		return false
	default:
		return ""
	}
}

// FormatValue renders a normalized value as its wire string:
// decimal strings for numbers, "true"/"false" for booleans.
func FormatValue(kind FieldKind, v any) (string, bool) {
	nv, ok := NormalizeValue(kind, v)
	if !ok {
		return "", false
	}
	switch kind {
	case KindNumber:
		return nv.(decimal.Decimal).String(), true
	case KindBoolean:
		return strconv.FormatBool(nv.(bool)), true
	default:
		return nv.(string), true
	}
}

// ParseText reads a value of kind from its textual form. Only spreadsheet
// import goes through here; API input must already carry the right type.
func ParseText(kind FieldKind, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch kind {
	case KindString, KindRichText:
		return text, nil
	case KindNumber:
		if text == "" {
			return decimal.Zero, nil
		}
		d, ok := parseDecimal(text)
		if !ok {
			return nil, fmt.Errorf("%q is not a number within range", text)
		}
		return d, nil
	case KindBoolean:
		if text == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(strings.ToLower(text))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", text)
		}
		return b, nil
	}
	return nil, fmt.Errorf("kind %q has no textual form", kind)
}

// TypeName describes the Go type of v for error messages
func TypeName(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case decimal.Decimal, json.Number, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		if _, ok := normalizeNumber(v); !ok {
			return "number out of range"
		}
		return "number"
	case []any:
		return "array"
	case map[string]any, SubRecord:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
