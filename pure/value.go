package pure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a constraint operand: a number (NaN = null) or a string.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric value.
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// Text returns a string value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// ValueOf converts a Go integer, float or string into a Value.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case Value:
		return v, nil
	case int:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case float32:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	case string:
		return Text(v), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported operand type %T", ErrTypeMismatch, x)
	}
}

// Kind returns the value type.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is a missing numeric value.
func (v Value) IsNull() bool {
	return v.kind == KindNumber && math.IsNaN(v.num)
}

// Float returns the numeric payload.
func (v Value) Float() float64 {
	return v.num
}

// Str returns the string payload.
func (v Value) Str() string {
	return v.text
}

// String renders v as a constraint-language literal.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return "'" + strings.ReplaceAll(strings.ReplaceAll(v.text, `\`, `\\`), "'", `\'`) + "'"
	default:
		return "<invalid>"
	}
}

// compareValues orders two non-null values of the same kind.
func compareValues(a, b Value) int {
	if a.kind == KindText {
		return strings.Compare(a.text, b.text)
	}
	switch {
	case a.num < b.num:
		return -1
	case a.num > b.num:
		return 1
	default:
		return 0
	}
}
