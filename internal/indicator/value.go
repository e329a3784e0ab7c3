package indicator

import (
	"encoding/json"
	"math"
)

// Value is a per-point indicator result. Valid is false where the value is
// mathematically undefined (insufficient history, 0/0).
type Value struct {
	Float64 float64
	Valid   bool
}

// Defined wraps f as a valid Value
func Defined(f float64) Value {
	return Value{Float64: f, Valid: true}
}

// Undefined is the "no value" marker
var Undefined = Value{}

// Or returns the value, or def when undefined
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.Float64
}

// MarshalJSON encodes undefined values as null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float64)
}

// UnmarshalJSON accepts a number or null
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Defined(f)
	return nil
}

// Floats converts values to float64 with NaN for undefined points, the shape
// talib and charting code expect
func Floats(values []Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Or(math.NaN())
	}
	return out
}

// Last returns the final value of a column, Undefined when empty
func Last(values []Value) Value {
	if len(values) == 0 {
		return Undefined
	}
	return values[len(values)-1]
}

func undefinedColumn(n int) []Value {
	return make([]Value, n)
}
