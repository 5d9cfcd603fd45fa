// Package statements holds the canonical statement schema, the vendor alias table,
// the normalizer that maps raw vendor tables onto it, and the locator that finds
// persisted raw tables on disk.
package statements

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Value is a numeric cell that may be missing.
// The zero Value is Missing. Arithmetic with a Missing operand yields Missing,
// and any non-finite result collapses to Missing.
type Value struct {
	n  float64
	ok bool
}

// Missing is the absent value.
var Missing = Value{}

// Num wraps f. NaN and ±Inf become Missing.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{n: f, ok: true}
}

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) { return v.n, v.ok }

// IsMissing reports whether v carries no number.
func (v Value) IsMissing() bool { return !v.ok }

// Or returns the number, or def when missing.
func (v Value) Or(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.n
}

func (v Value) Add(o Value) Value {
	if !v.ok || !o.ok {
		return Missing
	}
	return Num(v.n + o.n)
}

func (v Value) Sub(o Value) Value {
	if !v.ok || !o.ok {
		return Missing
	}
	return Num(v.n - o.n)
}

func (v Value) Mul(o Value) Value {
	if !v.ok || !o.ok {
		return Missing
	}
	return Num(v.n * o.n)
}

// Div divides v by o. A missing or zero denominator yields Missing.
func (v Value) Div(o Value) Value {
	if !v.ok || !o.ok || o.n == 0 {
		return Missing
	}
	return Num(v.n / o.n)
}

// Round rounds half away from zero to the given number of decimal places.
func (v Value) Round(places int32) Value {
	if !v.ok {
		return Missing
	}
	f, _ := decimal.NewFromFloat(v.n).Round(places).Float64()
	return Num(f)
}

func (v Value) String() string {
	if !v.ok {
		return ""
	}
	return strconv.FormatFloat(v.n, 'f', -1, 64)
}

// MarshalJSON encodes Missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.n)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*v = Num(f)
	return nil
}

// ParseValue reads a cell the way a lenient numeric coercion would: blanks,
// nan/None markers and anything non-numeric are Missing.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "n/a", "-", "--":
		return Missing
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return Missing
	}
	return Num(f)
}
