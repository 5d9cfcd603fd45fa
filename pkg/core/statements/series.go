package statements

// Series is a row of values aligned with a period list (most recent first).
type Series []Value

// MissingSeries returns n missing values.
func MissingSeries(n int) Series {
	return make(Series, n)
}

func (s Series) zip(o Series, op func(a, b Value) Value) Series {
	out := make(Series, len(s))
	for i := range s {
		b := Missing
		if i < len(o) {
			b = o[i]
		}
		out[i] = op(s[i], b)
	}
	return out
}

func (s Series) Add(o Series) Series { return s.zip(o, Value.Add) }
func (s Series) Sub(o Series) Series { return s.zip(o, Value.Sub) }
func (s Series) Mul(o Series) Series { return s.zip(o, Value.Mul) }
func (s Series) Div(o Series) Series { return s.zip(o, Value.Div) }

// Scale multiplies every present value by f.
func (s Series) Scale(f float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = v.Mul(Num(f))
	}
	return out
}

func (s Series) Round(places int32) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = v.Round(places)
	}
	return out
}

// Growth returns s[i]/s[i+1] - 1 for each period. The oldest period has no
// predecessor and is always Missing.
func (s Series) Growth() Series {
	out := make(Series, len(s))
	for i := 0; i+1 < len(s); i++ {
		out[i] = s[i].Div(s[i+1]).Sub(Num(1))
	}
	return out
}

// Latest returns the first present value scanning from the most recent period.
func (s Series) Latest() (Value, int) {
	for i, v := range s {
		if !v.IsMissing() {
			return v, i
		}
	}
	return Missing, -1
}

// ToMap keys the series by period.
func (s Series) ToMap(periods []string) map[string]Value {
	out := make(map[string]Value, len(periods))
	for i, p := range periods {
		if i < len(s) {
			out[p] = s[i]
		} else {
			out[p] = Missing
		}
	}
	return out
}
