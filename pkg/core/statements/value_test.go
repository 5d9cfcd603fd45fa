package statements

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValueArithmetic(t *testing.T) {
	if !Num(1).Div(Num(0)).IsMissing() {
		t.Error("Expected division by zero to be missing")
	}
	if !Num(1).Div(Missing).IsMissing() {
		t.Error("Expected division by missing to be missing")
	}
	if !Missing.Add(Num(2)).IsMissing() {
		t.Error("Expected missing operand to propagate")
	}
	if !Num(math.Inf(1)).IsMissing() || !Num(math.NaN()).IsMissing() {
		t.Error("Expected non-finite numbers to be missing")
	}
	if v, _ := Num(10).Sub(Num(4)).Float(); v != 6 {
		t.Errorf("Expected 6, got %v", v)
	}
}

func TestValueRound(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{0.123456, 4, 0.1235},
		{-0.00005, 4, -0.0001},
		{1234.5678, 2, 1234.57},
		{100, 4, 100},
	}
	for _, c := range cases {
		got, _ := Num(c.in).Round(c.places).Float()
		if got != c.want {
			t.Errorf("Round(%v, %d): expected %v, got %v", c.in, c.places, c.want, got)
		}
	}
}

func TestParseValue(t *testing.T) {
	for _, s := range []string{"", " ", "nan", "NaN", "None", "abc"} {
		if !ParseValue(s).IsMissing() {
			t.Errorf("Expected %q to be missing", s)
		}
	}
	if v, _ := ParseValue("394328000000.0").Float(); v != 394328000000 {
		t.Errorf("Expected 394328000000, got %v", v)
	}
	if v, _ := ParseValue("-1,234.5").Float(); v != -1234.5 {
		t.Errorf("Expected -1234.5, got %v", v)
	}
}

func TestValueJSON(t *testing.T) {
	data, _ := json.Marshal(map[string]Value{"a": Num(1.5), "b": Missing})
	if string(data) != `{"a":1.5,"b":null}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
	var v Value
	if err := json.Unmarshal([]byte("null"), &v); err != nil || !v.IsMissing() {
		t.Errorf("Expected null to decode to missing, got %v (%v)", v, err)
	}
}

func TestSeriesGrowth(t *testing.T) {
	s := Series{Num(110), Num(100), Num(0), Missing}
	g := s.Growth()
	if v, _ := g[0].Round(4).Float(); v != 0.1 {
		t.Errorf("Expected 0.1, got %v", v)
	}
	if !g[1].IsMissing() {
		t.Error("Expected growth over a zero base to be missing")
	}
	if !g[3].IsMissing() {
		t.Error("Expected oldest period growth to be missing")
	}
}
