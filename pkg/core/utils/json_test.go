package utils

import (
	"encoding/json"
	"testing"
)

func TestLenientJSON_Valid(t *testing.T) {
	in := []byte(`{"a":1}`)
	out, err := LenientJSON(in)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(out) != string(in) {
		t.Errorf("Expected body unchanged, got %s", out)
	}
}

func TestLenientJSON_Repairs(t *testing.T) {
	cases := []string{
		`{"a": 1,}`,
		`{'a': 1}`,
		`{"a": [1, 2`,
	}
	for _, c := range cases {
		out, err := LenientJSON([]byte(c))
		if err != nil {
			t.Errorf("%s: unexpected error %v", c, err)
			continue
		}
		var v map[string]interface{}
		if err := json.Unmarshal(out, &v); err != nil {
			t.Errorf("%s: expected valid JSON, got %s", c, out)
		}
		if _, ok := v["a"]; !ok {
			t.Errorf("%s: expected key a in %s", c, out)
		}
	}
}

func TestParseHJSON(t *testing.T) {
	out, err := ParseHJSON([]byte("{\n  # comment\n  key: value\n}"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var v map[string]string
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("Expected valid JSON, got %s", out)
	}
	if v["key"] != "value" {
		t.Errorf("Expected value, got %q", v["key"])
	}
}
