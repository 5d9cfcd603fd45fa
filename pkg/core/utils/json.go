package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common JSON damage in third-party payloads:
// unquoted keys, single quotes, trailing commas, truncated arrays or objects.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON converts Human-friendly JSON (comments, unquoted keys, optional
// commas) to standard JSON.
func ParseHJSON(data []byte) ([]byte, error) {
	var result interface{}
	if err := hjson.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("hjson parse: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("hjson to json: %w", err)
	}
	return out, nil
}

// LenientJSON returns body as valid JSON, trying in order:
// 1. the body as-is
// 2. json repair
// 3. hjson (most lenient)
func LenientJSON(body []byte) ([]byte, error) {
	if json.Valid(body) {
		return body, nil
	}

	if repaired, err := RepairJSON(string(body)); err == nil && json.Valid([]byte(repaired)) {
		return []byte(repaired), nil
	}

	if converted, err := ParseHJSON(body); err == nil {
		return converted, nil
	}

	return nil, fmt.Errorf("lenient json: all parsing strategies failed")
}
