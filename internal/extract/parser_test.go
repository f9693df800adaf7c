package extract

import (
	"reflect"
	"testing"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Record
	}{
		{"empty input", "", Record{}},
		{"whitespace only", "  \n\t ", Record{}},
		{"no object", "no object here", Record{}},
		{"reversed braces", "} {", Record{}},
		{"plain object", `{"age": 54}`, Record{"age": float64(54)}},
		{"trailing comma", `{"age": 54,}`, Record{"age": float64(54)}},
		{"trailing comma in array", `{"meds": ["aspirin", "heparin",],}`, Record{"meds": []any{"aspirin", "heparin"}}},
		{"fenced json", "```json\n{\"age\": 54}\n```", Record{"age": float64(54)}},
		{"fenced bare", "```\n{\"age\": 54}\n```", Record{"age": float64(54)}},
		{"fenced uppercase", "```JSON\n{\"sex\": \"male\"}\n```", Record{"sex": "male"}},
		{"prose around object", `The result is {"sex": "male"} as requested.`, Record{"sex": "male"}},
		{"nested object", `{"vitals": {"hr": 96}}`, Record{"vitals": map[string]any{"hr": float64(96)}}},
		{"control characters", "{\"diagnosis\": \"flu\x01\"}", Record{"diagnosis": "flu "}},
		// the candidate span runs from the first '{' to the last '}', so two
		// sibling objects are glued into one invalid candidate and degrade
		// to empty
		{"two sibling objects", `noise {"a":1} more {"b":2} end`, Record{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRecord(tt.in)
			if got == nil {
				t.Fatal("ParseRecord returned nil, want non-nil record")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRecord(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRecordFenceIdempotent(t *testing.T) {
	canonical := `{"sex":"male","age":54,"diagnosis":"pneumonia"}`
	plain := ParseRecord(canonical)
	fenced := ParseRecord("```json\n" + canonical + "\n```")
	if !reflect.DeepEqual(plain, fenced) {
		t.Errorf("fenced parse %#v differs from plain parse %#v", fenced, plain)
	}
	if len(plain) != 3 {
		t.Errorf("expected 3 fields, got %d", len(plain))
	}
}
