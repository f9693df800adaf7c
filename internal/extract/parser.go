package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Record is the structured extraction for one note. Values keep whatever
// JSON type the model produced. An empty map is the failure value; callers
// never see nil.
type Record = map[string]any

var (
	fenceOpenRe  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("(?i)\\s*```$")
	objCommaRe   = regexp.MustCompile(`,\s*}`)
	arrCommaRe   = regexp.MustCompile(`,\s*]`)
	// C0 controls, DEL and C1 controls. Models occasionally emit these raw
	// inside string values, which strict JSON rejects.
	controlRe = regexp.MustCompile("[\\x00-\\x1f\\x7f-\\x9f]")
)

// ParseRecord recovers a JSON object from raw model output. It is total:
// malformed input degrades to an empty record, never an error.
//
// The candidate object is the span from the first '{' to the last '}'. When
// the text contains several sibling objects that span is not a valid object
// and the parse falls through to empty; that behavior is kept as-is to stay
// byte-compatible with existing evaluation baselines.
func ParseRecord(text string) Record {
	text = strings.TrimSpace(text)
	if text == "" {
		return Record{}
	}

	text = fenceOpenRe.ReplaceAllString(text, "")
	text = fenceCloseRe.ReplaceAllString(text, "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return Record{}
	}
	cand := text[start : end+1]

	// tolerate trailing commas before closing braces/brackets
	cand = objCommaRe.ReplaceAllString(cand, "}")
	cand = arrCommaRe.ReplaceAllString(cand, "]")

	var rec Record
	if err := json.Unmarshal([]byte(cand), &rec); err == nil && rec != nil {
		return rec
	}

	rec = nil
	cleaned := controlRe.ReplaceAllString(cand, " ")
	if err := json.Unmarshal([]byte(cleaned), &rec); err == nil && rec != nil {
		return rec
	}
	return Record{}
}
