package evaluate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Fields are the clinical fields scored against ground truth.
var Fields = []string{"sex", "age", "systolic_bp", "diastolic_bp", "heart_rate", "diagnosis", "treatment", "outcome"}

var numericFields = map[string]bool{
	"age":          true,
	"systolic_bp":  true,
	"diastolic_bp": true,
	"heart_rate":   true,
}

var sexAliases = map[string]string{
	"m":      "male",
	"male":   "male",
	"f":      "female",
	"female": "female",
	"xy":     "male",
	"xx":     "female",
}

const bpTolerance = 5

// Row is one line of a ground-truth or prediction file. Either GroundTruth
// or Pred is set depending on which file the line came from.
type Row struct {
	ID          json.RawMessage `json:"id"`
	GroundTruth map[string]any  `json:"ground_truth"`
	Pred        map[string]any  `json:"pred"`
}

// Report is the scoring summary.
type Report struct {
	Accuracy       float64  `json:"accuracy"`
	MacroF1        float64  `json:"macro_f1"`
	FieldBreakdown []string `json:"field_breakdown"`
}

// Normalize coerces a raw field value into its canonical comparison form:
// numeric fields to int, sex through the alias table, everything else to
// trimmed lowercase. Absent or uncoercible values come back nil.
func Normalize(v any, field string) any {
	if v == nil {
		return nil
	}
	if numericFields[field] {
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		return int(f)
	}
	s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	if field == "sex" {
		if canonical, ok := sexAliases[s]; ok {
			return canonical
		}
	}
	return s
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func bpClose(a, b any, tol int) bool {
	ai, ok := a.(int)
	if !ok {
		return false
	}
	bi, ok := b.(int)
	if !ok {
		return false
	}
	d := ai - bi
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// IDKey normalizes a raw JSON id so that string and numeric spellings of the
// same identifier land on the same key.
func IDKey(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// LoadJSONL reads a ground-truth or prediction file into a map keyed by
// normalized id.
func LoadJSONL(path string) (map[string]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]Row)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		out[IDKey(row.ID)] = row
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Score compares predictions against ground truth. Blood-pressure fields
// match within a small tolerance; everything else matches exactly after
// normalization. The F1 is the crude one the original harness computed,
// treating each exact field match as a label.
func Score(groundTruth, preds map[string]Row) Report {
	perFieldCorrect := make(map[string]int, len(Fields))
	perFieldTotal := make(map[string]int, len(Fields))
	var tp, fp, fn int

	for id, g := range groundTruth {
		pred := preds[id].Pred
		for _, field := range Fields {
			gtv := Normalize(g.GroundTruth[field], field)
			prv := Normalize(pred[field], field)
			if gtv == nil {
				continue
			}
			perFieldTotal[field]++

			var correct bool
			if field == "systolic_bp" || field == "diastolic_bp" {
				correct = bpClose(gtv, prv, bpTolerance)
			} else {
				correct = prv != nil && gtv == prv
			}

			if correct {
				perFieldCorrect[field]++
				tp++
			} else {
				fn++
				if prv != nil {
					fp++
				}
			}
		}
	}

	var totals, corrects int
	var breakdown []string
	for _, field := range Fields {
		totals += perFieldTotal[field]
		corrects += perFieldCorrect[field]
		if perFieldTotal[field] > 0 {
			acc := float64(perFieldCorrect[field]) / float64(perFieldTotal[field])
			breakdown = append(breakdown, fmt.Sprintf("%-14s acc=%.3f (%d/%d)", field, acc, perFieldCorrect[field], perFieldTotal[field]))
		}
	}

	var accuracy float64
	if totals > 0 {
		accuracy = float64(corrects) / float64(totals)
	}

	return Report{
		Accuracy:       accuracy,
		MacroF1:        macroF1(tp, fp, fn),
		FieldBreakdown: breakdown,
	}
}

func macroF1(tp, fp, fn int) float64 {
	var precision, recall float64
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
