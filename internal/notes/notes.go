package notes

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// NotePlaceholder is the token in the prompt template that gets replaced
// verbatim with the note text.
const NotePlaceholder = "{{NOTE_TEXT}}"

// Note is one input record. The id is kept as raw JSON so string and numeric
// identifiers pass through byte-exact to the output.
type Note struct {
	ID   json.RawMessage `json:"id"`
	Note string          `json:"note"`
}

// Read loads line-delimited notes from path, skipping blank lines. When limit
// is positive only the first limit records are returned.
func Read(path string, limit int) ([]Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Note
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var n Note
		if err := json.Unmarshal([]byte(line), &n); err != nil {
			return nil, fmt.Errorf("notes %s line %d: %w", path, lineNo, err)
		}
		out = append(out, n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTemplate reads the prompt template and verifies it carries the note
// placeholder.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tpl := string(data)
	if !strings.Contains(tpl, NotePlaceholder) {
		return "", fmt.Errorf("template %s missing %s placeholder", path, NotePlaceholder)
	}
	return tpl, nil
}

// BuildPrompt substitutes the note text into the template.
func BuildPrompt(template, noteText string) string {
	return strings.ReplaceAll(template, NotePlaceholder, noteText)
}
