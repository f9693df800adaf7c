package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"clinical-extract/internal/notes"
)

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// Parse converts one clinical note document into input records. The note
// unit depends on the format: a PDF yields one note per page, a spreadsheet
// one per row, markdown one per top-level section, plain text one per
// blank-line-separated block, and word documents one note for the whole
// file. JSONL files pass through untouched.
func Parse(path string) ([]notes.Note, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jsonl":
		return notes.Read(path, 0)
	case ".txt":
		return parseText(path)
	case ".md", ".markdown":
		return parseMarkdown(path)
	case ".pdf":
		return parsePDF(path)
	case ".docx":
		return parseDOCX(path)
	case ".xlsx":
		return parseXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parseText(path string) ([]notes.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []notes.Note
	for _, block := range blankLineRe.Split(string(data), -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, newNote(block))
	}
	return out, nil
}

func parsePDF(path string) ([]notes.Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var out []notes.Note
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		out = append(out, newNote(pageText))
	}
	return out, nil
}

func parseDOCX(path string) ([]notes.Note, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := strings.TrimSpace(r.Editable().GetContent())
	if content == "" {
		return nil, nil
	}
	return []notes.Note{newNote(content)}, nil
}

// parseXLSX reads id/note rows. A first row whose cells are the literal
// column names is treated as a header and skipped; single-column sheets get
// generated ids.
func parseXLSX(path string) ([]notes.Note, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []notes.Note
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		for i, row := range rows {
			if len(row) == 0 {
				continue
			}
			if i == 0 && isHeader(row) {
				continue
			}
			var n notes.Note
			if len(row) >= 2 {
				id, err := json.Marshal(strings.TrimSpace(row[0]))
				if err != nil {
					return nil, err
				}
				n = notes.Note{ID: id, Note: strings.TrimSpace(row[1])}
			} else {
				n = newNote(strings.TrimSpace(row[0]))
			}
			if n.Note == "" {
				continue
			}
			out = append(out, n)
		}
	}
	return out, nil
}

func isHeader(row []string) bool {
	first := strings.ToLower(strings.TrimSpace(row[0]))
	if len(row) >= 2 {
		second := strings.ToLower(strings.TrimSpace(row[1]))
		return first == "id" && second == "note"
	}
	return first == "note"
}

func newNote(text string) notes.Note {
	id, _ := json.Marshal(uuid.NewString())
	return notes.Note{ID: id, Note: text}
}
