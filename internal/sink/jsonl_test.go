package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"clinical-extract/internal/extract"
	"clinical-extract/internal/runner"
)

func TestJSONLCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "out.jsonl")
	w, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
}

func TestJSONLWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}

	ctx := context.Background()
	recs := []runner.Output{
		{ID: json.RawMessage(`"a"`), Pred: extract.Record{"age": 54}},
		{ID: json.RawMessage(`7`), Pred: extract.Record{}},
		{ID: json.RawMessage(`"c"`), Pred: extract.Record{"sex": "female"}},
	}
	for _, rec := range recs {
		if err := w.Write(ctx, rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != len(recs) {
		t.Fatalf("got %d lines, want %d", len(lines), len(recs))
	}
	for i, line := range lines {
		var rec runner.Output
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
			continue
		}
		if rec.Pred == nil {
			t.Errorf("line %d: pred decoded as null, want object", i)
		}
	}
	// empty pred must serialize as {} not null
	if want := `{"id":7,"pred":{}}`; lines[1] != want {
		t.Errorf("empty pred line = %q, want %q", lines[1], want)
	}
}

func TestJSONLSerializesConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			rec := runner.Output{
				ID:   json.RawMessage(fmt.Sprintf("%d", i)),
				Pred: extract.Record{"i": i},
			}
			if err := w.Write(context.Background(), rec); err != nil {
				t.Errorf("Write: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != n {
		t.Fatalf("got %d lines, want %d", len(lines), n)
	}
	for i, line := range lines {
		var rec runner.Output
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line %d corrupted by interleaving: %v", i, err)
		}
	}
}

func TestMultiFansOut(t *testing.T) {
	dir := t.TempDir()
	a, err := NewJSONL(filepath.Join(dir, "a.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	b, err := NewJSONL(filepath.Join(dir, "b.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}

	m := NewMulti(a, b)
	rec := runner.Output{ID: json.RawMessage(`"x"`), Pred: extract.Record{}}
	if err := m.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"a.jsonl", "b.jsonl"} {
		if lines := readLines(t, filepath.Join(dir, name)); len(lines) != 1 {
			t.Errorf("%s: got %d lines, want 1", name, len(lines))
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}
