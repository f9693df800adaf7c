package notes

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead(t *testing.T) {
	path := writeFile(t, "notes.jsonl", `{"id":"1","note":"first note"}

{"id":2,"note":"second note"}
{"id":"3","note":"third note"}
`)

	all, err := Read(path, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d notes, want 3 (blank lines skipped)", len(all))
	}
	if string(all[0].ID) != `"1"` {
		t.Errorf("string id not preserved: %s", all[0].ID)
	}
	if string(all[1].ID) != `2` {
		t.Errorf("numeric id not preserved byte-exact: %s", all[1].ID)
	}
	if all[2].Note != "third note" {
		t.Errorf("note text = %q", all[2].Note)
	}
}

func TestReadLimit(t *testing.T) {
	path := writeFile(t, "notes.jsonl", `{"id":"1","note":"a"}
{"id":"2","note":"b"}
{"id":"3","note":"c"}
`)
	limited, err := Read(path, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d notes, want 2", len(limited))
	}
}

func TestReadRejectsMalformedLine(t *testing.T) {
	path := writeFile(t, "notes.jsonl", "{not json}\n")
	if _, err := Read(path, 0); err == nil {
		t.Fatal("expected error for malformed input line")
	}
}

func TestLoadTemplate(t *testing.T) {
	good := writeFile(t, "tpl.txt", "Extract from:\n{{NOTE_TEXT}}\n")
	tpl, err := LoadTemplate(good)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if got := BuildPrompt(tpl, "chest pain"); got != "Extract from:\nchest pain\n" {
		t.Errorf("BuildPrompt = %q", got)
	}

	bad := writeFile(t, "bad.txt", "no placeholder here")
	if _, err := LoadTemplate(bad); err == nil {
		t.Fatal("expected error for template without placeholder")
	}
}
