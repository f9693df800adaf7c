package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"clinical-extract/internal/runner"
)

// Writer is a closeable result sink.
type Writer interface {
	Write(ctx context.Context, rec runner.Output) error
	Close() error
}

// JSONL appends one JSON line per record. Writes go straight to the file so
// an interrupted run keeps everything written so far; a mutex serializes
// concurrent appends to keep lines intact.
type JSONL struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

func NewJSONL(path string) (*JSONL, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONL{f: f, enc: enc}, nil
}

func (w *JSONL) Write(_ context.Context, rec runner.Output) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(rec)
}

func (w *JSONL) Close() error {
	return w.f.Close()
}
