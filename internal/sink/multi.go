package sink

import (
	"context"

	"clinical-extract/internal/runner"
)

// Multi fans every record out to all sinks in order.
type Multi struct {
	writers []Writer
}

func NewMulti(writers ...Writer) *Multi {
	return &Multi{writers: writers}
}

func (m *Multi) Write(ctx context.Context, rec runner.Output) error {
	for _, w := range m.writers {
		if err := w.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var first error
	for _, w := range m.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
