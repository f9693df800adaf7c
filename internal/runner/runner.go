package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"clinical-extract/internal/extract"
	"clinical-extract/internal/notes"
)

// Output is one result line: the input's id, byte-exact, and the extracted
// record. Pred is always a map, empty when the extraction failed.
type Output struct {
	ID   json.RawMessage `json:"id"`
	Pred extract.Record  `json:"pred"`
}

// Extractor produces a best-effort record for one note. A returned error is
// a transport-level failure; malformed model output never surfaces here.
type Extractor interface {
	Extract(ctx context.Context, noteText string) (extract.Record, error)
}

// Writer persists one output record. Implementations must tolerate calls in
// completion order, which is not input order.
type Writer interface {
	Write(ctx context.Context, rec Output) error
}

// Runner processes the input set in sequential batches, running every note
// of a batch concurrently. Concurrency within a batch equals the batch size;
// a new batch starts only after every task of the previous one has reached a
// terminal state.
type Runner struct {
	extractor Extractor
	writer    Writer
	batchSize int
}

func New(extractor Extractor, writer Writer, batchSize int) *Runner {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Runner{extractor: extractor, writer: writer, batchSize: batchSize}
}

// Process emits exactly one Output per input note: tasks that fail with a
// transport error are logged and recorded with an empty pred rather than
// aborting the batch. Only a writer failure or an empty input set is fatal.
func (r *Runner) Process(ctx context.Context, items []notes.Note) error {
	total := len(items)
	if total == 0 {
		return errors.New("no items to process")
	}

	start := time.Now()
	written := 0
	for off := 0; off < total; off += r.batchSize {
		end := off + r.batchSize
		if end > total {
			end = total
		}
		batch := items[off:end]

		results := make(chan Output, len(batch))
		var wg sync.WaitGroup
		wg.Add(len(batch))
		for _, item := range batch {
			go func(item notes.Note) {
				defer wg.Done()
				pred, err := r.extractor.Extract(ctx, item.Note)
				if err != nil {
					log.Warn().Err(err).Str("id", string(item.ID)).Msg("extraction failed")
					pred = nil
				}
				if pred == nil {
					pred = extract.Record{}
				}
				results <- Output{ID: item.ID, Pred: pred}
			}(item)
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		// hand each result to the writer as it completes
		for rec := range results {
			if err := r.writer.Write(ctx, rec); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			written++
		}

		log.Info().Int("processed", written).Int("total", total).Msg("batch complete")
	}

	log.Info().Int("items", written).Dur("elapsed", time.Since(start)).Msg("run complete")
	return nil
}
