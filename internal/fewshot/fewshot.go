package fewshot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// Embedder produces an embedding for one text. The langchaingo embedder
// satisfies this; tests stub it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Example pairs a note with its known extraction. Example files are
// line-delimited JSON.
type Example struct {
	Note       string         `json:"note"`
	Extraction map[string]any `json:"extraction"`
}

// Store keeps annotated example notes in a chromem collection and retrieves
// the ones most similar to an incoming note, formatted as a prompt block.
type Store struct {
	collection *chromem.Collection
	embedder   Embedder
	topK       int
}

const collectionName = "note_examples"

// Open creates or reopens the example store. An empty path keeps it in
// memory.
func Open(path string, embedder Embedder, topK int) (*Store, error) {
	var cdb *chromem.DB
	var err error
	if path == "" {
		cdb = chromem.NewDB()
	} else {
		cdb, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open example store: %w", err)
		}
	}
	collection, err := cdb.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open example collection: %w", err)
	}
	if topK < 1 {
		topK = 1
	}
	return &Store{collection: collection, embedder: embedder, topK: topK}, nil
}

// Index loads examples from a JSONL file and adds them to the collection.
// A non-empty collection is assumed to be already indexed and left alone.
func (s *Store) Index(ctx context.Context, path string) error {
	if s.collection.Count() > 0 {
		log.Debug().Int("examples", s.collection.Count()).Msg("example store already indexed")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open examples: %w", err)
	}
	defer f.Close()

	var docs []chromem.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	i := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return fmt.Errorf("examples %s line %d: %w", path, i+1, err)
		}
		embedding, err := s.embedder.EmbedQuery(ctx, ex.Note)
		if err != nil {
			return fmt.Errorf("embed example %d: %w", i, err)
		}
		extraction, err := json.Marshal(ex.Extraction)
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:        fmt.Sprintf("example-%d", i),
			Content:   ex.Note,
			Metadata:  map[string]string{"extraction": string(extraction)},
			Embedding: embedding,
		})
		i++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no examples in %s", path)
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index examples: %w", err)
	}
	log.Info().Int("examples", len(docs)).Msg("indexed few-shot examples")
	return nil
}

// Retrieve returns the top-k most similar examples as a prompt block, or an
// empty string when the store is empty.
func (s *Store) Retrieve(ctx context.Context, noteText string) (string, error) {
	n := s.topK
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n == 0 {
		return "", nil
	}

	embedding, err := s.embedder.EmbedQuery(ctx, noteText)
	if err != nil {
		return "", fmt.Errorf("embed note: %w", err)
	}
	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       n,
	})
	if err != nil {
		return "", fmt.Errorf("query examples: %w", err)
	}

	var b strings.Builder
	for _, res := range results {
		b.WriteString("Note:\n")
		b.WriteString(res.Content)
		b.WriteString("\nExtraction:\n")
		b.WriteString(res.Metadata["extraction"])
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}
