package extract

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"clinical-extract/internal/notes"
)

// ExamplesPlaceholder marks where retrieved few-shot examples go in the
// prompt template. Templates without it simply never get examples.
const ExamplesPlaceholder = "{{EXAMPLES}}"

const retrySuffix = "\n\nReturn ONLY a valid JSON object with the required keys. No prose."

// Completer performs one chat-completion exchange. Transport failures come
// back as errors; an empty response is not an error.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Retriever supplies a formatted block of annotated examples similar to the
// given note text.
type Retriever interface {
	Retrieve(ctx context.Context, noteText string) (string, error)
}

// Extractor turns one note into a Record with a single corrective retry:
// when the first response does not parse, the prompt is re-sent once with a
// strict instruction appended. A second empty parse is accepted as-is.
// Transport errors are returned to the caller on either attempt.
type Extractor struct {
	client   Completer
	template string
	examples Retriever // optional
}

func NewExtractor(client Completer, template string, examples Retriever) *Extractor {
	return &Extractor{client: client, template: template, examples: examples}
}

func (e *Extractor) Extract(ctx context.Context, noteText string) (Record, error) {
	prompt := e.buildPrompt(ctx, noteText)

	txt, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if rec := ParseRecord(txt); len(rec) > 0 {
		return rec, nil
	}

	txt, err = e.client.Complete(ctx, prompt+retrySuffix)
	if err != nil {
		return nil, err
	}
	return ParseRecord(txt), nil
}

func (e *Extractor) buildPrompt(ctx context.Context, noteText string) string {
	prompt := notes.BuildPrompt(e.template, noteText)
	if !strings.Contains(prompt, ExamplesPlaceholder) {
		return prompt
	}
	block := ""
	if e.examples != nil {
		b, err := e.examples.Retrieve(ctx, noteText)
		if err != nil {
			// examples are an enhancement; the extraction proceeds without them
			log.Warn().Err(err).Msg("example retrieval failed")
		} else {
			block = b
		}
	}
	return strings.ReplaceAll(prompt, ExamplesPlaceholder, block)
}
