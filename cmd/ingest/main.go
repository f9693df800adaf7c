package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clinical-extract/internal/ingest"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	out := flag.String("out", "notes.jsonl", "Path of the output notes JSONL file")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal().Msg("Usage: ingest [-out notes.jsonl] file [file ...]")
	}

	if dir := filepath.Dir(*out); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("Error creating output dir")
		}
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating output")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)

	total := 0
	for _, path := range flag.Args() {
		items, err := ingest.Parse(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Error parsing document")
		}
		for _, n := range items {
			if err := enc.Encode(n); err != nil {
				log.Fatal().Err(err).Msg("Error writing note")
			}
		}
		log.Info().Str("file", path).Int("notes", len(items)).Msg("ingested")
		total += len(items)
	}
	log.Info().Int("notes", total).Str("out", *out).Msg("done")
}
