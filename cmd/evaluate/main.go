package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clinical-extract/internal/evaluate"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	groundTruth := flag.String("ground-truth", "", "Ground-truth JSONL ({id, ground_truth})")
	preds := flag.String("pred", "", "Model output JSONL ({id, pred})")
	flag.Parse()

	if *groundTruth == "" || *preds == "" {
		log.Fatal().Msg("Usage: evaluate -ground-truth ground_truth.jsonl -pred model_outputs.jsonl")
	}

	gtMap, err := evaluate.LoadJSONL(*groundTruth)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading ground truth")
	}
	prMap, err := evaluate.LoadJSONL(*preds)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading predictions")
	}

	report := evaluate.Score(gtMap, prMap)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Error rendering report")
	}
	fmt.Println(string(out))
}
