package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/internal/ntriples"
	"github.com/sesamestream/sesamestream/pkg/config"
)

// runIngest reads N-Triples from path (or stdin if path is empty) and feeds
// every resulting ground triple into a fresh index with an infinite TTL,
// printing how many statements matched at least one live pattern. With no
// admitted queries this is always zero — ingest is meant to be piped ahead
// of "serve", or used to sanity-check a document parses.
func runIngest(cfg *config.Config, logger *zap.Logger, path string) error {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	triples, err := ntriples.NewParser(string(data)).Parse()
	if err != nil {
		return fmt.Errorf("parse N-Triples: %w", err)
	}

	e, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	e.Start()
	defer e.Shutdown()

	matched := 0
	for _, t := range triples {
		if e.Index.AddStatement(0, model.TupleFromTriple(t)) {
			matched++
		}
	}

	fmt.Printf("ingested %d triples, %d matched a live pattern\n", len(triples), matched)
	return nil
}
