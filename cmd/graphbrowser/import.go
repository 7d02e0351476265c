package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"graphbrowser/internal/ingest"
	"graphbrowser/internal/loader"
)

func handleImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to a YAML configuration file")
	graphPtr := fs.String("graph", "", "Graph (database) name, defaults to the configured graph")
	filePtr := fs.String("file", "", "Customer 360 CSV file to import")
	separatorPtr := fs.String("separator", ",", "CSV column separator")
	batchPtr := fs.Int("batch", 0, "Rows per write transaction (overrides configuration)")
	wipePtr := fs.Bool("wipe", false, "Delete all data in the graph before importing")
	createPtr := fs.Bool("create", false, "Create the graph database if it does not exist")
	fs.Parse(args)

	if *filePtr == "" {
		return errors.New("-file is required for 'import'")
	}
	sep, size := utf8.DecodeRuneInString(*separatorPtr)
	if size == 0 || size != len(*separatorPtr) {
		return fmt.Errorf("-separator must be a single character, got %q", *separatorPtr)
	}

	file, err := os.Open(*filePtr)
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	rt, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx, logger := rt.ctx, rt.logger

	graphID := firstNonEmpty(*graphPtr, rt.cfg.DefaultGraph)
	batchSize := rt.cfg.ImportBatch
	if *batchPtr > 0 {
		batchSize = *batchPtr
	}

	l := loader.NewNeo4jLoader(rt.client.Driver(), graphID)
	if *createPtr {
		if err := l.CreateDatabase(ctx); err != nil {
			return fmt.Errorf("failed to create graph %s: %w", graphID, err)
		}
	}
	if *wipePtr {
		logger.Info("wiping graph", "graph", graphID)
		if err := l.Wipe(ctx); err != nil {
			return fmt.Errorf("failed to wipe graph %s: %w", graphID, err)
		}
	}
	if err := l.ApplyConstraints(ctx, ingest.VertexKeys); err != nil {
		return fmt.Errorf("failed to apply constraints on graph %s: %w", graphID, err)
	}

	start := time.Now()
	logger.Info("starting import", "file", *filePtr, "graph", graphID, "batch", batchSize)

	importer := ingest.NewImporter(l, ingest.Options{Separator: sep, BatchSize: batchSize}, logger)
	stats, err := importer.Import(ctx, file)
	if err != nil {
		return fmt.Errorf("import failed after %d rows: %w", stats.Rows, err)
	}

	logger.Info("done", "duration", time.Since(start).String())
	return printJSON(stats)
}
