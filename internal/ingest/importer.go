package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"graphbrowser/internal/graph"
	"graphbrowser/internal/loader"
	"graphbrowser/internal/metrics"

	"golang.org/x/sync/errgroup"
)

const DefaultBatchSize = 500

// Loader is the write side of an import.
type Loader interface {
	BatchLoadVertices(ctx context.Context, label, key string, rows []map[string]any) error
	BatchLoadEdges(ctx context.Context, rel loader.Relation, pairs []loader.Pair) error
}

// ContainsCustomer is the relation written for every CSV line.
var ContainsCustomer = loader.Relation{
	Type:        graph.EdgeContainsCustomer,
	SourceLabel: graph.VertexCluster,
	SourceKey:   graph.PropClusterID,
	TargetLabel: graph.VertexCustomer,
	TargetKey:   graph.PropSrcCustomerID,
}

// VertexKeys maps each imported vertex label to its unique key property.
var VertexKeys = map[string]string{
	graph.VertexCluster:  graph.PropClusterID,
	graph.VertexCustomer: graph.PropSrcCustomerID,
}

type Options struct {
	Separator rune
	BatchSize int
}

type Stats struct {
	Rows      int `json:"rows"`
	Clusters  int `json:"clusters"`
	Customers int `json:"customers"`
	Edges     int `json:"edges"`
	Batches   int `json:"batches"`
}

// Importer loads a Customer 360 CSV export into a graph. Parsing and writing
// run as two stages so the next batch is read while the previous one is
// written; batches are written one at a time and in order.
type Importer struct {
	loader Loader
	opts   Options
	logger *slog.Logger
}

func NewImporter(l Loader, opts Options, logger *slog.Logger) *Importer {
	if opts.Separator == 0 {
		opts.Separator = ','
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{loader: l, opts: opts, logger: logger}
}

type batch struct {
	clusters  []map[string]any
	customers []map[string]any
	edges     []loader.Pair
}

func (b *batch) size() int { return len(b.edges) }

// Import reads r to the end and writes every line. On error the stats
// reflect what was parsed so far; written batches are not rolled back.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan *batch, 1)

	g.Go(func() error {
		defer close(batches)
		return im.read(gctx, r, batches, &stats)
	})

	g.Go(func() error {
		for b := range batches {
			if err := im.write(gctx, b); err != nil {
				return err
			}
			stats.Batches++
			im.logger.Debug("batch written", "batch", stats.Batches, "rows", b.size())
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		im.logger.Error("import failed", "rows", stats.Rows, "batches", stats.Batches, "error", err)
		return stats, err
	}
	im.logger.Info("import complete",
		"rows", stats.Rows,
		"clusters", stats.Clusters,
		"customers", stats.Customers,
		"batches", stats.Batches)
	return stats, nil
}

func (im *Importer) read(ctx context.Context, r io.Reader, out chan<- *batch, stats *Stats) error {
	reader := csv.NewReader(r)
	reader.Comma = im.opts.Separator
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	columns, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read csv header: %w", err)
	}
	h, err := newHeader(columns)
	if err != nil {
		return err
	}

	// index of each cluster in the current batch
	batchClusters := make(map[string]int)
	seenClusters := make(map[string]bool)
	seenCustomers := make(map[string]bool)
	current := &batch{}

	flush := func() error {
		if current.size() == 0 {
			return nil
		}
		select {
		case out <- current:
		case <-ctx.Done():
			return ctx.Err()
		}
		current = &batch{}
		clear(batchClusters)
		return nil
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		parsed, err := h.parse(line, record)
		if err != nil {
			return err
		}

		stats.Rows++
		metrics.ImportedRows.Inc()

		// a cluster spans many lines; merge its properties within the batch
		if i, ok := batchClusters[parsed.clusterID]; ok {
			for k, v := range parsed.cluster {
				current.clusters[i][k] = v
			}
		} else {
			batchClusters[parsed.clusterID] = len(current.clusters)
			current.clusters = append(current.clusters, parsed.cluster)
		}
		if !seenClusters[parsed.clusterID] {
			seenClusters[parsed.clusterID] = true
			stats.Clusters++
		}
		current.customers = append(current.customers, parsed.customer)
		current.edges = append(current.edges, loader.Pair{Source: parsed.clusterID, Target: parsed.customerID})
		stats.Edges++

		if !seenCustomers[parsed.customerID] {
			seenCustomers[parsed.customerID] = true
			stats.Customers++
		}

		if current.size() >= im.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (im *Importer) write(ctx context.Context, b *batch) error {
	if err := im.loader.BatchLoadVertices(ctx, graph.VertexCluster, graph.PropClusterID, b.clusters); err != nil {
		return err
	}
	if err := im.loader.BatchLoadVertices(ctx, graph.VertexCustomer, graph.PropSrcCustomerID, b.customers); err != nil {
		return err
	}
	return im.loader.BatchLoadEdges(ctx, ContainsCustomer, b.edges)
}
