package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"graphbrowser/internal/config"
	"graphbrowser/internal/graph"
	"graphbrowser/internal/projection"
	"graphbrowser/internal/query"
	"graphbrowser/internal/server"
	"graphbrowser/internal/storage"
)

// exitError sets the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "graphbrowser: %v\n", err)
		code := 1
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		os.Exit(code)
	}
}

func run(command string, args []string) error {
	switch command {
	case "serve":
		return handleServe(args)
	case "query":
		return handleQuery(args)
	case "graphs":
		return handleGraphs(args)
	case "clusters":
		return handleClusters(args)
	case "info":
		return handleInfo(args)
	case "import":
		return handleImport(args)
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func usage() {
	fmt.Println("Usage: graphbrowser <command> [options]")
	fmt.Println("Commands: serve, query, graphs, clusters, info, import")
}

// loadConfig reads .env, then the YAML file named by -config or
// GRAPHBROWSER_CONFIG, then the environment.
func loadConfig(path string) (config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}
	if path == "" {
		path = os.Getenv("GRAPHBROWSER_CONFIG")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// app is what every Neo4j-backed command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	client *query.Neo4jClient
	ctx    context.Context
	stop   context.CancelFunc
}

// setup loads the configuration, then connects. The caller must Close the
// returned app.
func setup(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signalContext()
	client, err := query.Connect(ctx, cfg, logger)
	if err != nil {
		stop()
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return &app{cfg: cfg, logger: logger, client: client, ctx: ctx, stop: stop}, nil
}

func (rt *app) Close() {
	if err := rt.client.Close(context.Background()); err != nil {
		rt.logger.Warn("failed to close neo4j driver", "error", err)
	}
	rt.stop()
}

func handleServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to a YAML configuration file")
	addrPtr := fs.String("addr", "", "HTTP listen address (overrides configuration)")
	fs.Parse(args)

	rt, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	addr := firstNonEmpty(*addrPtr, rt.cfg.HTTPAddr)
	srv := server.NewServer(projection.New(rt.client, logger), rt.client, addr, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-rt.ctx.Done():
		logger.Info("received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
	}
	return nil
}

func handleQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to a YAML configuration file")
	graphPtr := fs.String("graph", "", "Graph (database) name, defaults to the configured graph")
	queryPtr := fs.String("q", "", "Cypher query; '-' reads it from stdin")
	clusterPtr := fs.String("cluster", "", "Load the neighbourhood of this cluster id instead of running -q")
	noEdgesPtr := fs.Bool("no-edges", false, "Skip the induced edges pass")
	outputPtr := fs.String("output", "", "Write JSON lines to this file instead of printing the graph")
	edgesOutputPtr := fs.String("edges-output", "", "With -output, write edge lines to this file and keep vertices in -output")
	fs.Parse(args)

	if *edgesOutputPtr != "" && *outputPtr == "" {
		return &exitError{code: 2, err: errors.New("-edges-output requires -output")}
	}

	q := *queryPtr
	if q == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read query from stdin: %w", err)
		}
		q = string(b)
	}

	if *clusterPtr == "" && strings.TrimSpace(q) == "" {
		return &exitError{code: 2, err: errors.New("-q or -cluster is required for 'query'")}
	}

	rt, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer rt.Close()

	graphID := firstNonEmpty(*graphPtr, rt.cfg.DefaultGraph)
	engine := projection.New(rt.client, rt.logger)

	var g *graph.VisualGraph
	if *clusterPtr != "" {
		g, err = engine.LoadCluster(rt.ctx, graphID, *clusterPtr)
	} else {
		g, err = engine.Project(rt.ctx, graphID, q, !*noEdgesPtr)
	}
	if err != nil {
		if errors.Is(err, projection.ErrInvalidArgument) {
			return &exitError{code: 2, err: err}
		}
		return fmt.Errorf("query on graph %s failed: %w", graphID, err)
	}

	if *outputPtr == "" {
		return printJSON(g)
	}
	if err := writeGraphFiles(g, *outputPtr, *edgesOutputPtr); err != nil {
		return err
	}
	rt.logger.Info("graph written",
		"vertices", len(g.Nodes),
		"edges", len(g.Edges),
		"output", *outputPtr,
		"edges_output", *edgesOutputPtr,
	)
	return nil
}

// writeGraphFiles writes g as JSON lines to output, or splits vertices and
// edges across output and edgesOutput when edgesOutput is set.
func writeGraphFiles(g *graph.VisualGraph, output, edgesOutput string) error {
	vertexFile, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	var emitter storage.Emitter = storage.NewJSONLEmitter(vertexFile)
	if edgesOutput != "" {
		edgeFile, err := os.Create(edgesOutput)
		if err != nil {
			vertexFile.Close()
			return fmt.Errorf("failed to create edges output file: %w", err)
		}
		emitter = storage.NewSplitJSONLEmitter(vertexFile, edgeFile)
	}

	if err := storage.WriteGraph(emitter, g); err != nil {
		emitter.Close()
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := emitter.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

func handleGraphs(args []string) error {
	fs := flag.NewFlagSet("graphs", flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to a YAML configuration file")
	fs.Parse(args)

	rt, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer rt.Close()

	names, err := rt.client.ListGraphs(rt.ctx)
	if err != nil {
		return fmt.Errorf("failed to list graphs: %w", err)
	}
	return printJSON(names)
}

func handleClusters(args []string) error {
	fs := flag.NewFlagSet("clusters", flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to a YAML configuration file")
	graphPtr := fs.String("graph", "", "Graph (database) name, defaults to the configured graph")
	fs.Parse(args)

	rt, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer rt.Close()

	graphID := firstNonEmpty(*graphPtr, rt.cfg.DefaultGraph)
	clusters, err := rt.client.ListClusters(rt.ctx, graphID)
	if err != nil {
		return fmt.Errorf("failed to list clusters on graph %s: %w", graphID, err)
	}
	return printJSON(clusters)
}

func handleInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPtr := fs.String("config", "", "Path to a YAML configuration file")
	fs.Parse(args)

	rt, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer rt.Close()

	info, err := rt.client.ServerInfo(rt.ctx)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
