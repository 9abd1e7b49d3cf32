// Package main is the sentembed CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/sentembed/internal/cli"
	"github.com/hyperjump/sentembed/internal/config"
	"github.com/hyperjump/sentembed/internal/embedding"
	"github.com/hyperjump/sentembed/internal/models"
	"github.com/hyperjump/sentembed/internal/search"
	"github.com/hyperjump/sentembed/internal/server"
	"github.com/hyperjump/sentembed/internal/similarity"
	"github.com/hyperjump/sentembed/internal/tracing"
	"github.com/hyperjump/sentembed/internal/watcher"
	"github.com/hyperjump/sentembed/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/sentembed/config.yaml"
	defaultServerURL  = "http://localhost:5000"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present; if neither exists the config is built
// from .env, SENTEMBED_* variables and defaults, and the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, cwdErr := os.Getwd()
		if cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg, err := config.FromEnv(cwd)
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "embed":
		runEmbed()
	case "rank":
		runRank()
	case "compare":
		runCompare()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("sentembed version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, level, err := utils.NewLeveledLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("provider", cfg.Embedding.Provider),
	)

	shutdownTracing, err := tracing.Setup(cfg.Tracing, os.Stdout)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedding provider", zap.Error(err))
	}
	defer engine.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if resolvedConfigPath != "" {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(resolvedConfigPath, func(path string) {
			reloadConfig(path, level, *debug, logger)
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Warn("config watcher disabled", zap.String("path", resolvedConfigPath), zap.Error(err))
		}
	}

	srv := server.NewServer(engine, &cfg.Server, cfg.Embedding.Model, version, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// reloadConfig re-reads path and applies the settings that can change at
// runtime. Only debug is live; the rest needs a restart.
func reloadConfig(path string, level zap.AtomicLevel, forceDebug bool, logger *zap.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	debug := cfg.Debug || forceDebug
	utils.SetDebug(level, debug)
	logger.Info("config reloaded", zap.String("path", path), zap.Bool("debug", debug))
}

func newEngine(cfg *config.Config, logger *zap.Logger) (*search.Engine, error) {
	provider, err := embedding.NewProvider(cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}
	return search.NewEngine(provider, logger), nil
}

// withEngine builds an in-process engine from the config at configPath.
func withEngine(configPath string, fn func(*config.Config, *search.Engine) error) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	return fn(cfg, engine)
}

// flagsFirst moves every flag of fs (and its value) ahead of the positional
// arguments so flag.Parse sees them all: "rank --query q a b --top-k 1".
// Arguments after "--" stay positional.
func flagsFirst(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := fs.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func parseOutput(s string, allowed ...cli.OutputFormat) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s, allowed...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = embed in-process)`)
	outputFormat := fs.String("output", "text", "output format: text, compact (one vector per line), or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: sentembed embed [flags] <text>...\n\nEach argument is embedded separately.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(flagsFirst(fs, os.Args[2:]))
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	format := parseOutput(*outputFormat, cli.OutputText, cli.OutputCompact, cli.OutputJSON)

	texts := fs.Args()
	resp, err := embedTexts(context.Background(), *serverURL, *configPath, texts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embed failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEmbeddings(os.Stdout, texts, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func embedTexts(ctx context.Context, serverURL, configPath string, texts []string) (*models.EmbedResponse, error) {
	if serverURL != "" {
		return newAPIClient(serverURL).embed(ctx, texts)
	}
	var resp *models.EmbedResponse
	err := withEngine(configPath, func(_ *config.Config, engine *search.Engine) error {
		vecs, err := engine.Embed(ctx, texts)
		if err != nil {
			return err
		}
		resp = &models.EmbedResponse{Embeddings: vecs, Dimensions: engine.Dimensions()}
		return nil
	})
	return resp, err
}

func runRank() {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = rank in-process)`)
	query := fs.String("query", "", "query text (required)")
	topK := fs.Int("top-k", 0, "return only the best n chunks (0 = all)")
	outputFormat := fs.String("output", "text", "output format: text, compact (one chunk per line), or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: sentembed rank [flags] --query <text> <chunk>...\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Examples:
  sentembed rank --query "small pets" "cats" "stock prices" "kittens"
  sentembed rank --top-k 1 --output json --query "small pets" "cats" "dogs"
`)
	}
	_ = fs.Parse(flagsFirst(fs, os.Args[2:]))
	if *query == "" || fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	format := parseOutput(*outputFormat, cli.OutputText, cli.OutputCompact, cli.OutputJSON)

	req := models.SimilarityRequest{Query: *query, Chunks: fs.Args(), TopK: *topK}
	ranked, err := rankChunks(context.Background(), *serverURL, *configPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rank failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRanked(os.Stdout, *query, ranked, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func rankChunks(ctx context.Context, serverURL, configPath string, req models.SimilarityRequest) ([]models.RankedChunk, error) {
	if serverURL != "" {
		return newAPIClient(serverURL).rank(ctx, req)
	}
	var ranked []models.RankedChunk
	err := withEngine(configPath, func(_ *config.Config, engine *search.Engine) error {
		var err error
		ranked, err = engine.Rank(ctx, req.Query, req.Chunks, req.TopK)
		return err
	})
	return ranked, err
}

func runCompare() {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = compare in-process)`)
	a := fs.String("a", "", "vectors_a as JSON: [f, ...] or [[f, ...], ...] (required)")
	b := fs.String("b", "", "vectors_b as JSON: [f, ...] or [[f, ...], ...] (required)")
	mode := fs.String("mode", "", "auto, one_to_many, many_to_one, pairwise, or cross (default auto)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: sentembed compare [flags] --a <json> --b <json>\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Examples:
  sentembed compare --a '[1,0]' --b '[[1,0],[0,1]]'
  sentembed compare --mode cross --a '[[1,0],[0,1]]' --b '[[1,0],[0,1]]'
`)
	}
	_ = fs.Parse(os.Args[2:])
	if *a == "" || *b == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := parseOutput(*outputFormat, cli.OutputText, cli.OutputCompact, cli.OutputJSON)

	resp, err := compareVectors(context.Background(), *serverURL, json.RawMessage(*a), json.RawMessage(*b), *mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compare failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSimilarities(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// compareVectors needs no provider in direct mode, so no config is loaded.
func compareVectors(ctx context.Context, serverURL string, a, b json.RawMessage, mode string) (*models.VectorSimilarityResponse, error) {
	if serverURL != "" {
		return newAPIClient(serverURL).compare(ctx, a, b, mode)
	}
	req := models.VectorSimilarityRequest{Mode: mode}
	var in models.VectorInput
	if err := json.Unmarshal(a, &in); err != nil {
		return nil, similarity.Validationf("compare", "--a: %v", err)
	}
	req.VectorsA = &in
	var in2 models.VectorInput
	if err := json.Unmarshal(b, &in2); err != nil {
		return nil, similarity.Validationf("compare", "--b: %v", err)
	}
	req.VectorsB = &in2
	m, err := req.Validate()
	if err != nil {
		return nil, err
	}
	res, err := similarity.CompareMode(req.VectorsA.Set, req.VectorsB.Set, m)
	if err != nil {
		return nil, err
	}
	return &models.VectorSimilarityResponse{Similarities: res, Mode: res.Mode}, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = describe the configured provider)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat, cli.OutputText, cli.OutputJSON)

	status, err := fetchStatus(context.Background(), *serverURL, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func fetchStatus(ctx context.Context, serverURL, configPath string) (*models.StatusResponse, error) {
	if serverURL != "" {
		return newAPIClient(serverURL).status(ctx)
	}
	var status *models.StatusResponse
	err := withEngine(configPath, func(cfg *config.Config, engine *search.Engine) error {
		status = &models.StatusResponse{
			Version:  version,
			Model:    cfg.Embedding.Model,
			Provider: engine.Info(),
		}
		return nil
	})
	return status, err
}

func printUsage() {
	fmt.Println(`sentembed - Local sentence embedding and similarity service

Usage:
  sentembed server [flags]                          Start the HTTP server
  sentembed embed [flags] <text>...                 Embed texts
  sentembed rank [flags] --query <q> <chunk>...     Rank chunks by similarity to a query
  sentembed compare [flags] --a <json> --b <json>   Cosine similarity between vector sets
  sentembed status [flags]                          Show provider, cache and breaker status
  sentembed version                                 Show version
  sentembed help                                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/sentembed/config.yaml)
  --debug            Enable debug logging

Client Flags (embed, rank, compare, status):
  --server string    Server URL (default: http://localhost:5000). Use empty (--server "") to run in-process.
  --config string    Config file path for in-process mode
  --output string    Output format: text, compact or json (status: text or json)

Rank Flags:
  --query string     Query text (required)
  --top-k int        Return only the best n chunks (default: 0 = all)

Compare Flags:
  --a, --b string    Vector JSON: a single vector [f, ...] or a set [[f, ...], ...]
  --mode string      auto, one_to_many, many_to_one, pairwise or cross

Examples:
  sentembed server
  sentembed embed "hello world" "good morning"
  sentembed rank --query "small pets" "cats" "stock prices" "kittens"
  sentembed rank --server "" --output json --query "pets" "cats" "dogs"
  sentembed compare --a '[1,0]' --b '[[1,0],[0,1]]'
  sentembed status --output json`)
}
