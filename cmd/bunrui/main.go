// Package main is the Bunrui CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/bunrui/internal/cli"
	"github.com/hyperjump/bunrui/internal/cluster"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/embedding"
	"github.com/hyperjump/bunrui/internal/features"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/server"
	"github.com/hyperjump/bunrui/internal/watcher"
	"github.com/hyperjump/bunrui/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bunrui/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When neither exists the built-in defaults are returned with an empty path.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
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
	var err error
	switch command {
	case "server":
		runServer()
	case "features":
		err = runFeatures(os.Args[2:], os.Stdin, os.Stdout)
	case "select-k":
		err = runSelectK(os.Args[2:], os.Stdout)
	case "variance":
		err = runVariance(os.Args[2:], os.Stdin, os.Stdout)
	case "status":
		err = runStatus(os.Args[2:], os.Stdout)
	case "init":
		err = runInit(os.Args[2:], os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("bunrui version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (batches, reloads, request details)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("pooling", cfg.Features.Pooling),
		zap.String("normalization", cfg.Features.Normalization),
	)

	extractor, err := features.NewExtractor(&cfg.Features, logger)
	if err != nil {
		logger.Fatal("Invalid features config", zap.Error(err))
	}
	embedder := newEmbedder(cfg)
	defer embedder.Close()

	srv := server.NewServer(extractor, embedder, &cfg.Server, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if resolvedConfigPath != "" && cfg.Watch.ReloadOrDefault() {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.NewWatcher([]string{resolvedConfigPath}, func(path string) {
			reloadExtractor(srv, path, logger)
		}, watchOpts...)
		if err := w.Start(watchCtx); err != nil {
			logger.Warn("config watch disabled", zap.String("path", resolvedConfigPath), zap.Error(err))
		}
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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
	_ = srv.Stop(ctx)
}

// reloadExtractor rebuilds the extractor from the config at path and swaps it
// into srv. An invalid config keeps the current extractor.
func reloadExtractor(srv *server.Server, path string, logger *zap.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	extractor, err := features.NewExtractor(&cfg.Features, logger)
	if err != nil {
		logger.Warn("config reload rejected", zap.String("path", path), zap.Error(err))
		return
	}
	srv.SetExtractor(extractor)
	logger.Info("features config reloaded",
		zap.String("path", path),
		zap.String("pooling", cfg.Features.Pooling),
		zap.String("normalization", cfg.Features.Normalization),
	)
}

func newEmbedder(cfg *config.Config) embedding.TokenEmbedder {
	return embedding.NewMockTokenEmbedder(cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens, cfg.Embedding.CacheSize)
}

func runFeatures(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("features", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "-", "JSON request file with matrices or texts (- for stdin)")
	pooling := fs.String("pooling", "", "pooling strategy override: max or mean")
	norm := fs.String("normalization", "", "normalization law override: l1, zscore, minmax, decimal")
	dims := fs.Int("dimensions", -1, "enforced vector dimension override (0 disables the check)")
	serverURL := fs.String("server", "", "server URL; empty computes locally")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseFormat(*output)
	if err != nil {
		return err
	}
	var req models.FeatureRequest
	if err := readJSON(*input, stdin, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	var set *models.FeatureSet
	if *serverURL != "" {
		var local []string
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "pooling", "normalization", "dimensions":
				local = append(local, "-"+f.Name)
			}
		})
		if len(local) > 0 {
			return fmt.Errorf("%s cannot be combined with -server; the server uses its own configuration", strings.Join(local, ", "))
		}
		set = &models.FeatureSet{}
		if err := postJSON(*serverURL+"/api/v1/features", &req, set); err != nil {
			return err
		}
		return cli.WriteFeatures(stdout, set, format)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *pooling != "" {
		cfg.Features.Pooling = *pooling
	}
	if *norm != "" {
		cfg.Features.Normalization = *norm
	}
	if *dims >= 0 {
		cfg.Features.Dimensions = *dims
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	extractor, err := features.NewExtractor(&cfg.Features, logger)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if len(req.Texts) > 0 {
		embedder := newEmbedder(cfg)
		defer embedder.Close()
		set, err = extractor.ExtractTexts(ctx, embedder, req.Texts)
	} else if req.Masks != nil {
		set, err = extractor.ExtractMasked(ctx, req.Matrices, req.Masks)
	} else {
		set, err = extractor.Extract(ctx, req.Matrices)
	}
	if err != nil {
		return err
	}
	return cli.WriteFeatures(stdout, set, format)
}

func runSelectK(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("select-k", flag.ContinueOnError)
	silhouettes := fs.String("silhouettes", "", "comma-separated silhouette score per candidate")
	vp := fs.String("vp", "", "comma-separated reference score per candidate")
	kMin := fs.Int("k-min", 2, "cluster count of the first candidate")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseFormat(*output)
	if err != nil {
		return err
	}
	sil, err := parseFloatList(*silhouettes)
	if err != nil {
		return fmt.Errorf("silhouettes: %w", err)
	}
	ref, err := parseFloatList(*vp)
	if err != nil {
		return fmt.Errorf("vp: %w", err)
	}
	candidates, err := cluster.CandidateRange(*kMin, len(sil))
	if err != nil {
		return err
	}
	sel, err := cluster.SelectK(candidates, sil, ref)
	if err != nil {
		return err
	}
	return cli.WriteSelection(stdout, sel, format)
}

func runVariance(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("variance", flag.ContinueOnError)
	input := fs.String("input", "-", "JSON file with vectors, labels and centers (- for stdin)")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseFormat(*output)
	if err != nil {
		return err
	}
	var req models.VarianceRequest
	if err := readJSON(*input, stdin, &req); err != nil {
		return err
	}
	resp := &models.VarianceResponse{}
	if req.Cluster != nil {
		v, err := cluster.Variance(req.Vectors, req.Labels, req.Centers, *req.Cluster)
		if err != nil {
			return err
		}
		resp.Cluster, resp.Variance = req.Cluster, &v
	} else {
		vs, err := cluster.Variances(req.Vectors, req.Labels, req.Centers)
		if err != nil {
			return err
		}
		resp.Variances = vs
	}
	return cli.WriteVariances(stdout, resp, format)
}

type statusResponse struct {
	Pooling            string  `json:"pooling"`
	Normalization      string  `json:"normalization"`
	Dimensions         int     `json:"dimensions"`
	Workers            int     `json:"workers"`
	NewMin             float64 `json:"new_min"`
	NewMax             float64 `json:"new_max"`
	MaxDecimalExponent int     `json:"max_decimal_exponent"`
	TextInput          bool    `json:"text_input"`
}

func runStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := cli.ParseFormat(*output)
	if err != nil {
		return err
	}
	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(stdout, "pooling:              %s\n", status.Pooling)
	fmt.Fprintf(stdout, "normalization:        %s\n", status.Normalization)
	if status.Dimensions > 0 {
		fmt.Fprintf(stdout, "dimensions:           %d\n", status.Dimensions)
	}
	fmt.Fprintf(stdout, "workers:              %d\n", status.Workers)
	fmt.Fprintf(stdout, "minmax_range:         [%s, %s]\n", cli.FormatFloat(status.NewMin), cli.FormatFloat(status.NewMax))
	fmt.Fprintf(stdout, "max_decimal_exponent: %d\n", status.MaxDecimalExponent)
	fmt.Fprintf(stdout, "text_input:           %t\n", status.TextInput)
	return nil
}

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *path)
	}
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *path)
	return nil
}

// parseFloatList parses "0.2, 0.5,0.3" into a slice. Empty input is an error.
func parseFloatList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("no values given")
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// readJSON decodes the file at path, or stdin when path is "-".
func readJSON(path string, stdin io.Reader, v interface{}) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func postJSON(url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println(`bunrui - Document feature extraction and cluster-count selection

Usage:
  bunrui server [flags]       Start the HTTP server
  bunrui features [flags]     Pool and normalize token matrices (or texts) into feature vectors
  bunrui select-k [flags]     Pick the cluster count with the largest silhouette gap
  bunrui variance [flags]     Per-cluster variance of distances to the cluster center
  bunrui status [flags]       Show the running server's pipeline settings
  bunrui init [flags]         Write a default config file
  bunrui version              Show version
  bunrui help                 Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/bunrui/config.yaml)
  --debug            Enable debug logging

Features Flags:
  --config string          Config file path
  --input string           JSON request file, {"matrices": [...]} or {"texts": [...]} (default: stdin)
  --pooling string         Override pooling strategy (max, mean)
  --normalization string   Override normalization law (l1, zscore, minmax, decimal)
  --dimensions int         Override the enforced vector dimension (0 disables the check)
  --server string          Send the request to a running server instead of computing locally
  --output string          Output format: text or json (default: text)

Select-k Flags:
  --silhouettes string   Comma-separated silhouette scores
  --vp string            Comma-separated reference scores
  --k-min int            Cluster count of the first candidate (default: 2)
  --output string        Output format: text or json

Variance Flags:
  --input string    JSON file with vectors, labels, centers and optional cluster (default: stdin)
  --output string   Output format: text or json

Examples:
  bunrui init
  bunrui server
  echo '{"matrices": [[[1,2],[3,0]]]}' | bunrui features --dimensions 0 --pooling max --normalization decimal
  bunrui select-k --silhouettes 0.2,0.5,0.3 --vp 0.1,0.1,0.4
  bunrui variance --input clusters.json --output json`)
}
