// Command jdextract fetches full job descriptions behind posting URLs.
//
// Usage:
//
//	jdextract -url https://boards.greenhouse.io/acme/jobs/1 -snippet "..."
//	jdextract -batch postings.jsonl -workers 4 > results.jsonl
//	jdextract -serve :8080
//	jdextract -mcp
//
// Batch input is one JSON Request per line ({"url":..,"originalSnippet":..});
// output is one JSON Result per line in input order.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/jdextract/connectivity"
	"github.com/hazyhaar/jdextract/extractor"
	"github.com/hazyhaar/jdextract/horosafe"
	"github.com/hazyhaar/jdextract/kit"
	"github.com/hazyhaar/jdextract/shield"
)

const version = "0.1.0"

type options struct {
	configPath string
	profiles   string
	url        string
	snippet    string
	batch      string
	workers    int
	serve      string
	mcp        bool
	ssrf       bool
	staticOnly bool
	remote     string
	rate       float64
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to jdextract.yaml")
	flag.StringVar(&o.profiles, "profiles", "", "YAML domain profile table (replaces the built-in one)")
	flag.StringVar(&o.url, "url", "", "extract a single posting URL")
	flag.StringVar(&o.snippet, "snippet", "", "snippet for -url (at least 50 characters)")
	flag.StringVar(&o.batch, "batch", "", "JSONL file of requests, - for stdin")
	flag.IntVar(&o.workers, "workers", 4, "concurrent extractions in batch mode")
	flag.StringVar(&o.serve, "serve", "", "serve the HTTP API on this address")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.BoolVar(&o.ssrf, "ssrf", true, "reject private and loopback target URLs")
	flag.BoolVar(&o.staticOnly, "static-only", false, "never launch a browser")
	flag.StringVar(&o.remote, "remote", "", "batch: send extractions to a worker's /api/extract URL")
	flag.Float64Var(&o.rate, "rate", 0, "serve: requests per second per client IP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("jdextract: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := &extractor.Config{}
	if o.configPath != "" {
		c, err := extractor.LoadConfigFile(o.configPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	cfg.Logger = logger
	if o.profiles != "" {
		cfg.ProfilesFile = o.profiles
	}
	if o.staticOnly {
		cfg.Rendered.Disabled = true
	}
	if o.ssrf {
		cfg.URLValidator = horosafe.ValidateURL
	}
	if o.serve != "" {
		cfg.Server.Addr = o.serve
	}
	if o.rate > 0 {
		cfg.Server.RatePerSecond = o.rate
	}

	x, err := extractor.New(cfg)
	if err != nil {
		return err
	}

	switch {
	case o.mcp:
		return runMCP(ctx, x)
	case o.serve != "":
		return runServe(ctx, logger, x, cfg.Server)
	case o.batch != "":
		return runBatch(ctx, logger, x, o)
	case o.url != "":
		return runSingle(ctx, x, o)
	default:
		flag.Usage()
		return errors.New("one of -url, -batch, -serve or -mcp is required")
	}
}

func runSingle(ctx context.Context, x *extractor.Extractor, o options) error {
	ctx = kit.WithTransport(ctx, "cli")
	res := x.Extract(ctx, extractor.Request{URL: o.url, OriginalSnippet: o.snippet})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	return res.Err()
}

func runBatch(ctx context.Context, logger *slog.Logger, x *extractor.Extractor, o options) error {
	in := io.Reader(os.Stdin)
	if o.batch != "-" {
		f, err := os.Open(o.batch)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	reqs, err := readRequests(in)
	if err != nil {
		return err
	}

	router := connectivity.New(connectivity.WithLogger(logger))
	defer router.Close()
	x.RegisterConnectivity(router)
	if o.remote != "" {
		if err := routeRemote(router, x, o.remote, logger); err != nil {
			return err
		}
		logger.Info("jdextract: batch routed", "remote", o.remote)
	}

	ctx = kit.WithTransport(ctx, "batch")
	results := make([]json.RawMessage, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.workers, 1))
	for i, req := range reqs {
		g.Go(func() error {
			out, err := router.Call(gctx, extractor.ServiceName, req)
			if err != nil {
				b, _ := json.Marshal(extractor.Result{Kind: extractor.FetchFailed, Error: "FetchFailed: " + err.Error()})
				out = b
			}
			results[i] = out
			return nil
		})
	}
	g.Wait()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, r := range results {
		if r == nil {
			continue
		}
		w.Write(r)
		w.WriteByte('\n')
	}
	s := x.Stats()
	logger.Info("jdextract: batch done", "requests", len(reqs),
		"static_ok", s.StaticOK, "rendered_ok", s.RenderedOK, "failed", s.Failed)
	return ctx.Err()
}

// routeRemote sends extraction to a worker's /api/extract. Failures and
// an open breaker fall back to the local handler.
func routeRemote(router *connectivity.Router, x *extractor.Extractor, endpoint string, logger *slog.Logger) error {
	router.RegisterTransport("http", connectivity.HTTPFactory(nil))
	cb := connectivity.NewCircuitBreaker()
	return router.Route(extractor.ServiceName, "http", endpoint, nil,
		connectivity.WithFallback(x.Handler(), extractor.ServiceName, logger),
		connectivity.WithCircuitBreaker(cb, extractor.ServiceName),
		connectivity.Recovery(logger),
	)
}

// readRequests reads JSONL, skipping blank lines. Lines are kept raw for
// the connectivity router.
func readRequests(r io.Reader) ([][]byte, error) {
	var out [][]byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), int(horosafe.MaxRequestBody))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var req extractor.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, fmt.Errorf("batch line %d: %w", n, err)
		}
		out = append(out, []byte(line))
	}
	return out, sc.Err()
}

func runServe(ctx context.Context, logger *slog.Logger, x *extractor.Extractor, sc extractor.ServerConfig) error {
	rl := shield.NewRateLimiter(sc.RatePerSecond, sc.RateBurst, "/healthz")
	rl.StartGC(ctx.Done(), time.Minute)

	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(rl) {
		r.Use(mw)
	}
	r.Mount("/", x.Routes())

	var h http.Handler = r
	if len(sc.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: sc.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Trace-ID"},
			MaxAge:         300,
		}).Handler(r)
	}

	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("jdextract: listening", "addr", sc.Addr, "rate", sc.RatePerSecond)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runMCP(ctx context.Context, x *extractor.Extractor) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "jdextract", Version: version}, nil)
	x.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}
