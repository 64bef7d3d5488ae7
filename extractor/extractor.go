// Package extractor fetches the full description of a job posting.
//
// A caller supplies the posting URL and the short snippet it already has.
// The pipeline picks the domain profile for the URL, then tries each fetch
// tier in order of cost:
//
//	static (HTTP GET + selectors)  ->  rendered (headless browser + selectors)
//
// The first tier whose normalized text passes the quality gate wins. When
// every tier fails the result carries both error messages.
//
// Usage:
//
//	x, err := extractor.New(&extractor.Config{})
//	res := x.Extract(ctx, extractor.Request{URL: u, OriginalSnippet: s})
//	x.RegisterMCP(mcpServer)
//	x.RegisterConnectivity(router)
//	mux.Mount("/", x.Routes())
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/jdextract/extractor/internal/profile"
	"github.com/hazyhaar/jdextract/extractor/internal/quality"
	"github.com/hazyhaar/jdextract/extractor/internal/rendered"
	"github.com/hazyhaar/jdextract/extractor/internal/static"
	"github.com/hazyhaar/jdextract/extractor/internal/tier"
	"github.com/hazyhaar/jdextract/idgen"
	"github.com/hazyhaar/jdextract/kit"
)

// MinSnippetLength is the shortest snippet accepted, in characters.
const MinSnippetLength = 50

type namedTier struct {
	name  tier.Method
	fetch tier.Func
}

// Extractor runs the tiered pipeline. Safe for concurrent use.
type Extractor struct {
	cfg      *Config
	registry *profile.Registry
	tiers    []namedTier
	logger   *slog.Logger
	stats    stats
}

// New builds an Extractor. It fails only when ProfilesFile cannot be loaded.
// cfg is copied, never modified. Zero fields take their defaults, so a zero
// threshold such as Quality.MinImprovement cannot be requested.
func New(cfg *Config) (*Extractor, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	cfg = &c
	cfg.defaults()
	logger := cfg.Logger

	reg := cfg.Registry
	if reg == nil && cfg.ProfilesFile != "" {
		r, err := profile.LoadFile(cfg.ProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("extractor: %w", err)
		}
		reg = r
	}
	if reg == nil {
		reg = profile.Default()
	}

	scanner := tier.NewScanner(logger)
	scanner.Criteria = cfg.Quality.criteria()

	st := static.New(static.Config{
		Timeout:      cfg.Static.Timeout,
		MaxRedirects: cfg.Static.MaxRedirects,
		MaxBytes:     cfg.Static.MaxBodyBytes,
		UserAgent:    cfg.UserAgent,
		URLValidator: cfg.URLValidator,
		Markdown:     cfg.Static.Markdown,
		Readability:  cfg.Static.Readability,
		Transport:    cfg.Transport,
		Scanner:      scanner,
		Logger:       logger,
	})
	tiers := []namedTier{{tier.Static, st.Fetch}}

	if !cfg.Rendered.Disabled {
		launch := cfg.Launcher
		if launch == nil {
			launch = &rendered.RodLauncher{
				Bin:            cfg.Rendered.Bin,
				NoStealth:      cfg.Rendered.NoStealth,
				BlockResources: cfg.Rendered.BlockResources,
				Logger:         logger,
			}
		}
		rd := rendered.New(rendered.Config{
			NavTimeout:     cfg.Rendered.NavTimeout,
			WaitTimeout:    cfg.Rendered.WaitTimeout,
			ExtractTimeout: cfg.Rendered.ExtractTimeout,
			UserAgent:      cfg.UserAgent,
			Launcher:       launch,
			Scanner:        scanner,
			Logger:         logger,
		})
		tiers = append(tiers, namedTier{tier.Rendered, guarded(cfg.URLValidator, rd.Fetch)})
	}

	return &Extractor{cfg: cfg, registry: reg, tiers: tiers, logger: logger}, nil
}

func (q QualityConfig) criteria() quality.Criteria {
	c := quality.DefaultCriteria()
	if q.MinLength > 0 {
		c.MinLength = q.MinLength
	}
	if q.MinImprovement > 0 {
		c.MinImprovement = q.MinImprovement
	}
	if q.MinKeywords > 0 {
		c.MinKeywords = q.MinKeywords
	}
	return c
}

// guarded checks the target URL before the browser is launched. Redirects
// followed inside the browser are not re-checked.
func guarded(validate func(string) error, fetch tier.Func) tier.Func {
	if validate == nil {
		return fetch
	}
	return func(ctx context.Context, url, snippet string, p profile.Profile) tier.Result {
		if err := validate(url); err != nil {
			return tier.Fail(tier.FetchFailed, "", "url blocked: %v", err)
		}
		return fetch(ctx, url, snippet, p)
	}
}

// Registry returns the profile table in use.
func (x *Extractor) Registry() *profile.Registry { return x.registry }

// Profile returns the profile that would be applied to url.
func (x *Extractor) Profile(url string) Profile { return x.registry.Lookup(url) }

// Extract runs the pipeline for one posting. It never returns an error:
// every failure is described by the Result.
func (x *Extractor) Extract(ctx context.Context, req Request) Result {
	if kit.GetRequestID(ctx) == "" {
		ctx = kit.WithRequestID(ctx, idgen.New())
	}
	log := x.logger.With(requestAttrs(ctx, req.URL)...)
	start := time.Now()
	x.stats.requests.Add(1)

	if res, ok := checkInput(req); !ok {
		x.stats.invalid.Add(1)
		log.Debug("extractor: invalid input", "error", res.Error)
		return res
	}

	p := x.registry.Lookup(req.URL)
	log.Debug("extractor: profile", "match", p.MatchSuffix, "selectors", len(p.Selectors))

	var failures []string
	var last Result
	finalURL := ""
	for _, t := range x.tiers {
		if err := ctx.Err(); err != nil {
			last = tier.Fail(tier.FetchFailed, finalURL, "%v", err)
			failures = append(failures, string(t.name)+": "+last.Error)
			break
		}

		res := x.run(ctx, t, req, p)
		if res.FinalURL != "" {
			finalURL = res.FinalURL
		}
		if res.Success {
			x.stats.succeeded(t.name)
			x.finish(log, start, "method", res.Method, "selector", res.Selector, "chars", utf8.RuneCountInString(res.Description))
			return res
		}
		log.Debug("extractor: tier failed", "tier", t.name, "kind", res.Kind, "error", res.Error)
		x.stats.rejected(res.Kind)
		failures = append(failures, string(t.name)+": "+res.Error)
		last = res
	}

	x.stats.failed.Add(1)
	out := Result{
		Kind:     last.Kind,
		FinalURL: finalURL,
		Error:    strings.Join(failures, "; "),
	}
	x.finish(log, start, "kind", out.Kind)
	return out
}

// run calls one tier and turns a panic into a ResourceError.
func (x *Extractor) run(ctx context.Context, t namedTier, req Request, p profile.Profile) (res tier.Result) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("extractor: tier panic", "tier", t.name, "url", req.URL, "panic", r)
			res = tier.Fail(tier.ResourceError, "", "panic: %v", r)
		}
	}()
	return t.fetch(ctx, req.URL, req.OriginalSnippet, p)
}

func (x *Extractor) finish(log *slog.Logger, start time.Time, args ...any) {
	elapsed := time.Since(start)
	args = append(args, "elapsed_ms", elapsed.Milliseconds())
	if elapsed > x.cfg.SlowThreshold {
		log.Warn("extractor: slow extraction", args...)
		return
	}
	log.Info("extractor: done", args...)
}

// requestAttrs tags log lines with the request ID plus, for HTTP calls,
// the shield trace ID and client address.
func requestAttrs(ctx context.Context, url string) []any {
	attrs := []any{"request_id", kit.GetRequestID(ctx), "url", url}
	if id := kit.GetTraceID(ctx); id != "" {
		attrs = append(attrs, "trace_id", id)
	}
	if addr := kit.GetRemoteAddr(ctx); addr != "" {
		attrs = append(attrs, "remote_addr", addr)
	}
	return attrs
}

// checkInput rejects requests before any network activity.
func checkInput(req Request) (Result, bool) {
	if req.URL == "" {
		return tier.Fail(tier.InputInvalid, "", "url is required"), false
	}
	if !strings.HasPrefix(strings.ToLower(req.URL), "http") {
		return tier.Fail(tier.InputInvalid, "", "url must start with http: %q", req.URL), false
	}
	if n := utf8.RuneCountInString(req.OriginalSnippet); n < MinSnippetLength {
		return tier.Fail(tier.InputInvalid, "", "snippet too short (%d < %d characters)", n, MinSnippetLength), false
	}
	return Result{}, true
}
