// Package rendered is the expensive extraction tier: a fresh headless
// browser per call renders the page before the selector chain runs against
// the live DOM.
//
// The browser is the one exclusive resource in the pipeline. Fetch closes it
// exactly once on every return path, including panics raised while driving
// the page.
package rendered

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/hazyhaar/jdextract/extractor/internal/profile"
	"github.com/hazyhaar/jdextract/extractor/internal/tier"
)

// Launcher starts an isolated browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser instance owned by one Fetch call.
type Browser interface {
	NewPage(ctx context.Context, userAgent string) (Page, error)
	Close() error
}

// Page is the subset of page operations the tier needs.
type Page interface {
	// Navigate loads url and returns once the network is idle.
	Navigate(ctx context.Context, url string) error
	// WaitElement blocks until selector matches or ctx ends.
	WaitElement(ctx context.Context, selector string) error
	// URL is the page's current address, or "" if unknown.
	URL() string
	// Remove deletes every element matching any selector. Invalid
	// selectors are skipped.
	Remove(ctx context.Context, selectors []string) error
	// Text returns the rendered text of the first element matching
	// selector; ok is false when nothing matches.
	Text(ctx context.Context, selector string) (text string, ok bool, err error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Browser, error)

func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) { return f(ctx) }

// Config configures the rendered tier.
type Config struct {
	NavTimeout     time.Duration // Navigation to network idle. Default: 45s.
	WaitTimeout    time.Duration // Optional wait selector. Default: 5s.
	ExtractTimeout time.Duration // Noise removal and selector scan. Default: 15s.
	UserAgent      string        // Default: tier.UserAgent.
	Launcher       Launcher      // Default: RodLauncher{}.
	Scanner        tier.Scanner
	Logger         *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 5 * time.Second
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = tier.UserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Launcher == nil {
		c.Launcher = &RodLauncher{Logger: c.Logger}
	}
	if c.Scanner.Normalizer == nil {
		c.Scanner = tier.NewScanner(c.Logger)
	}
}

// Fetcher runs the rendered tier.
type Fetcher struct {
	cfg Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{cfg: cfg}
}

// Fetch implements tier.Func.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, snippet string, p profile.Profile) (res tier.Result) {
	log := f.cfg.Logger
	start := time.Now()

	b, err := f.cfg.Launcher.Launch(ctx)
	if err != nil {
		return tier.Fail(tier.ResourceError, "", "launch browser: %v", err)
	}

	finalURL := ""
	defer func() {
		if r := recover(); r != nil {
			log.Error("rendered: panic while driving page", "url", rawURL, "panic", r)
			res = tier.Fail(tier.ResourceError, finalURL, "browser: %v", r)
		}
		if err := b.Close(); err != nil {
			log.Warn("rendered: close browser", "url", rawURL, "error", err)
		}
	}()

	page, err := b.NewPage(ctx, f.cfg.UserAgent)
	if err != nil {
		return tier.Fail(tier.ResourceError, "", "open page: %v", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavTimeout)
	err = page.Navigate(navCtx, rawURL)
	cancel()
	finalURL = page.URL()
	if err != nil {
		return tier.Fail(tier.ResourceError, finalURL, "navigate: %v", err)
	}

	if p.WaitSelector != "" {
		waitCtx, cancel := context.WithTimeout(ctx, f.cfg.WaitTimeout)
		if err := page.WaitElement(waitCtx, p.WaitSelector); err != nil {
			log.Debug("rendered: wait selector not seen", "url", rawURL, "selector", p.WaitSelector, "error", err)
		}
		cancel()
		if u := page.URL(); u != "" {
			finalURL = u
		}
	}

	exCtx, cancel := context.WithTimeout(ctx, f.cfg.ExtractTimeout)
	defer cancel()

	if err := page.Remove(exCtx, slices.Concat(profile.GlobalRemove, p.RemoveSelectors)); err != nil {
		return tier.Fail(tier.ResourceError, finalURL, "remove noise: %v", err)
	}

	out, err := f.cfg.Scanner.Scan(exCtx, p.Selectors, snippet, page.Text)
	if err != nil {
		return tier.Fail(tier.ResourceError, finalURL, "extract: %v", err)
	}
	if !out.Accepted {
		return out.Failure(finalURL)
	}
	log.Debug("rendered: accepted", "url", rawURL, "final_url", finalURL,
		"selector", out.Selector, "chars", len(out.Text), "elapsed", time.Since(start))
	return tier.Succeed(tier.Rendered, out.Text, finalURL, out.Selector)
}
