// Package static is the cheap extraction tier: one HTTP GET, an HTML parse,
// and the profile's selector chain over the unrendered document.
package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"github.com/hazyhaar/jdextract/extractor/internal/profile"
	"github.com/hazyhaar/jdextract/extractor/internal/tier"
)

// errTooManyRedirects is returned by CheckRedirect past MaxRedirects.
var errTooManyRedirects = errors.New("too many redirects")

// Config configures the static tier.
type Config struct {
	Timeout      time.Duration // Total request budget. Default: 30s.
	MaxRedirects int           // Default: 5.
	MaxBytes     int64         // Response body cap. Default: 10MB.
	UserAgent    string        // Default: tier.UserAgent.
	// URLValidator vets the target and every redirect hop. Nil allows all.
	URLValidator func(string) error
	// Markdown feeds candidates through html-to-markdown instead of
	// plain text rendering.
	Markdown bool
	// Readability runs a readability pass when no selector is accepted.
	Readability bool
	// Transport overrides the HTTP round tripper.
	Transport http.RoundTripper
	Scanner   tier.Scanner
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = tier.UserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Scanner.Normalizer == nil {
		c.Scanner = tier.NewScanner(c.Logger)
	}
}

// Fetcher runs the static tier.
type Fetcher struct {
	client *http.Client
	cfg    Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	limit := cfg.MaxRedirects
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// via holds every request so far, so len(via) redirects have
				// already been followed when this one is considered.
				if len(via) > limit {
					return fmt.Errorf("%w (%d)", errTooManyRedirects, len(via))
				}
				if validate != nil {
					if err := validate(req.URL.String()); err != nil {
						return fmt.Errorf("redirect blocked: %w", err)
					}
				}
				return nil
			},
		},
	}
}

// Fetch implements tier.Func.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, snippet string, p profile.Profile) tier.Result {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	start := time.Now()

	if f.cfg.URLValidator != nil {
		if err := f.cfg.URLValidator(rawURL); err != nil {
			return tier.Fail(tier.FetchFailed, "", "url blocked: %v", err)
		}
	}

	doc, finalURL, err := f.get(ctx, rawURL)
	if err != nil {
		f.cfg.Logger.Debug("static: fetch failed", "url", rawURL, "error", err)
		return tier.Fail(tier.FetchFailed, finalURL, "%v", err)
	}

	removeNoise(doc, p)

	out, err := f.cfg.Scanner.Scan(ctx, p.Selectors, snippet, f.textOf(doc))
	if err != nil {
		return tier.Fail(tier.FetchFailed, finalURL, "extract: %v", err)
	}
	if out.Accepted {
		f.cfg.Logger.Debug("static: accepted", "url", rawURL, "final_url", finalURL,
			"selector", out.Selector, "chars", len(out.Text), "elapsed", time.Since(start))
		return tier.Succeed(tier.Static, out.Text, finalURL, out.Selector)
	}

	if f.cfg.Readability {
		if text, ok := f.readable(doc, finalURL, snippet); ok {
			return tier.Succeed(tier.Static, text, finalURL, "readability")
		}
	}
	return out.Failure(finalURL)
}

// get performs the request and parses the body. The returned URL is the
// last one reached, even on error.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	finalURL := ""
	if resp != nil && resp.Request != nil {
		finalURL = resp.Request.URL.String()
	}
	if err != nil {
		return nil, finalURL, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, finalURL, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.cfg.MaxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, finalURL, fmt.Errorf("charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, finalURL, fmt.Errorf("parse html: %w", err)
	}
	return doc, finalURL, nil
}

// removeNoise strips the global chrome list, then the profile's own.
func removeNoise(doc *goquery.Document, p profile.Profile) {
	doc.Find(strings.Join(profile.GlobalRemove, ", ")).Remove()
	for _, sel := range p.RemoveSelectors {
		doc.Find(sel).Remove()
	}
}

func (f *Fetcher) textOf(doc *goquery.Document) tier.TextFunc {
	return func(_ context.Context, sel string) (string, bool, error) {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			return "", false, nil
		}
		if !f.cfg.Markdown {
			return blockText(s), true, nil
		}
		frag, err := goquery.OuterHtml(s)
		if err != nil {
			return "", true, fmt.Errorf("outer html: %w", err)
		}
		md, err := htmltomarkdown.ConvertString(frag)
		if err != nil {
			// Fall back to plain text rather than losing the candidate.
			return blockText(s), true, nil
		}
		return md, true, nil
	}
}

// readable runs a readability pass over the cleaned document.
func (f *Fetcher) readable(doc *goquery.Document, finalURL, snippet string) (string, bool) {
	u, err := url.Parse(finalURL)
	if err != nil || doc.Length() == 0 {
		return "", false
	}
	article, err := readability.FromDocument(doc.Get(0), u)
	if err != nil || article.Content == "" {
		return "", false
	}
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", false
	}
	text, v := f.cfg.Scanner.Check(blockText(frag.Selection), snippet)
	if !v.Accepted {
		f.cfg.Logger.Debug("static: readability rejected", "reason", v.Reason)
		return "", false
	}
	return text, true
}
