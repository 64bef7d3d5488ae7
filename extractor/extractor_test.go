package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/jdextract/extractor/internal/profile"
	"github.com/hazyhaar/jdextract/extractor/internal/rendered"
	"github.com/hazyhaar/jdextract/kit"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const postingHTML = `<!doctype html>
<html><body>
<nav>Home Jobs About</nav>
<div class="job-description">
  <h2>Responsibilities</h2>
  <p>Build and operate services that route freight across Europe, working with a small team of engineers.</p>
  <h2>Requirements</h2>
  <p>Solid experience with Go, PostgreSQL and distributed systems; comfort with on-call duties and code review.</p>
  <h2>Skills</h2>
  <p>Clear writing, careful testing, pragmatic design and the ability to ship small increments every week.</p>
</div>
<footer>Copyright Acme</footer>
</body></html>`

const renderedText = "Responsibilities:\nBuild and operate services that route freight across Europe, working with a small team of engineers.\n\nRequirements:\nSolid experience with Go, PostgreSQL and distributed systems; comfort with on-call duties and code review.\n\nSkills:\nClear writing, careful testing, pragmatic design and the ability to ship small increments every week."

var snippet = "Backend engineer for a freight platform. Go, PostgreSQL, on-call."

// origin serves body and counts hits.
func origin(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

type fakePage struct {
	url   string
	text  string
	err   error
	panic bool
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.url == "" {
		p.url = url
	}
	return p.err
}
func (p *fakePage) WaitElement(context.Context, string) error { return nil }
func (p *fakePage) URL() string                               { return p.url }
func (p *fakePage) Remove(context.Context, []string) error    { return nil }
func (p *fakePage) Text(_ context.Context, sel string) (string, bool, error) {
	if p.panic {
		panic("page crashed")
	}
	if p.text == "" || sel != `[class*="job-description"]` {
		return "", false, nil
	}
	return p.text, true, nil
}

type fakeBrowser struct {
	page   *fakePage
	closes atomic.Int64
}

func (b *fakeBrowser) NewPage(context.Context, string) (rendered.Page, error) { return b.page, nil }
func (b *fakeBrowser) Close() error                                           { b.closes.Add(1); return nil }

type fakeLauncher struct {
	browser  *fakeBrowser
	launches atomic.Int64
}

func (l *fakeLauncher) Launch(context.Context) (rendered.Browser, error) {
	l.launches.Add(1)
	return l.browser, nil
}

func newExtractor(t *testing.T, page *fakePage) (*Extractor, *fakeLauncher) {
	t.Helper()
	l := &fakeLauncher{browser: &fakeBrowser{page: page}}
	x, err := New(&Config{
		Launcher: l,
		Logger:   quiet,
		Rendered: RenderedConfig{WaitTimeout: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatal(err)
	}
	return x, l
}

func TestExtract_InvalidInputNoNetwork(t *testing.T) {
	// WHAT: Bad input fails with InputInvalid before any tier runs.
	// WHY: Callers rely on validation costing nothing.
	srv, hits := origin(t, http.StatusOK, postingHTML)
	x, l := newExtractor(t, &fakePage{})

	cases := []Request{
		{URL: "", OriginalSnippet: snippet},
		{URL: "ftp://jobs.example.com/1", OriginalSnippet: snippet},
		{URL: srv.URL, OriginalSnippet: "too short"},
	}
	for _, req := range cases {
		res := x.Extract(context.Background(), req)
		if res.Success || res.Kind != InputInvalid || !strings.HasPrefix(res.Error, "InputInvalid: ") {
			t.Errorf("%+v: got %+v", req, res)
		}
	}
	if hits.Load() != 0 || l.launches.Load() != 0 {
		t.Fatalf("network touched: %d hits, %d launches", hits.Load(), l.launches.Load())
	}
	if s := x.Stats(); s.Invalid != 3 || s.Requests != 3 {
		t.Errorf("stats: %+v", s)
	}
}

func TestExtract_UppercaseSchemeAccepted(t *testing.T) {
	srv, _ := origin(t, http.StatusOK, postingHTML)
	x, _ := newExtractor(t, &fakePage{})
	res := x.Extract(context.Background(), Request{URL: strings.Replace(srv.URL, "http", "HTTP", 1), OriginalSnippet: snippet})
	if res.Kind == InputInvalid {
		t.Fatalf("uppercase scheme rejected: %+v", res)
	}
}

func TestExtract_StaticSuccess(t *testing.T) {
	// WHAT: A server-rendered posting is taken from the static tier.
	// WHY: The browser must not launch when plain HTTP is enough.
	srv, hits := origin(t, http.StatusOK, postingHTML)
	x, l := newExtractor(t, &fakePage{})

	res := x.Extract(context.Background(), Request{URL: srv.URL + "/job/1", OriginalSnippet: snippet})
	if !res.Success || res.Method != MethodStatic {
		t.Fatalf("result: %+v", res)
	}
	if !strings.Contains(res.Description, "Responsibilities") || strings.Contains(res.Description, "Copyright") {
		t.Errorf("description: %q", res.Description)
	}
	if res.FinalURL != srv.URL+"/job/1" {
		t.Errorf("final url: %q", res.FinalURL)
	}
	if hits.Load() != 1 || l.launches.Load() != 0 {
		t.Errorf("hits %d launches %d", hits.Load(), l.launches.Load())
	}
	if res.Err() != nil {
		t.Errorf("Err on success: %v", res.Err())
	}
	if s := x.Stats(); s.StaticOK != 1 {
		t.Errorf("stats: %+v", s)
	}
}

func TestExtract_RenderedFallback(t *testing.T) {
	// WHAT: A JS shell page fails statically and succeeds in the browser.
	// WHY: The second tier exists for client-rendered job boards.
	srv, _ := origin(t, http.StatusOK, `<html><body><div id="root"></div></body></html>`)
	page := &fakePage{text: renderedText, url: "https://jobs.example.com/rendered"}
	x, l := newExtractor(t, page)

	res := x.Extract(context.Background(), Request{URL: srv.URL, OriginalSnippet: snippet})
	if !res.Success || res.Method != MethodRendered {
		t.Fatalf("result: %+v", res)
	}
	if res.FinalURL != "https://jobs.example.com/rendered" {
		t.Errorf("final url: %q", res.FinalURL)
	}
	if l.launches.Load() != 1 || l.browser.closes.Load() != 1 {
		t.Errorf("launches %d closes %d", l.launches.Load(), l.browser.closes.Load())
	}
	if s := x.Stats(); s.RenderedOK != 1 || s.TierFailures[ValidationRejected] != 1 {
		t.Errorf("stats: %+v", s)
	}
}

func TestExtract_BothFail(t *testing.T) {
	// WHAT: When every tier fails the error names both, in order.
	srv, _ := origin(t, http.StatusForbidden, "blocked")
	page := &fakePage{err: errors.New("navigation timeout"), url: "https://jobs.example.com/wall"}
	x, l := newExtractor(t, page)

	res := x.Extract(context.Background(), Request{URL: srv.URL, OriginalSnippet: snippet})
	if res.Success {
		t.Fatalf("unexpected success: %+v", res)
	}
	if !strings.HasPrefix(res.Error, "static: FetchFailed: ") || !strings.Contains(res.Error, "; rendered: ResourceError: ") {
		t.Errorf("error: %q", res.Error)
	}
	if res.Kind != ResourceError || res.FinalURL != "https://jobs.example.com/wall" {
		t.Errorf("kind %s final url %q", res.Kind, res.FinalURL)
	}
	if l.browser.closes.Load() != 1 {
		t.Errorf("closes %d", l.browser.closes.Load())
	}
	if !errors.Is(res.Err(), ErrResourceError) {
		t.Errorf("Err: %v", res.Err())
	}
}

func TestExtract_BothFailNoSelector(t *testing.T) {
	// WHAT: An empty page with no matching selector, then a browser
	// navigation timeout: both failures are reported and the browser's
	// final URL wins.
	srv, _ := origin(t, http.StatusOK, "<html><body></body></html>")
	page := &fakePage{err: errors.New("navigation timeout"), url: "https://jobs.example.com/landing"}
	l := &fakeLauncher{browser: &fakeBrowser{page: page}}
	x, err := New(&Config{
		Launcher: l,
		Logger:   quiet,
		Registry: profile.New([]profile.Profile{{MatchSuffix: "127.0.0.1", Selectors: []string{".job-description"}}}, profile.Profile{}),
	})
	if err != nil {
		t.Fatal(err)
	}

	res := x.Extract(context.Background(), Request{URL: srv.URL, OriginalSnippet: snippet})
	if res.Success {
		t.Fatalf("unexpected success: %+v", res)
	}
	if !strings.HasPrefix(res.Error, "static: NoSelectorMatched: ") || !strings.Contains(res.Error, "; rendered: ResourceError: ") {
		t.Errorf("error: %q", res.Error)
	}
	if res.FinalURL != "https://jobs.example.com/landing" {
		t.Errorf("final url: %q", res.FinalURL)
	}
	if l.browser.closes.Load() != 1 {
		t.Errorf("closes %d", l.browser.closes.Load())
	}
}

func TestNew_DoesNotModifyConfig(t *testing.T) {
	cfg := &Config{Logger: quiet, Quality: QualityConfig{MinLength: 120}}
	if _, err := New(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Static.Timeout != 0 || cfg.Rendered.NavTimeout != 0 || cfg.SlowThreshold != 0 || cfg.Server.Addr != "" {
		t.Fatalf("caller config was changed: %+v", cfg)
	}
	if _, err := New(nil); err != nil {
		t.Fatalf("nil config: %v", err)
	}
}

func TestExtract_LogsTraceAndRemoteAddr(t *testing.T) {
	// WHAT: HTTP-borne calls log shield's trace ID and the client address.
	// WHY: Operators join an extraction's log lines to the access log by
	// trace ID.
	var buf bytes.Buffer
	x, _ := New(&Config{
		Logger:   slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Rendered: RenderedConfig{Disabled: true},
	})
	ctx := kit.WithTraceID(context.Background(), "trc12345")
	ctx = kit.WithRemoteAddr(ctx, "203.0.113.9")
	x.Extract(ctx, Request{URL: "https://jobs.example.com/1", OriginalSnippet: "short"})

	var entry map[string]any
	if err := json.Unmarshal(bytes.Split(buf.Bytes(), []byte("\n"))[0], &entry); err != nil {
		t.Fatalf("log: %v (%s)", err, buf.String())
	}
	if entry["trace_id"] != "trc12345" || entry["remote_addr"] != "203.0.113.9" {
		t.Errorf("log entry: %v", entry)
	}
}

func TestExtract_PanicIsResourceError(t *testing.T) {
	srv, _ := origin(t, http.StatusOK, "<html><body></body></html>")
	x, l := newExtractor(t, &fakePage{panic: true})

	res := x.Extract(context.Background(), Request{URL: srv.URL, OriginalSnippet: snippet})
	if res.Success || res.Kind != ResourceError || !strings.Contains(res.Error, "page crashed") {
		t.Fatalf("result: %+v", res)
	}
	if l.browser.closes.Load() != 1 {
		t.Errorf("closes %d", l.browser.closes.Load())
	}
}

func TestExtract_URLValidatorGuardsBothTiers(t *testing.T) {
	srv, hits := origin(t, http.StatusOK, postingHTML)
	l := &fakeLauncher{browser: &fakeBrowser{page: &fakePage{text: renderedText}}}
	x, err := New(&Config{
		Launcher:     l,
		Logger:       quiet,
		URLValidator: func(string) error { return errors.New("private address") },
	})
	if err != nil {
		t.Fatal(err)
	}

	res := x.Extract(context.Background(), Request{URL: srv.URL, OriginalSnippet: snippet})
	if res.Success || res.Kind != FetchFailed || strings.Count(res.Error, "url blocked") != 2 {
		t.Fatalf("result: %+v", res)
	}
	if hits.Load() != 0 || l.launches.Load() != 0 {
		t.Errorf("hits %d launches %d", hits.Load(), l.launches.Load())
	}
}

func TestExtract_StaticOnly(t *testing.T) {
	srv, _ := origin(t, http.StatusOK, "<html><body></body></html>")
	l := &fakeLauncher{browser: &fakeBrowser{page: &fakePage{text: renderedText}}}
	x, _ := New(&Config{Launcher: l, Logger: quiet, Rendered: RenderedConfig{Disabled: true}})

	res := x.Extract(context.Background(), Request{URL: srv.URL, OriginalSnippet: snippet})
	if res.Success || strings.Contains(res.Error, "rendered:") || l.launches.Load() != 0 {
		t.Fatalf("result: %+v, launches %d", res, l.launches.Load())
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	srv, hits := origin(t, http.StatusOK, postingHTML)
	x, l := newExtractor(t, &fakePage{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := x.Extract(ctx, Request{URL: srv.URL, OriginalSnippet: snippet})
	if res.Success || hits.Load() != 0 || l.launches.Load() != 0 {
		t.Fatalf("result %+v hits %d launches %d", res, hits.Load(), l.launches.Load())
	}
}

func TestExtract_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	x, _ := New(&Config{
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
		Rendered: RenderedConfig{Disabled: true},
	})
	srv, _ := origin(t, http.StatusOK, postingHTML)
	ctx := kit.WithRequestID(context.Background(), "req-123")
	x.Extract(ctx, Request{URL: srv.URL, OriginalSnippet: snippet})

	var entry map[string]any
	if err := json.Unmarshal(bytes.Split(buf.Bytes(), []byte("\n"))[0], &entry); err != nil {
		t.Fatalf("log: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "req-123" || entry["method"] != "static" {
		t.Errorf("log entry: %v", entry)
	}
}

func TestNew_ProfilesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	os.WriteFile(path, []byte(`
profiles:
  - match_suffix: acme.test
    selectors: [".posting"]
`), 0o644)

	x, err := New(&Config{ProfilesFile: path, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if p := x.Profile("https://jobs.acme.test/1"); p.MatchSuffix != "acme.test" {
		t.Errorf("profile: %+v", p)
	}

	if _, err := New(&Config{ProfilesFile: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("missing profiles file should fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jdextract.yaml")
	os.WriteFile(path, []byte(`
user_agent: test-agent
static:
  timeout: 5s
  markdown: true
rendered:
  disabled: true
  block_resources: [images, fonts]
quality:
  min_length: 200
server:
  addr: ":9090"
`), 0o644)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Static.Timeout != 5*time.Second || !cfg.Static.Markdown || cfg.UserAgent != "test-agent" {
		t.Errorf("static: %+v", cfg.Static)
	}
	if !cfg.Rendered.Disabled || len(cfg.Rendered.BlockResources) != 2 || cfg.Rendered.NavTimeout != 45*time.Second {
		t.Errorf("rendered: %+v", cfg.Rendered)
	}
	if cfg.Static.MaxRedirects != 5 || cfg.Quality.criteria().MinLength != 200 || cfg.Quality.criteria().MinKeywords != 3 {
		t.Errorf("defaults: %+v", cfg)
	}
	if cfg.Server.Addr != ":9090" || cfg.SlowThreshold != 20*time.Second {
		t.Errorf("server: %+v", cfg.Server)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
