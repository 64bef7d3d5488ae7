package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/jdextract/connectivity"
	"github.com/hazyhaar/jdextract/extractor"
	"github.com/hazyhaar/jdextract/shield"
)

func TestReadRequests(t *testing.T) {
	in := `{"url":"https://a.test/1","originalSnippet":"x"}

{"url":"https://a.test/2","originalSnippet":"y"}
`
	reqs, err := readRequests(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 || !strings.Contains(string(reqs[1]), "a.test/2") {
		t.Fatalf("reqs: %q", reqs)
	}

	_, err = readRequests(strings.NewReader("{\"url\":1}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("err: %v", err)
	}
}

func TestServeStack_Headers(t *testing.T) {
	// WHAT: The served API carries shield's security headers and trace ID.
	// WHY: Without shield there is no CSP, nosniff or X-Trace-ID.
	x, err := extractor.New(&extractor.Config{Rendered: extractor.RenderedConfig{Disabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(nil) {
		r.Use(mw)
	}
	r.Mount("/", x.Routes())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "X-Trace-ID"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestRouteRemote_FallsBackToLocal(t *testing.T) {
	// WHAT: A failing worker is bypassed and the local extractor answers.
	// WHY: A dead batch worker must not turn items into failures.
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "worker down", http.StatusBadGateway)
	}))
	defer worker.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	x, err := extractor.New(&extractor.Config{Logger: quiet, Rendered: extractor.RenderedConfig{Disabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	router := connectivity.New(connectivity.WithLogger(quiet))
	defer router.Close()
	x.RegisterConnectivity(router)
	if err := routeRemote(router, x, worker.URL, quiet); err != nil {
		t.Fatal(err)
	}

	out, err := router.Call(context.Background(), extractor.ServiceName, []byte(`{"url":"","originalSnippet":""}`))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var res extractor.Result
	json.Unmarshal(out, &res)
	if res.Kind != extractor.InputInvalid || x.Stats().Requests != 1 {
		t.Fatalf("result %+v stats %+v", res, x.Stats())
	}
}
