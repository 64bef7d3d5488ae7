package extractor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/jdextract/horosafe"
	"github.com/hazyhaar/jdextract/idgen"
	"github.com/hazyhaar/jdextract/kit"
)

// Routes returns the HTTP API:
//
//	POST /api/extract   Request -> Result
//	GET  /api/profile   ?url=
//	GET  /api/stats
//	GET  /healthz
//
// Pipeline failures are 200 with success=false, except InputInvalid (422).
func (x *Extractor) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/extract", x.handleExtract)
	r.Get("/api/profile", x.handleProfile)
	r.Get("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, x.Stats())
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (x *Extractor) handleExtract(w http.ResponseWriter, r *http.Request) {
	body, err := horosafe.LimitedReadAll(r.Body, horosafe.MaxRequestBody)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.Is(err, horosafe.ErrTooLarge) || errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ctx := r.Context()
	if id, err := idgen.Parse(r.Header.Get("X-Request-ID")); err == nil {
		ctx = kit.WithRequestID(ctx, id)
	} else {
		ctx = kit.WithRequestID(ctx, idgen.New())
	}
	w.Header().Set("X-Request-ID", kit.GetRequestID(ctx))

	res := x.Extract(ctx, req)
	status := http.StatusOK
	if res.Kind == InputInvalid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (x *Extractor) handleProfile(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	p := x.Profile(u)
	writeJSON(w, http.StatusOK, map[string]any{"profile": p, "fallback": p.IsFallback()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
