package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/jdextract/idgen"
	"github.com/hazyhaar/jdextract/kit"
)

var traceIDs = idgen.NanoID(8)

// TraceID tags each request with a short trace ID in the context (kit), the
// X-Trace-ID response header, and a per-request logger under LoggerKey.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := traceIDs()
		w.Header().Set("X-Trace-ID", traceID)

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = kit.WithRemoteAddr(ctx, ExtractIP(r))

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
