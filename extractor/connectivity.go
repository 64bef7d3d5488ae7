package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/jdextract/connectivity"
	"github.com/hazyhaar/jdextract/kit"
)

// ServiceName is the connectivity service extraction is registered under.
const ServiceName = "jdextract_extract"

// Handler returns a connectivity handler taking a JSON Request and
// returning a JSON Result. It is what a remote worker's POST /api/extract
// speaks, so the same payload works locally and over HTTP.
func (x *Extractor) Handler() connectivity.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("extractor: decode request: %w", err)
		}
		if kit.GetTransport(ctx) == "http" {
			ctx = kit.WithTransport(ctx, "connectivity")
		}
		return json.Marshal(x.Extract(ctx, req))
	}
}

// RegisterConnectivity registers the local extraction handler on router.
func (x *Extractor) RegisterConnectivity(router *connectivity.Router) {
	router.RegisterLocal(ServiceName, x.Handler())
}
