package extractor

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/jdextract/kit"
)

// RegisterMCP registers the jdextract_extract and jdextract_profile tools.
func (x *Extractor) RegisterMCP(srv *mcp.Server) {
	x.registerExtractTool(srv)
	x.registerProfileTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// Endpoint exposes Extract as a kit.Endpoint taking *Request. Pipeline
// failures are returned in the Result, not as errors.
func (x *Extractor) Endpoint() kit.Endpoint {
	ep := func(ctx context.Context, req any) (any, error) {
		r, ok := req.(*Request)
		if !ok {
			return nil, fmt.Errorf("extractor: unexpected request type %T", req)
		}
		return x.Extract(ctx, *r), nil
	}
	return kit.Chain(kit.Logging(x.logger, "jdextract_extract"))(ep)
}

func (x *Extractor) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "jdextract_extract",
		Description: "Fetch the full job description behind a posting URL. " +
			"Tries a plain HTTP fetch first and a headless browser second.",
		InputSchema: inputSchema(map[string]any{
			"url":             map[string]any{"type": "string", "description": "Job posting URL (http or https)"},
			"originalSnippet": map[string]any{"type": "string", "description": "Snippet already known, at least 50 characters"},
		}, []string{"url", "originalSnippet"}),
	}
	kit.RegisterMCPTool(srv, tool, x.Endpoint(), kit.DecodeArgs[Request]())
}

type profileReq struct {
	URL string `json:"url"`
}

func (x *Extractor) registerProfileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "jdextract_profile",
		Description: "Show the domain profile (selectors, wait selector, removals) applied to a URL.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Job posting URL"},
		}, []string{"url"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*profileReq)
		p := x.Profile(r.URL)
		return map[string]any{
			"profile":  p,
			"fallback": p.IsFallback(),
		}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[profileReq]())
}
