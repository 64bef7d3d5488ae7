// Package connectivity dispatches named service calls either to an
// in-process handler or to a remote transport, without the caller knowing
// which.
//
//	router := connectivity.New()
//	router.RegisterLocal("jdextract_extract", ext.Handler())
//	router.RegisterTransport("http", connectivity.HTTPFactory(nil))
//	router.Route("jdextract_extract", "http", "http://worker:8080/api/extract", nil)
//
//	resp, err := router.Call(ctx, "jdextract_extract", payload)
//
// Routes are set at startup; a service without a route runs locally.
package connectivity

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Handler is a transport-agnostic service function: bytes in, bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// TransportFactory builds a Handler for a remote endpoint. The returned close
// function may be nil.
type TransportFactory func(endpoint string, config json.RawMessage) (handler Handler, close func(), err error)

type remoteEntry struct {
	strategy string
	endpoint string
	handler  Handler
	close    func()
}

// Router dispatches service calls. Safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	locals    map[string]Handler
	remotes   map[string]remoteEntry
	noops     map[string]bool
	factories map[string]TransportFactory
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a custom logger for the router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a Router with no routes.
func New(opts ...Option) *Router {
	r := &Router{
		locals:    make(map[string]Handler),
		remotes:   make(map[string]remoteEntry),
		noops:     make(map[string]bool),
		factories: make(map[string]TransportFactory),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterLocal registers the in-process handler for a service.
func (r *Router) RegisterLocal(service string, h Handler) {
	r.mu.Lock()
	r.locals[service] = h
	r.mu.Unlock()
}

// RegisterTransport registers a factory for a strategy name such as "http".
func (r *Router) RegisterTransport(strategy string, f TransportFactory) {
	r.mu.Lock()
	r.factories[strategy] = f
	r.mu.Unlock()
}

// Route points service at a strategy. "local" removes any remote route,
// "noop" makes calls succeed with an empty response, and any other strategy
// must have a registered factory. mws wrap the remote handler only.
func (r *Router) Route(service, strategy, endpoint string, config json.RawMessage, mws ...HandlerMiddleware) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropLocked(service)
	switch strategy {
	case "local", "":
		return nil
	case "noop":
		r.noops[service] = true
		return nil
	}

	factory, ok := r.factories[strategy]
	if !ok {
		return &ErrNoFactory{Service: service, Strategy: strategy}
	}
	h, closeFn, err := factory(endpoint, config)
	if err != nil {
		return &ErrFactoryFailed{Service: service, Strategy: strategy, Endpoint: endpoint, Cause: err}
	}
	r.remotes[service] = remoteEntry{
		strategy: strategy,
		endpoint: endpoint,
		handler:  Chain(mws...)(h),
		close:    closeFn,
	}
	r.logger.Info("route built", "service", service, "strategy", strategy, "endpoint", endpoint)
	return nil
}

func (r *Router) dropLocked(service string) {
	if old, ok := r.remotes[service]; ok && old.close != nil {
		old.close()
	}
	delete(r.remotes, service)
	delete(r.noops, service)
}

// Call dispatches a service call: noop, then remote route, then local
// handler.
func (r *Router) Call(ctx context.Context, service string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	noop := r.noops[service]
	remote, hasRemote := r.remotes[service]
	local := r.locals[service]
	r.mu.RUnlock()

	switch {
	case noop:
		r.logger.DebugContext(ctx, "routing noop", "service", service)
		return nil, nil
	case hasRemote:
		r.logger.DebugContext(ctx, "routing remote",
			"service", service, "strategy", remote.strategy, "endpoint", remote.endpoint)
		return remote.handler(ctx, payload)
	case local != nil:
		r.logger.DebugContext(ctx, "routing local", "service", service)
		return local(ctx, payload)
	}
	return nil, &ErrServiceNotFound{Service: service}
}

// Local returns the in-process handler for service, or nil.
func (r *Router) Local(service string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locals[service]
}

// Services lists every service with a local handler or a route.
func (r *Router) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for s := range r.locals {
		seen[s] = true
	}
	for s := range r.remotes {
		seen[s] = true
	}
	for s := range r.noops {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Close shuts down all remote handlers.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.remotes {
		r.dropLocked(name)
	}
	return nil
}
