// Package mockapi provides an in-memory registry of mock API endpoints.
// When mock mode is selected, the dispatcher routes requests here instead of
// the network. Endpoints simulate latency and HTTP error statuses so the
// layers above cannot tell the two modes apart.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mamalink/mamalink-go/internal/apierr"
)

// ErrNoEndpoint is returned when no mock endpoint matches a request. This is
// a configuration error, not a transient one: it is never retried.
var ErrNoEndpoint = errors.New("no mock endpoint registered")

// Responder produces the payload for a mock endpoint. It is a closed
// variant: either a Static value or a Generated function of the request
// body.
type Responder interface {
	respond(body []byte) any
}

type staticResponder struct {
	value any
}

func (r staticResponder) respond([]byte) any { return r.value }

type generatedResponder struct {
	fn func(body []byte) any
}

func (r generatedResponder) respond(body []byte) any { return r.fn(body) }

// Static returns a Responder that always yields value.
func Static(value any) Responder {
	return staticResponder{value: value}
}

// Generated returns a Responder that derives its payload from the raw
// request body.
func Generated(fn func(body []byte) any) Responder {
	return generatedResponder{fn: fn}
}

// Endpoint describes one mock route. Status zero means 200; Status >= 400
// makes Invoke fail with a wire-shaped HTTP error whose body is the
// responder's payload. Delay zero falls back to the registry-wide delay.
type Endpoint struct {
	Method  string
	URL     string
	Respond Responder
	Delay   time.Duration
	Status  int
}

// DelaySource supplies the registry-wide simulated latency; flags.Flags
// satisfies it.
type DelaySource interface {
	MockDelay() time.Duration
}

// Stats summarizes the registered endpoints.
type Stats struct {
	Total    int
	ByMethod map[string]int
}

// Registry is a thread-safe (METHOD:url) -> Endpoint map.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	delays    DelaySource
}

// NewRegistry creates an empty registry. A nil delays source means no
// default simulated latency.
func NewRegistry(delays DelaySource) *Registry {
	return &Registry{
		endpoints: make(map[string]Endpoint),
		delays:    delays,
	}
}

func endpointKey(method, url string) string {
	return strings.ToUpper(method) + ":" + url
}

// Register adds an endpoint. Re-registering the same (method, URL) replaces
// the previous entry.
func (r *Registry) Register(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[endpointKey(ep.Method, ep.URL)] = ep
}

// RegisterAll adds a batch of endpoints.
func (r *Registry) RegisterAll(eps []Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ep := range eps {
		r.endpoints[endpointKey(ep.Method, ep.URL)] = ep
	}
}

// Remove deletes an endpoint; removing a missing endpoint is a no-op.
func (r *Registry) Remove(method, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, endpointKey(method, url))
}

// Clear removes every endpoint.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = make(map[string]Endpoint)
}

// Has reports whether an endpoint is registered for (method, URL).
func (r *Registry) Has(method, url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.endpoints[endpointKey(method, url)]
	return ok
}

// Endpoints returns a copy of all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep)
	}
	return out
}

// GetStats returns endpoint counts, total and per method.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{ByMethod: make(map[string]int)}
	for key := range r.endpoints {
		method, _, _ := strings.Cut(key, ":")
		s.ByMethod[method]++
		s.Total++
	}
	return s
}

// Invoke simulates a request against the registry. It waits the endpoint's
// delay (or the registry default), then either fails with a wire-shaped
// HTTP error (Status >= 400) or returns the JSON-encoded payload and
// status code.
func (r *Registry) Invoke(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	r.mu.RLock()
	ep, ok := r.endpoints[endpointKey(method, url)]
	r.mu.RUnlock()

	if !ok {
		return nil, 0, fmt.Errorf("%w: %s %s", ErrNoEndpoint, strings.ToUpper(method), url)
	}

	delay := ep.Delay
	if delay == 0 && r.delays != nil {
		delay = r.delays.MockDelay()
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(delay):
		}
	}

	var payload any
	if ep.Respond != nil {
		payload = ep.Respond.respond(body)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal mock payload for %s %s: %w", method, url, err)
	}

	if ep.Status >= http.StatusBadRequest {
		return nil, 0, &apierr.HTTPError{
			Status:     ep.Status,
			StatusText: http.StatusText(ep.Status),
			Body:       data,
		}
	}

	status := ep.Status
	if status == 0 {
		status = http.StatusOK
	}
	return data, status, nil
}
