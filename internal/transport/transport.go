// Package transport is the HTTP abstraction under the entity services. A
// Dispatcher routes each call either to the real MamaLink API or to the
// in-memory mock registry, choosing per call so the mode can be switched
// mid-session. Transient transport failures are retried here, at the
// boundary, so services above never see a raw network error.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
)

// Response is the normalized envelope every dispatch resolves to,
// regardless of mode.
type Response struct {
	Data       json.RawMessage
	Status     int
	StatusText string
	Headers    http.Header
}

// Doer executes a single request against a backend. HTTPClient implements
// it for the real API.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (*Response, error)
}
