package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mamalink/mamalink-go/internal/flags"
	"github.com/mamalink/mamalink-go/internal/mockapi"
)

// Dispatcher routes requests to the real API or the mock registry. The mode
// flag is read once per call, so exactly one of the two paths executes per
// invocation and a mid-session flip takes effect on the next call.
type Dispatcher struct {
	API    Doer
	Mock   *mockapi.Registry
	Flags  *flags.Flags
	Logger *slog.Logger
}

// NewDispatcher wires a dispatcher. Logger may be nil.
func NewDispatcher(api Doer, mock *mockapi.Registry, fl *flags.Flags, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{API: api, Mock: mock, Flags: fl, Logger: logger}
}

// Get issues a GET request.
func (d *Dispatcher) Get(ctx context.Context, path string) (*Response, error) {
	return d.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (d *Dispatcher) Post(ctx context.Context, path string, body any) (*Response, error) {
	return d.do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (d *Dispatcher) Put(ctx context.Context, path string, body any) (*Response, error) {
	return d.do(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE request.
func (d *Dispatcher) Delete(ctx context.Context, path string) (*Response, error) {
	return d.do(ctx, http.MethodDelete, path, nil)
}

func (d *Dispatcher) do(ctx context.Context, method, path string, body any) (*Response, error) {
	start := time.Now()

	var resp *Response
	var err error
	if d.Flags.UseAPI() {
		resp, err = d.API.Do(ctx, method, path, body)
	} else {
		resp, err = d.doMock(ctx, method, path, body)
	}

	if d.Flags.Debug() {
		d.Logger.Debug("dispatch",
			"method", method,
			"path", path,
			"mock", !d.Flags.UseAPI(),
			"duration", time.Since(start),
			"err", err,
		)
	}
	return resp, err
}

// doMock routes a request to the mock registry. A missing endpoint is a
// configuration error and is never retried.
func (d *Dispatcher) doMock(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal mock request body: %w", err)
		}
	}

	data, status, err := d.Mock.Invoke(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("X-Mamalink-Mock", "true")

	return &Response{
		Data:       data,
		Status:     status,
		StatusText: http.StatusText(status),
		Headers:    headers,
	}, nil
}
