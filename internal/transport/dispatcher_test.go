package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamalink/mamalink-go/internal/flags"
	"github.com/mamalink/mamalink-go/internal/mockapi"
)

// fakeDoer records real-API calls without touching the network.
type fakeDoer struct {
	calls []string
}

func (f *fakeDoer) Do(_ context.Context, method, path string, _ any) (*Response, error) {
	f.calls = append(f.calls, method+" "+path)
	return &Response{Data: json.RawMessage(`{"source":"api"}`), Status: http.StatusOK, StatusText: "OK"}, nil
}

func newTestDispatcher() (*Dispatcher, *fakeDoer, *flags.Flags, *mockapi.Registry) {
	fl := flags.New()
	fl.SetMockDelay(0)
	reg := mockapi.NewRegistry(fl)
	api := &fakeDoer{}
	return NewDispatcher(api, reg, fl, nil), api, fl, reg
}

func TestDispatcher_MockMode(t *testing.T) {
	d, api, _, reg := newTestDispatcher()
	reg.Register(mockapi.Endpoint{
		Method:  http.MethodGet,
		URL:     "/users/me",
		Respond: mockapi.Static(map[string]string{"source": "mock"}),
	})

	resp, err := d.Get(context.Background(), "/users/me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"mock"}`, string(resp.Data))
	assert.Equal(t, "true", resp.Headers.Get("X-Mamalink-Mock"))
	assert.Empty(t, api.calls, "mock mode must not reach the real API")
}

func TestDispatcher_APIMode(t *testing.T) {
	d, api, fl, reg := newTestDispatcher()
	reg.Register(mockapi.Endpoint{
		Method:  http.MethodGet,
		URL:     "/users/me",
		Respond: mockapi.Static(map[string]string{"source": "mock"}),
	})

	fl.EnableAPIMode()
	resp, err := d.Get(context.Background(), "/users/me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"api"}`, string(resp.Data))
	assert.Equal(t, []string{"GET /users/me"}, api.calls)
	assert.Empty(t, resp.Headers.Get("X-Mamalink-Mock"))
}

func TestDispatcher_ModeFlipMidSession(t *testing.T) {
	d, api, fl, reg := newTestDispatcher()
	reg.Register(mockapi.Endpoint{
		Method:  http.MethodGet,
		URL:     "/notifications",
		Respond: mockapi.Static(map[string]string{"source": "mock"}),
	})

	_, err := d.Get(context.Background(), "/notifications")
	require.NoError(t, err)
	assert.Empty(t, api.calls)

	fl.EnableAPIMode()
	_, err = d.Get(context.Background(), "/notifications")
	require.NoError(t, err)
	assert.Len(t, api.calls, 1)

	fl.EnableMockMode()
	_, err = d.Get(context.Background(), "/notifications")
	require.NoError(t, err)
	assert.Len(t, api.calls, 1, "flipping back to mock must stop API traffic")
}

func TestDispatcher_MissingMockEndpoint(t *testing.T) {
	d, _, _, _ := newTestDispatcher()

	_, err := d.Get(context.Background(), "/unregistered")
	require.ErrorIs(t, err, mockapi.ErrNoEndpoint)
}

func TestDispatcher_VerbsRouteBodies(t *testing.T) {
	d, _, _, reg := newTestDispatcher()
	reg.Register(mockapi.Endpoint{
		Method: http.MethodPost,
		URL:    "/follows/u-1",
		Respond: mockapi.Generated(func(body []byte) any {
			var in map[string]string
			_ = json.Unmarshal(body, &in)
			return map[string]string{"echo": in["source"]}
		}),
	})
	reg.Register(mockapi.Endpoint{
		Method:  http.MethodDelete,
		URL:     "/follows/u-1",
		Respond: mockapi.Static(map[string]bool{"ok": true}),
	})

	resp, err := d.Post(context.Background(), "/follows/u-1", map[string]string{"source": "profile"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"profile"}`, string(resp.Data))

	resp, err = d.Delete(context.Background(), "/follows/u-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Data))
}
