// Package service implements the MamaLink domain services: notifications,
// users and follows. Each service composes the dispatcher, the TTL response
// cache, in-flight de-duplication and the optimistic-update protocol into
// domain operations, and falls back to generated fixtures when mock mode is
// active and no mock endpoint is registered.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/mamalink/mamalink-go/internal/apierr"
	"github.com/mamalink/mamalink-go/internal/cache"
	"github.com/mamalink/mamalink-go/internal/flags"
	"github.com/mamalink/mamalink-go/internal/mockapi"
	"github.com/mamalink/mamalink-go/internal/transport"
)

// Dispatcher is the slice of transport.Dispatcher the services need.
// Declared here so tests can substitute a counting fake.
type Dispatcher interface {
	Get(ctx context.Context, path string) (*transport.Response, error)
	Post(ctx context.Context, path string, body any) (*transport.Response, error)
	Put(ctx context.Context, path string, body any) (*transport.Response, error)
	Delete(ctx context.Context, path string) (*transport.Response, error)
}

// Deps are the collaborators shared by every service. They are constructed
// once at startup and passed explicitly; there are no lazily initialized
// package singletons.
type Deps struct {
	Dispatcher Dispatcher
	Flags      *flags.Flags
	Logger     *slog.Logger
	Remote     cache.Backend // optional shared cache, may be nil
}

// Services bundles one instance of each entity service.
type Services struct {
	Notifications *NotificationService
	Users         *UserService
	Follows       *FollowService
}

// New wires the three services. Each gets its own cache store and
// de-duplication group; the follow service additionally patches the user
// cache on optimistic follow toggles.
func New(deps Deps) *Services {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	gofakeit.Seed(time.Now().UnixNano())

	users := &UserService{core: newCore(deps)}
	return &Services{
		Notifications: &NotificationService{core: newCore(deps)},
		Users:         users,
		Follows:       &FollowService{core: newCore(deps), users: users},
	}
}

// core is the per-service state every entity service embeds.
type core struct {
	deps   Deps
	store  *cache.Store
	flight *cache.Flight
}

func newCore(deps Deps) core {
	return core{
		deps:   deps,
		store:  cache.NewStore(),
		flight: cache.NewFlight(),
	}
}

// SetDedup enables or disables in-flight de-duplication for this service.
func (c *core) SetDedup(enabled bool) {
	c.flight.Enabled = enabled
}

// ClearCache drops all cached responses. Service identity is unaffected.
func (c *core) ClearCache() {
	c.store.Clear()
}

// Cache exposes the service's store for tests and dev tooling.
func (c *core) Cache() *cache.Store {
	return c.store
}

// fetchJSON is the shared read path: cache hit returns immediately; a miss
// goes through the de-dup group to the dispatcher, decodes into T and
// populates the cache. A failed fetch leaves the cache untouched and always
// surfaces a classified *apierr.Error. When mock mode is active and no mock
// endpoint matches, the fallback generator stands in for the backend.
//
// remote selects the optional shared cache layer for slow-moving entries.
func fetchJSON[T any](ctx context.Context, c *core, key cache.Key, ttl time.Duration, remote bool, call func(ctx context.Context) (*transport.Response, error), fallback func() T) (T, error) {
	if v, ok := c.store.Get(key, ttl); ok {
		return v.(T), nil
	}

	if remote && c.deps.Remote != nil {
		if data, err := c.deps.Remote.Get(ctx, key.String()); err == nil {
			if v, decErr := decode[T](data); decErr == nil {
				c.store.Set(key, v)
				return v, nil
			}
		}
	}

	v, _, err := c.flight.Do(key.String(), func() (any, error) {
		resp, err := call(ctx)
		if err != nil {
			if fallback != nil && isMockFallback(c, err) {
				v := fallback()
				c.store.Set(key, v)
				return v, nil
			}
			return nil, apierr.Classify(err)
		}

		v, err := decode[T](resp.Data)
		if err != nil {
			return nil, apierr.Classify(err)
		}

		c.store.Set(key, v)
		if remote && c.deps.Remote != nil {
			if data, mErr := json.Marshal(v); mErr == nil {
				if setErr := c.deps.Remote.Set(ctx, key.String(), data, ttl); setErr != nil {
					c.deps.Logger.Warn("shared cache set failed", "key", key.String(), "err", setErr)
				}
			}
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// callWrite is the shared write path for non-optimistic mutations: dispatch,
// tolerate a missing mock endpoint in mock mode, classify everything else.
func callWrite(c *core, do func() (*transport.Response, error)) (*transport.Response, error) {
	resp, err := do()
	if err != nil {
		if isMockFallback(c, err) {
			return nil, nil
		}
		return nil, apierr.Classify(err)
	}
	return resp, nil
}

// isMockFallback reports whether err is a missing-mock-endpoint error while
// mock mode is active, i.e. the generated-fixture path should be taken.
func isMockFallback(c *core, err error) bool {
	return !c.deps.Flags.UseAPI() && errors.Is(err, mockapi.ErrNoEndpoint)
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
