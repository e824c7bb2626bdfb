package cache

import "golang.org/x/sync/singleflight"

// Flight collapses concurrent identical requests into a single underlying
// call. While a call for an operation key is in flight, later callers with
// the same key share its outcome instead of dispatching again; the slot is
// freed when the shared call settles, success or failure. With Enabled
// false every caller dispatches independently.
type Flight struct {
	Enabled bool
	group   singleflight.Group
}

// NewFlight returns a Flight with de-duplication enabled.
func NewFlight() *Flight {
	return &Flight{Enabled: true}
}

// Do executes fn under the operation key. shared reports whether the result
// was produced by another caller's in-flight request.
func (f *Flight) Do(key string, fn func() (any, error)) (v any, shared bool, err error) {
	if !f.Enabled {
		v, err = fn()
		return v, false, err
	}
	v, err, shared = f.group.Do(key, fn)
	return v, shared, err
}
