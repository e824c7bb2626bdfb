// Package flags holds the runtime toggles that select between the real API
// and the mock backend, switch debug logging, and tune simulated latency.
// One Flags instance is constructed at startup and passed explicitly to
// everything that needs it; mode can be flipped mid-session.
package flags

import (
	"log/slog"
	"sync"
	"time"
)

// Default flag values: new processes start against the mock backend with a
// small simulated latency, matching local development defaults.
const (
	DefaultMockDelay = 300 * time.Millisecond
)

// Flags is the process-wide toggle set. All accessors are safe for
// concurrent use; the dispatcher reads the mode at call time, not at
// construction.
type Flags struct {
	mu        sync.RWMutex
	useAPI    bool
	debug     bool
	mockDelay time.Duration
	extra     map[string]bool

	level *slog.LevelVar
}

// New returns a Flags set with defaults: mock mode, debug off.
func New() *Flags {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	return &Flags{
		mockDelay: DefaultMockDelay,
		extra:     make(map[string]bool),
		level:     level,
	}
}

// EnableAPIMode routes subsequent dispatches to the real backend.
func (f *Flags) EnableAPIMode() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.useAPI = true
}

// EnableMockMode routes subsequent dispatches to the mock registry.
func (f *Flags) EnableMockMode() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.useAPI = false
}

// UseAPI reports whether the real backend is selected.
func (f *Flags) UseAPI() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.useAPI
}

// EnableDebug turns on debug logging. The slog level var returned by
// LogLevel follows this flag.
func (f *Flags) EnableDebug() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debug = true
	f.level.Set(slog.LevelDebug)
}

// DisableDebug turns off debug logging.
func (f *Flags) DisableDebug() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debug = false
	f.level.Set(slog.LevelInfo)
}

// Debug reports whether debug logging is enabled.
func (f *Flags) Debug() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.debug
}

// LogLevel exposes the slog level var driven by the debug flag, for wiring
// into a handler at startup.
func (f *Flags) LogLevel() *slog.LevelVar {
	return f.level
}

// SetMockDelay sets the simulated latency applied by mock endpoints that do
// not declare their own delay.
func (f *Flags) SetMockDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mockDelay = d
}

// MockDelay returns the global simulated mock latency.
func (f *Flags) MockDelay() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mockDelay
}

// Set stores a named rollout toggle.
func (f *Flags) Set(name string, value bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extra[name] = value
}

// Bool returns a named rollout toggle; unset names are false.
func (f *Flags) Bool(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.extra[name]
}

// All returns a snapshot of every flag, keyed by name. The map is a copy.
func (f *Flags) All() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := map[string]any{
		"use_api":       f.useAPI,
		"debug_mode":    f.debug,
		"mock_delay_ms": f.mockDelay.Milliseconds(),
	}
	for name, v := range f.extra {
		out[name] = v
	}
	return out
}
