package service

import (
	"sync"
	"time"

	"github.com/rmartins/navengine/internal/model"
)

// Notifier receives non-fatal warnings (missing prices, FX failures) as a
// computation runs. The engine never aborts a whole computation because one
// ticker failed; it degrades the affected fields and notifies.
type Notifier interface {
	Notify(w model.Warning)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(model.Warning)

// Notify calls f(w).
func (f NotifierFunc) Notify(w model.Warning) { f(w) }

// NopNotifier returns a Notifier that discards all warnings.
func NopNotifier() Notifier {
	return NotifierFunc(func(model.Warning) {})
}

// Collector is a Notifier that records every warning it receives.
// Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	warnings []model.Warning
}

// Notify records w.
func (c *Collector) Notify(w model.Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Warnings returns a copy of everything recorded so far.
func (c *Collector) Warnings() []model.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// recorder tees warnings into a local list while forwarding them to the
// caller's notifier, so results can carry their own warnings.
type recorder struct {
	next     Notifier
	mu       sync.Mutex
	warnings []model.Warning
}

func newRecorder(next Notifier) *recorder {
	if next == nil {
		next = NopNotifier()
	}
	return &recorder{next: next}
}

func (r *recorder) warn(code, ticker, message string) {
	r.Notify(model.Warning{
		Code:    code,
		Ticker:  ticker,
		Message: message,
		Time:    time.Now().UTC(),
	})
}

// Notify records w and forwards it, so a recorder can stand in as the
// Notifier for nested computations.
func (r *recorder) Notify(w model.Warning) {
	r.mu.Lock()
	r.warnings = append(r.warnings, w)
	r.mu.Unlock()
	r.next.Notify(w)
}

func (r *recorder) list() []model.Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}
