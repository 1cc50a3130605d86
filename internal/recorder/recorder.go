// Package recorder accumulates key events for a typing session.
package recorder

import (
	"sync"

	"github.com/verte-zerg/keymood/internal/model"
)

// Snapshot is a frozen copy of a session log.
type Snapshot struct {
	Generation uint64
	Events     []model.KeyEvent
}

// Recorder owns the append-only event log of the current session.
// Reads hand out copies so an in-flight analysis never sees later mutations.
type Recorder struct {
	mu sync.Mutex

	events        []model.KeyEvent
	startTime     float64
	hasStart      bool
	lastEventTime float64
	hasLast       bool
	generation    uint64
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// OnKeyPress records a key-down at nowMs.
func (r *Recorder) OnKeyPress(key string, nowMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasStart {
		r.startTime = nowMs
		r.hasStart = true
	}
	r.appendLocked(model.KeyPress, key, nowMs)
}

// OnKeyRelease records a key-up at nowMs. Releases without a prior press are kept.
func (r *Recorder) OnKeyRelease(key string, nowMs float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(model.KeyRelease, key, nowMs)
}

func (r *Recorder) appendLocked(kind model.KeyKind, key string, nowMs float64) {
	r.events = append(r.events, model.KeyEvent{Kind: kind, Key: key, TimeMs: nowMs})
	r.lastEventTime = nowMs
	r.hasLast = true
}

// Reset discards the session and starts a new generation.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.startTime = 0
	r.hasStart = false
	r.lastEventTime = 0
	r.hasLast = false
	r.generation++
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// StartTime returns the first press time since the last reset.
func (r *Recorder) StartTime() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime, r.hasStart
}

// LastEventTime returns the time of the most recent event.
func (r *Recorder) LastEventTime() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastEventTime, r.hasLast
}

// Generation identifies the current session; it changes on every Reset.
func (r *Recorder) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Snapshot copies the current log.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]model.KeyEvent, len(r.events))
	copy(events, r.events)
	return Snapshot{Generation: r.generation, Events: events}
}

// Record dispatches a previously captured event to OnKeyPress or OnKeyRelease.
func (r *Recorder) Record(ev model.KeyEvent) {
	switch ev.Kind {
	case model.KeyRelease:
		r.OnKeyRelease(ev.Key, ev.TimeMs)
	default:
		r.OnKeyPress(ev.Key, ev.TimeMs)
	}
}
