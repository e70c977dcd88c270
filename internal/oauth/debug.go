package oauth

import (
	"sync"
	"time"
)

// DebugStep is one entry in the diagnostic trail. Details are redacted
// summaries; full tokens and raw authorization codes are never recorded.
type DebugStep struct {
	Timestamp time.Time      `json:"timestamp"`
	Step      string         `json:"step"`
	Details   map[string]any `json:"details"`
}

// DebugTrail is an append-only, in-memory sequence of flow steps with no
// persistence guarantee.
type DebugTrail struct {
	mu    sync.Mutex
	steps []DebugStep
}

// NewDebugTrail creates an empty trail.
func NewDebugTrail() *DebugTrail {
	return &DebugTrail{}
}

// Add appends a step with the current timestamp.
func (t *DebugTrail) Add(step string, details map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, DebugStep{
		Timestamp: time.Now().UTC(),
		Step:      step,
		Details:   details,
	})
}

// Steps returns a copy of the recorded steps in order.
func (t *DebugTrail) Steps() []DebugStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DebugStep, len(t.steps))
	copy(out, t.steps)
	return out
}
