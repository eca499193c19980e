package oracle

import (
	"context"
	"fmt"
	"sync"
)

// ScriptStep is one canned oracle turn: a decision or an error.
type ScriptStep struct {
	Decision Decision
	Err      error
}

// ScriptedOracle replays a fixed sequence of steps and records every
// request it saw. It is the injection point the protocol tests use to
// exercise conflicts, malformed verdicts, and retries without a model.
type ScriptedOracle struct {
	mu    sync.Mutex
	steps []ScriptStep
	next  int
	calls []Request
}

// NewScripted creates a scripted oracle that replays steps in order.
func NewScripted(steps ...ScriptStep) *ScriptedOracle {
	return &ScriptedOracle{steps: steps}
}

// Name identifies the oracle in logs and reports.
func (s *ScriptedOracle) Name() string { return "scripted" }

// Decide pops the next step. Running past the script is an error so a
// test never silently loops.
func (s *ScriptedOracle) Decide(_ context.Context, req Request) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if s.next >= len(s.steps) {
		return Decision{}, fmt.Errorf("scripted oracle exhausted after %d steps: %w", len(s.steps), ErrMalformed)
	}
	step := s.steps[s.next]
	s.next++
	if step.Err != nil {
		return Decision{}, step.Err
	}
	return step.Decision, nil
}

// Calls returns the requests seen so far, in order.
func (s *ScriptedOracle) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}
