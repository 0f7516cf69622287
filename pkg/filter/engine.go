package filter

import "time"

// Engine owns the filter state for one session and notifies subscribers
// when it changes. It replaces what used to be page-global mutable
// state: the hosting session creates one at start and tears it down at
// end, and every derived view reads through it.
//
// All calls are synchronous and non-overlapping; a subscriber must not
// call Update from within its callback, since notification happens
// inline and would recurse unboundedly.
type Engine struct {
	state       State
	encoded     string
	subscribers []func(State)
}

// NewEngine creates an engine with an empty state.
func NewEngine() *Engine {
	return &Engine{}
}

// Patch is a partial state update. Nil fields leave the corresponding
// predicate unchanged; a pointer to the zero value resets it. For
// SelectedRuns, nil means unchanged and an empty non-nil slice clears
// the selection.
type Patch struct {
	Category     *string
	Status       *string
	Component    *string
	DateFrom     *time.Time
	DateTo       *time.Time
	Search       *string
	SelectedRuns []string
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.snapshot()
}

// Encoded returns the current serialized form of the state.
func (e *Engine) Encoded() string {
	return e.encoded
}

// Subscribe registers a callback invoked synchronously after every
// state change, with a copy of the new state.
func (e *Engine) Subscribe(fn func(State)) {
	e.subscribers = append(e.subscribers, fn)
}

// Update merges the patch into the state, re-serializes it, and
// notifies every subscriber in registration order.
func (e *Engine) Update(p Patch) {
	if p.Category != nil {
		e.state.Category = *p.Category
	}

	if p.Status != nil {
		e.state.Status = *p.Status
	}

	if p.Component != nil {
		e.state.Component = *p.Component
	}

	if p.DateFrom != nil {
		e.state.DateFrom = *p.DateFrom
	}

	if p.DateTo != nil {
		e.state.DateTo = *p.DateTo
	}

	if p.Search != nil {
		e.state.Search = *p.Search
	}

	if p.SelectedRuns != nil {
		e.state.SelectedRuns = append(
			[]string(nil), p.SelectedRuns...,
		)
	}

	e.commit()
}

// Restore replaces the whole state from an encoded string (URL-state
// restoration) and notifies subscribers.
func (e *Engine) Restore(encoded string) {
	e.state = Decode(encoded)
	e.commit()
}

// Reset clears every predicate and notifies subscribers.
func (e *Engine) Reset() {
	e.state = State{}
	e.commit()
}

func (e *Engine) commit() {
	e.encoded = Encode(e.state)

	for _, fn := range e.subscribers {
		fn(e.snapshot())
	}
}

func (e *Engine) snapshot() State {
	s := e.state
	s.SelectedRuns = append([]string(nil), e.state.SelectedRuns...)

	return s
}
