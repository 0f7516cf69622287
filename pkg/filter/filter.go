// Package filter holds the session's query predicates and applies them
// to runs and tests. The state round-trips through a flat, URL-safe
// key=value encoding so a view can be restored from a link.
package filter

import (
	"net/url"
	"strings"
	"time"

	"github.com/pipeops/healthoor/pkg/model"
)

// dateLayout is the calendar-date form used by the encoded state.
const dateLayout = "2006-01-02"

// State is the current set of active query predicates. The zero value
// means "no predicates": every run and test matches.
type State struct {
	// Category filters tests to an exact failure category ("" = any).
	Category string
	// Status filters tests to pass or fail; "passed"/"failed" are
	// accepted synonyms ("" = any).
	Status string
	// Component is a case-insensitive substring match against spec.
	Component string
	// DateFrom/DateTo bound runs to an inclusive calendar-date range;
	// DateTo extends to end-of-day. Zero times are unset.
	DateFrom time.Time
	DateTo   time.Time
	// Search is a case-insensitive substring match against scenario.
	Search string
	// SelectedRuns restricts presentation to specific run IDs.
	SelectedRuns []string
}

// IsSelected reports whether a run ID is in the selected set; an empty
// set selects everything.
func (s *State) IsSelected(runID string) bool {
	if len(s.SelectedRuns) == 0 {
		return true
	}

	for _, id := range s.SelectedRuns {
		if id == runID {
			return true
		}
	}

	return false
}

// Encode serializes the state into flat key=value pairs. Only set
// predicates are emitted, so an empty state encodes to "".
func Encode(s State) string {
	v := url.Values{}

	if s.Category != "" {
		v.Set("category", s.Category)
	}

	if s.Status != "" {
		v.Set("status", s.Status)
	}

	if s.Component != "" {
		v.Set("component", s.Component)
	}

	if !s.DateFrom.IsZero() {
		v.Set("dateFrom", s.DateFrom.Format(dateLayout))
	}

	if !s.DateTo.IsZero() {
		v.Set("dateTo", s.DateTo.Format(dateLayout))
	}

	if s.Search != "" {
		v.Set("search", s.Search)
	}

	if len(s.SelectedRuns) > 0 {
		v.Set("runs", strings.Join(s.SelectedRuns, ","))
	}

	return v.Encode()
}

// Decode restores a state from its encoded form. Unknown keys are
// ignored and absent keys reset the predicate to its default, so stale
// or partially garbled input degrades to a usable state instead of
// failing.
func Decode(encoded string) State {
	var s State

	v, err := url.ParseQuery(encoded)
	if err != nil {
		return s
	}

	s.Category = v.Get("category")
	s.Status = v.Get("status")
	s.Component = v.Get("component")
	s.Search = v.Get("search")

	if raw := v.Get("dateFrom"); raw != "" {
		if t, perr := time.Parse(dateLayout, raw); perr == nil {
			s.DateFrom = t.UTC()
		}
	}

	if raw := v.Get("dateTo"); raw != "" {
		if t, perr := time.Parse(dateLayout, raw); perr == nil {
			s.DateTo = t.UTC()
		}
	}

	if raw := v.Get("runs"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id != "" {
				s.SelectedRuns = append(s.SelectedRuns, id)
			}
		}
	}

	return s
}

// Runs keeps the runs whose calendar date falls within the state's
// inclusive date range. A run without a valid date is excluded whenever
// either bound is set: comparisons against the invalid-date sentinel
// evaluate false.
func Runs(runs []*model.Run, s State) []*model.Run {
	if s.DateFrom.IsZero() && s.DateTo.IsZero() {
		return runs
	}

	out := make([]*model.Run, 0, len(runs))

	for _, run := range runs {
		if !run.HasDate() {
			continue
		}

		d := run.Date()

		if !s.DateFrom.IsZero() && d.Before(calendarDate(s.DateFrom)) {
			continue
		}

		if !s.DateTo.IsZero() && d.After(calendarDate(s.DateTo)) {
			continue
		}

		out = append(out, run)
	}

	return out
}

// Tests keeps the tests matching every set predicate: category, status
// (under pass/fail synonyms), component substring against spec, and
// search substring against scenario. Unset predicates match vacuously.
func Tests(tests []model.Test, s State) []model.Test {
	component := strings.ToLower(s.Component)
	search := strings.ToLower(s.Search)
	wantStatus := canonicalStatus(s.Status)

	out := make([]model.Test, 0, len(tests))

	for _, t := range tests {
		if s.Category != "" && string(t.Category) != s.Category {
			continue
		}

		if wantStatus != "" && t.Status != wantStatus {
			continue
		}

		if component != "" &&
			!strings.Contains(strings.ToLower(t.Spec), component) {
			continue
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(t.Scenario), search) {
			continue
		}

		out = append(out, t)
	}

	return out
}

// canonicalStatus maps the accepted pass/fail synonyms onto the
// canonical status values; anything else matches nothing by itself.
func canonicalStatus(status string) model.Status {
	switch strings.ToLower(status) {
	case "pass", "passed":
		return model.StatusPass
	case "fail", "failed":
		return model.StatusFail
	default:
		return model.Status(status)
	}
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
