// Package diff correlates tests across runs by their spec::scenario
// identity and computes status transitions between two runs.
package diff

import "github.com/pipeops/healthoor/pkg/model"

// Result partitions the failure transitions between two runs. Passing
// tests are never listed; a test present in the earlier run but absent
// from the later one is invisible to the diff by design — the diff
// reports status transitions of tests that still exist, not test-set
// membership changes.
type Result struct {
	NewFailures       []model.Test `json:"new_failures"`
	Fixed             []model.Test `json:"fixed"`
	UnchangedFailures []model.Test `json:"unchanged_failures"`
}

// Transition marks how a test's status changed between adjacent runs.
type Transition string

const (
	TransitionRegression Transition = "regression"
	TransitionFixed      Transition = "fixed"
)

// BuildIndex builds a test lookup keyed by test identity. Within one run
// a key is expected unique; duplicates resolve last-write-wins.
func BuildIndex(run *model.Run) map[string]*model.Test {
	if run == nil {
		return map[string]*model.Test{}
	}

	index := make(map[string]*model.Test, len(run.Tests))
	for i := range run.Tests {
		index[run.Tests[i].Key()] = &run.Tests[i]
	}

	return index
}

// Diff computes the failure transitions from runA to runB.
//
// NewFailures and UnchangedFailures follow runB's test order; Fixed
// follows runA's. A test failing in runB is a new failure when runA has
// no entry for it or runA's entry passed, and an unchanged failure when
// runA's entry also failed.
func Diff(runA, runB *model.Run) *Result {
	indexA := BuildIndex(runA)
	indexB := BuildIndex(runB)

	result := &Result{
		NewFailures:       []model.Test{},
		Fixed:             []model.Test{},
		UnchangedFailures: []model.Test{},
	}

	if runB != nil {
		for i := range runB.Tests {
			tB := &runB.Tests[i]
			if !tB.Failed() {
				continue
			}

			tA, ok := indexA[tB.Key()]

			switch {
			case !ok || tA.Passed():
				result.NewFailures = append(result.NewFailures, *tB)
			case tA.Failed():
				result.UnchangedFailures = append(
					result.UnchangedFailures, *tB,
				)
			}
		}
	}

	if runA != nil {
		for i := range runA.Tests {
			tA := &runA.Tests[i]
			if !tA.Failed() {
				continue
			}

			if tB, ok := indexB[tA.Key()]; ok && tB.Passed() {
				result.Fixed = append(result.Fixed, *tB)
			}
		}
	}

	return result
}

// StepRegressions flags per-test flips between a run and its immediate
// predecessor: pass→fail marks a regression, fail→pass marks a fix.
// Tests without a match in the previous run, and tests whose status did
// not flip, are unmarked. A nil previous run yields an empty map.
func StepRegressions(
	current, previous *model.Run,
) map[string]Transition {
	marks := make(map[string]Transition)

	if current == nil || previous == nil {
		return marks
	}

	prevIndex := BuildIndex(previous)

	for i := range current.Tests {
		t := &current.Tests[i]

		prev, ok := prevIndex[t.Key()]
		if !ok {
			continue
		}

		switch {
		case prev.Passed() && t.Failed():
			marks[t.Key()] = TransitionRegression
		case prev.Failed() && t.Passed():
			marks[t.Key()] = TransitionFixed
		}
	}

	return marks
}
