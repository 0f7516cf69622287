package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/healthoor/pkg/filter"
)

func strPtr(s string) *string       { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func TestEngine_UpdateMergesAndNotifies(t *testing.T) {
	e := filter.NewEngine()

	var notified []filter.State

	e.Subscribe(func(s filter.State) {
		notified = append(notified, s)
	})

	e.Update(filter.Patch{Category: strPtr("ConfigGap")})
	e.Update(filter.Patch{Search: strPtr("timeout")})

	require.Len(t, notified, 2)

	// Each notification carries the merged state at that point.
	assert.Equal(t, "ConfigGap", notified[0].Category)
	assert.Empty(t, notified[0].Search)

	assert.Equal(t, "ConfigGap", notified[1].Category)
	assert.Equal(t, "timeout", notified[1].Search)

	// Updates are merges: untouched predicates survive.
	assert.Equal(t, "ConfigGap", e.State().Category)
	assert.Equal(t, "timeout", e.State().Search)
}

func TestEngine_NotificationIsSynchronous(t *testing.T) {
	e := filter.NewEngine()

	fired := false

	e.Subscribe(func(filter.State) { fired = true })
	e.Update(filter.Patch{Status: strPtr("fail")})

	assert.True(t, fired, "subscriber must run before Update returns")
}

func TestEngine_MultipleSubscribersInOrder(t *testing.T) {
	e := filter.NewEngine()

	var order []int

	e.Subscribe(func(filter.State) { order = append(order, 1) })
	e.Subscribe(func(filter.State) { order = append(order, 2) })

	e.Update(filter.Patch{})

	assert.Equal(t, []int{1, 2}, order)
}

func TestEngine_EncodedTracksState(t *testing.T) {
	e := filter.NewEngine()
	assert.Empty(t, e.Encoded())

	e.Update(filter.Patch{
		Category: strPtr("PlatformIssue"),
		DateFrom: timePtr(day(2026, 2, 1)),
	})

	got := filter.Decode(e.Encoded())
	assert.Equal(t, "PlatformIssue", got.Category)
	assert.True(t, day(2026, 2, 1).Equal(got.DateFrom))
}

func TestEngine_Restore(t *testing.T) {
	e := filter.NewEngine()
	e.Update(filter.Patch{Category: strPtr("ConfigGap")})

	var last filter.State

	e.Subscribe(func(s filter.State) { last = s })

	// Restore replaces the whole state, including predicates the
	// encoded form does not mention.
	e.Restore("search=flaky&runs=run-1,run-2")

	assert.Empty(t, last.Category)
	assert.Equal(t, "flaky", last.Search)
	assert.Equal(t, []string{"run-1", "run-2"}, last.SelectedRuns)
}

func TestEngine_ResetClearsPredicates(t *testing.T) {
	e := filter.NewEngine()
	e.Update(filter.Patch{
		Category:     strPtr("ConfigGap"),
		SelectedRuns: []string{"run-9"},
	})

	e.Reset()

	assert.Equal(t, filter.State{}, e.State())
	assert.Empty(t, e.Encoded())
}

func TestEngine_SelectedRunsPatchSemantics(t *testing.T) {
	e := filter.NewEngine()
	e.Update(filter.Patch{SelectedRuns: []string{"a", "b"}})

	// Nil leaves the selection alone.
	e.Update(filter.Patch{Search: strPtr("x")})
	assert.Equal(t, []string{"a", "b"}, e.State().SelectedRuns)

	// Empty non-nil clears it.
	e.Update(filter.Patch{SelectedRuns: []string{}})
	assert.Empty(t, e.State().SelectedRuns)
}

func TestEngine_StateIsACopy(t *testing.T) {
	e := filter.NewEngine()
	e.Update(filter.Patch{SelectedRuns: []string{"a"}})

	s := e.State()
	s.SelectedRuns[0] = "mutated"

	assert.Equal(t, []string{"a"}, e.State().SelectedRuns)
}
