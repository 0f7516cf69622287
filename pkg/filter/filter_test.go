package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/healthoor/pkg/filter"
	"github.com/pipeops/healthoor/pkg/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state filter.State
	}{
		{"empty", filter.State{}},
		{"category and search", filter.State{
			Category: "ConfigGap",
			Search:   "timeout",
		}},
		{"all fields", filter.State{
			Category:     "PlatformIssue",
			Status:       "fail",
			Component:    "pipelines",
			DateFrom:     day(2026, 1, 1),
			DateTo:       day(2026, 1, 31),
			Search:       "webhook retry",
			SelectedRuns: []string{"run-1", "run-3"},
		}},
		{"dates only", filter.State{
			DateFrom: day(2025, 6, 15),
			DateTo:   day(2025, 7, 15),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filter.Decode(filter.Encode(tt.state))
			assert.Equal(t, tt.state.Category, got.Category)
			assert.Equal(t, tt.state.Status, got.Status)
			assert.Equal(t, tt.state.Component, got.Component)
			assert.True(t, tt.state.DateFrom.Equal(got.DateFrom))
			assert.True(t, tt.state.DateTo.Equal(got.DateTo))
			assert.Equal(t, tt.state.Search, got.Search)
			assert.Equal(t, tt.state.SelectedRuns, got.SelectedRuns)
		})
	}
}

func TestEncode_OmitsUnsetFields(t *testing.T) {
	encoded := filter.Encode(filter.State{Category: "ConfigGap"})
	assert.Equal(t, "category=ConfigGap", encoded)

	assert.Empty(t, filter.Encode(filter.State{}))
}

func TestDecode_UnknownKeysIgnored(t *testing.T) {
	got := filter.Decode("category=ConfigGap&wat=1&flavor=spicy")
	assert.Equal(t, "ConfigGap", got.Category)
	assert.Empty(t, got.Status)
	assert.Empty(t, got.SelectedRuns)
}

func TestDecode_PartialInputResetsRest(t *testing.T) {
	got := filter.Decode("search=timeout&category=ConfigGap")

	assert.Equal(t, "ConfigGap", got.Category)
	assert.Equal(t, "timeout", got.Search)
	assert.Empty(t, got.Status)
	assert.Empty(t, got.Component)
	assert.True(t, got.DateFrom.IsZero())
	assert.True(t, got.DateTo.IsZero())
	assert.Empty(t, got.SelectedRuns)
}

func TestDecode_Garbage(t *testing.T) {
	got := filter.Decode("%%%not-valid%%%")
	assert.Equal(t, filter.State{}, got)

	got = filter.Decode("dateFrom=yesterday")
	assert.True(t, got.DateFrom.IsZero())
}

func TestRuns_DateRange(t *testing.T) {
	runs := []*model.Run{
		{ID: "a", Timestamp: time.Date(2026, 1, 1, 23, 50, 0, 0, time.UTC)},
		{ID: "b", Timestamp: time.Date(2026, 1, 15, 0, 0, 1, 0, time.UTC)},
		{ID: "c", Timestamp: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)},
		{ID: "no-date"},
	}

	// No bounds: everything passes, invalid dates included.
	got := filter.Runs(runs, filter.State{})
	assert.Len(t, got, 4)

	// Inclusive on both ends; the time of day does not matter.
	got = filter.Runs(runs, filter.State{
		DateFrom: day(2026, 1, 1),
		DateTo:   day(2026, 1, 15),
	})
	assert.Equal(t, []string{"a", "b"}, runIDs(got))

	// Only a lower bound.
	got = filter.Runs(runs, filter.State{DateFrom: day(2026, 1, 10)})
	assert.Equal(t, []string{"b", "c"}, runIDs(got))

	// Only an upper bound; extends to end of day.
	got = filter.Runs(runs, filter.State{DateTo: day(2026, 1, 1)})
	assert.Equal(t, []string{"a"}, runIDs(got))
}

func TestRuns_InvalidDateExcludedByAnyBound(t *testing.T) {
	runs := []*model.Run{{ID: "no-date"}}

	got := filter.Runs(runs, filter.State{DateFrom: day(2000, 1, 1)})
	assert.Empty(t, got)

	got = filter.Runs(runs, filter.State{DateTo: day(2100, 1, 1)})
	assert.Empty(t, got)
}

func TestTests_StatusSynonyms(t *testing.T) {
	tests := []model.Test{
		{Spec: "A", Scenario: "x", Status: model.StatusFail},
		{Spec: "B", Scenario: "y", Status: model.StatusPass},
	}

	got := filter.Tests(tests, filter.State{Status: "failed"})
	require.Len(t, got, 1)
	assert.Equal(t, "A::x", got[0].Key())

	got = filter.Tests(tests, filter.State{Status: "passed"})
	require.Len(t, got, 1)
	assert.Equal(t, "B::y", got[0].Key())

	got = filter.Tests(tests, filter.State{Status: "pass"})
	require.Len(t, got, 1)
	assert.Equal(t, "B::y", got[0].Key())
}

func TestTests_AllPredicatesAnded(t *testing.T) {
	tests := []model.Test{
		{Spec: "Pipelines", Scenario: "webhook-timeout",
			Status: model.StatusFail, Category: model.CategoryConfigGap},
		{Spec: "Pipelines", Scenario: "basic",
			Status: model.StatusFail, Category: model.CategoryConfigGap},
		{Spec: "Triggers", Scenario: "webhook-timeout",
			Status: model.StatusFail, Category: model.CategoryConfigGap},
		{Spec: "Pipelines", Scenario: "webhook-timeout",
			Status: model.StatusPass},
	}

	got := filter.Tests(tests, filter.State{
		Category:  "ConfigGap",
		Status:    "fail",
		Component: "pipe",
		Search:    "TIMEOUT",
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Pipelines::webhook-timeout", got[0].Key())
	assert.Equal(t, model.StatusFail, got[0].Status)
}

func TestTests_UnsetStateMatchesAll(t *testing.T) {
	tests := []model.Test{
		{Spec: "A", Scenario: "x", Status: model.StatusFail},
		{Spec: "B", Scenario: "y", Status: model.StatusUnknown},
	}

	got := filter.Tests(tests, filter.State{})
	assert.Len(t, got, 2)
}

func TestState_IsSelected(t *testing.T) {
	s := filter.State{}
	assert.True(t, s.IsSelected("anything"))

	s.SelectedRuns = []string{"run-1"}
	assert.True(t, s.IsSelected("run-1"))
	assert.False(t, s.IsSelected("run-2"))
}

func runIDs(runs []*model.Run) []string {
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.ID)
	}

	return out
}
