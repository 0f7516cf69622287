package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/healthoor/pkg/classify"
	"github.com/pipeops/healthoor/pkg/diff"
	"github.com/pipeops/healthoor/pkg/export"
	"github.com/pipeops/healthoor/pkg/model"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }

func TestToCSV_Header(t *testing.T) {
	got := export.ToCSV(nil)

	assert.Equal(
		t,
		"Date,Pass Rate (%),Passed,Failed,Total,Commit SHA,"+
			"Throughput (runs/min),P50 Latency (s)\n",
		got,
	)
}

func TestToCSV_Rows(t *testing.T) {
	runs := []*model.Run{
		{
			ID:        "run-1",
			Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			PassRate:  91.666,
			Passed:    110,
			Failed:    10,
			Total:     120,
			CommitSHA: "abc1234",
			Performance: &model.PerformanceMetrics{
				ThroughputPerMinute: floatPtr(42.35),
				P50LatencySeconds:   floatPtr(1.2345),
			},
		},
		{
			ID:       "run-2",
			PassRate: 100,
			Passed:   5,
			Total:    5,
		},
	}

	got := export.ToCSV(runs)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 3)

	// Pass rate to one decimal, latency to two.
	assert.Equal(t, "2026-03-01,91.7,110,10,120,abc1234,42.3,1.23", lines[1])

	// Absent date, commit, and metrics render as empty cells.
	assert.Equal(t, ",100.0,5,0,5,,,", lines[2])
}

func TestToCSV_RowOrderFollowsInput(t *testing.T) {
	runs := []*model.Run{
		{ID: "b", CommitSHA: "bbb"},
		{ID: "a", CommitSHA: "aaa"},
	}

	got := export.ToCSV(runs)
	assert.Less(
		t,
		strings.Index(got, "bbb"),
		strings.Index(got, "aaa"),
	)
}

func TestSummary(t *testing.T) {
	run := &model.Run{
		ID:        "run-1",
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Total:     120,
		Passed:    110,
		Failed:    10,
		PassRate:  91.7,
		Duration:  "5m 12s",
		CommitSHA: "abc1234",
		Performance: &model.PerformanceMetrics{
			ThroughputPerMinute: floatPtr(42.0),
			P50LatencySeconds:   floatPtr(1.25),
		},
		Resources: &model.ResourceMetrics{
			PeakCPUMillicores: floatPtr(750),
			PeakMemoryBytes:   int64Ptr(2 * 1024 * 1024 * 1024),
			PodCount:          intPtr(12),
		},
	}

	result := &diff.Result{
		NewFailures: []model.Test{
			{Spec: "Pipelines", Scenario: "webhook", Status: model.StatusFail},
		},
		Fixed: []model.Test{
			{Spec: "Triggers", Scenario: "basic", Status: model.StatusPass},
		},
	}

	groups := []classify.CategoryGroup{
		{
			Category: model.CategoryConfigGap,
			Count:    1,
			Tests:    []string{"Pipelines::webhook"},
		},
	}

	got := export.Summary(run, result, groups)

	assert.Contains(t, got, "Run run-1 (2026-03-01)")
	assert.Contains(t, got, "pass rate: 91.7%")
	assert.Contains(t, got, "duration:  5m 12s")
	assert.Contains(t, got, "throughput:  42.0 runs/min")
	assert.Contains(t, got, "p50 latency: 1.25s")
	assert.Contains(t, got, "peak cpu:    750 millicores")
	assert.Contains(t, got, "peak memory: 2GiB")
	assert.Contains(t, got, "pods:        12")
	assert.Contains(t, got, "new failures:       1")
	assert.Contains(t, got, "- Pipelines::webhook")
	assert.Contains(t, got, "fixed:              1")
	assert.Contains(t, got, "- Triggers::basic")
	assert.Contains(t, got, "ConfigGap (1)")
	assert.Contains(t, got, "ConfigGap (1)\n    - Pipelines::webhook")
}

func TestSummary_MinimalRun(t *testing.T) {
	got := export.Summary(&model.Run{ID: "run-x", Total: 3, Passed: 3, PassRate: 100}, nil, nil)

	assert.Contains(t, got, "Run run-x\n")
	assert.NotContains(t, got, "Performance")
	assert.NotContains(t, got, "Resources")
	assert.NotContains(t, got, "Compared to previous run")
	assert.NotContains(t, got, "Failures by category")
}

func TestSummary_NilRun(t *testing.T) {
	assert.Empty(t, export.Summary(nil, nil, nil))
}
