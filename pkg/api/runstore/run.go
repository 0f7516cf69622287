package runstore

import (
	"encoding/json"
	"time"

	"github.com/pipeops/healthoor/pkg/model"
)

// Run is one indexed run record in the database, with aggregates and
// optional metrics denormalized onto the row.
type Run struct {
	ID        uint      `gorm:"primaryKey"`
	RunID     string    `gorm:"not null;uniqueIndex:idx_runs_run_id"`
	Timestamp time.Time `gorm:"index"`
	Label     string

	// Denormalized aggregates.
	Total    int
	Passed   int
	Failed   int
	PassRate float64
	Duration string

	CommitSHA     string
	CommitMessage string

	// Category counts serialized as JSON.
	CategoriesJSON string `gorm:"type:text"`

	// Optional performance metrics; nil columns mean the run payload
	// did not carry them.
	ThroughputPerMinute *float64
	P50LatencySeconds   *float64
	P95LatencySeconds   *float64

	// Optional resource profile.
	PeakCPUMillicores *float64
	PeakMemoryBytes   *int64
	PodCount          *int

	IndexedAt time.Time
}

// TestResult is one per-test record belonging to an indexed run.
type TestResult struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"not null;index:idx_test_results_run_id"`
	Spec     string
	Scenario string
	Status   string
	Category string
	Duration string
	Error    string `gorm:"type:text"`
}

// FromModel converts a normalized run into its database rows.
func FromModel(run *model.Run) (*Run, []TestResult) {
	row := &Run{
		RunID:         run.ID,
		Timestamp:     run.Timestamp,
		Label:         run.Label,
		Total:         run.Total,
		Passed:        run.Passed,
		Failed:        run.Failed,
		PassRate:      run.PassRate,
		Duration:      run.Duration,
		CommitSHA:     run.CommitSHA,
		CommitMessage: run.CommitMessage,
	}

	if len(run.Categories) > 0 {
		if b, err := json.Marshal(run.Categories); err == nil {
			row.CategoriesJSON = string(b)
		}
	}

	if run.Performance != nil {
		row.ThroughputPerMinute = run.Performance.ThroughputPerMinute
		row.P50LatencySeconds = run.Performance.P50LatencySeconds
		row.P95LatencySeconds = run.Performance.P95LatencySeconds
	}

	if run.Resources != nil {
		row.PeakCPUMillicores = run.Resources.PeakCPUMillicores
		row.PeakMemoryBytes = run.Resources.PeakMemoryBytes
		row.PodCount = run.Resources.PodCount
	}

	tests := make([]TestResult, 0, len(run.Tests))
	for _, t := range run.Tests {
		tests = append(tests, TestResult{
			RunID:    run.ID,
			Spec:     t.Spec,
			Scenario: t.Scenario,
			Status:   string(t.Status),
			Category: string(t.Category),
			Duration: t.Duration,
			Error:    t.Error,
		})
	}

	return row, tests
}

// ToModel converts a database row and its test rows back into the
// canonical run shape.
func (r *Run) ToModel(tests []TestResult) *model.Run {
	run := &model.Run{
		ID:            r.RunID,
		Timestamp:     r.Timestamp,
		Label:         r.Label,
		Total:         r.Total,
		Passed:        r.Passed,
		Failed:        r.Failed,
		PassRate:      r.PassRate,
		Duration:      r.Duration,
		CommitSHA:     r.CommitSHA,
		CommitMessage: r.CommitMessage,
	}

	if r.CategoriesJSON != "" {
		categories := map[model.Category]int{}
		if json.Unmarshal([]byte(r.CategoriesJSON), &categories) == nil {
			run.Categories = categories
		}
	}

	if r.ThroughputPerMinute != nil || r.P50LatencySeconds != nil ||
		r.P95LatencySeconds != nil {
		run.Performance = &model.PerformanceMetrics{
			ThroughputPerMinute: r.ThroughputPerMinute,
			P50LatencySeconds:   r.P50LatencySeconds,
			P95LatencySeconds:   r.P95LatencySeconds,
		}
	}

	if r.PeakCPUMillicores != nil || r.PeakMemoryBytes != nil ||
		r.PodCount != nil {
		run.Resources = &model.ResourceMetrics{
			PeakCPUMillicores: r.PeakCPUMillicores,
			PeakMemoryBytes:   r.PeakMemoryBytes,
			PodCount:          r.PodCount,
		}
	}

	run.Tests = make([]model.Test, 0, len(tests))
	for _, t := range tests {
		run.Tests = append(run.Tests, model.Test{
			Spec:     t.Spec,
			Scenario: t.Scenario,
			Status:   model.Status(t.Status),
			Category: model.Category(t.Category),
			Duration: t.Duration,
			Error:    t.Error,
		})
	}

	return run
}
