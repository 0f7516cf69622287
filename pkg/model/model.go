// Package model defines the canonical run/test records that every other
// component consumes. Runs are produced once by the normalizer and never
// mutated afterwards; derived views (diffs, series, exports) are always
// recomputed from these records.
package model

import "time"

// Status is the outcome of a single test execution.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Category is a heuristic failure bucket assigned by the classifier.
type Category string

const (
	CategoryMissingComponent   Category = "MissingComponent"
	CategoryUpgradePrereq      Category = "UpgradePrereq"
	CategoryPlatformIssue      Category = "PlatformIssue"
	CategoryConfigGap          Category = "ConfigGap"
	CategoryUpstreamRegression Category = "UpstreamRegression"
)

// Categories lists all failure categories in classifier priority order.
var Categories = []Category{
	CategoryMissingComponent,
	CategoryUpgradePrereq,
	CategoryPlatformIssue,
	CategoryConfigGap,
	CategoryUpstreamRegression,
}

// Test is one test case's outcome within a run.
type Test struct {
	Spec     string   `json:"spec"`
	Scenario string   `json:"scenario"`
	Status   Status   `json:"status"`
	Category Category `json:"category,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Key returns the identity used to correlate this test across runs.
// Two tests with equal keys in different runs are the same test,
// regardless of any other attribute differences.
func (t *Test) Key() string {
	return TestKey(t.Spec, t.Scenario)
}

// Failed reports whether the test did not pass.
func (t *Test) Failed() bool {
	return t.Status == StatusFail
}

// Passed reports whether the test passed.
func (t *Test) Passed() bool {
	return t.Status == StatusPass
}

// TestKey builds the spec::scenario identity string.
func TestKey(spec, scenario string) string {
	return spec + "::" + scenario
}

// PerformanceMetrics carries optional performance measurements attached
// to a run. Nil pointer fields mean the metric was not recorded.
type PerformanceMetrics struct {
	ThroughputPerMinute *float64 `json:"throughput_per_minute,omitempty"`
	P50LatencySeconds   *float64 `json:"p50_latency_seconds,omitempty"`
	P95LatencySeconds   *float64 `json:"p95_latency_seconds,omitempty"`
}

// ResourceMetrics carries optional cluster resource measurements for a run.
type ResourceMetrics struct {
	PeakCPUMillicores *float64 `json:"peak_cpu_millicores,omitempty"`
	PeakMemoryBytes   *int64   `json:"peak_memory,omitempty"`
	PodCount          *int     `json:"pod_count,omitempty"`
}

// Run is one full execution of the test suite.
//
// Timestamp is the zero time when the source payload carried no parseable
// date; date comparisons against such a run evaluate false, so it is
// excluded by any date-range filter but never causes an error.
type Run struct {
	ID            string           `json:"id"`
	Timestamp     time.Time        `json:"timestamp"`
	Label         string           `json:"label,omitempty"`
	Total         int              `json:"total"`
	Passed        int              `json:"passed"`
	Failed        int              `json:"failed"`
	PassRate      float64          `json:"pass_rate"`
	Duration      string           `json:"duration,omitempty"`
	CommitSHA     string           `json:"commit_sha,omitempty"`
	CommitMessage string           `json:"commit_message,omitempty"`
	Categories    map[Category]int `json:"categories,omitempty"`
	Tests         []Test           `json:"tests,omitempty"`

	Performance *PerformanceMetrics `json:"performance,omitempty"`
	Resources   *ResourceMetrics    `json:"resources,omitempty"`
}

// HasDate reports whether the run carries a valid timestamp.
func (r *Run) HasDate() bool {
	return !r.Timestamp.IsZero()
}

// Date returns the run timestamp truncated to its calendar date (UTC).
func (r *Run) Date() time.Time {
	y, m, d := r.Timestamp.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
