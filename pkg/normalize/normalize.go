// Package normalize maps the heterogeneous historical run payload shapes
// into the canonical model. Every field alias and derived default lives
// here so that downstream components never branch on field presence.
package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pipeops/healthoor/pkg/classify"
	"github.com/pipeops/healthoor/pkg/model"
)

// RawRun is the union of all run payload shapes produced over time.
// Optional aliases exist for most fields; Normalize resolves them.
type RawRun struct {
	ID            string          `json:"id,omitempty"`
	Date          string          `json:"date,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Label         string          `json:"label,omitempty"`
	Total         int             `json:"total,omitempty"`
	Passed        int             `json:"passed,omitempty"`
	Failed        int             `json:"failed,omitempty"`
	PassRate      *float64        `json:"pass_rate,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	DurationSecs  *float64        `json:"duration_secs,omitempty"`
	CommitSHA     string          `json:"commit_sha,omitempty"`
	CommitMessage string          `json:"commit_message,omitempty"`
	ComponentRefs []RawComponent  `json:"component_refs,omitempty"`
	Categories    json.RawMessage `json:"categories,omitempty"`
	Tests         []RawTest       `json:"tests,omitempty"`

	Performance          *RawPerformance `json:"performance,omitempty"`
	PerformanceResources *RawResources   `json:"performance_resources,omitempty"`
	ResourceProfile      *RawResources   `json:"resource_profile,omitempty"`
}

// RawComponent is a component reference carried by newer payloads.
type RawComponent struct {
	Name    string `json:"name,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Message string `json:"message,omitempty"`
}

// RawTest is a single test entry as it appears in a raw payload.
type RawTest struct {
	Spec         string   `json:"spec,omitempty"`
	Scenario     string   `json:"scenario,omitempty"`
	Name         string   `json:"name,omitempty"`
	Status       string   `json:"status,omitempty"`
	Passed       *bool    `json:"passed,omitempty"`
	Error        string   `json:"error,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Category     string   `json:"category,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	DurationSecs *float64 `json:"duration_secs,omitempty"`
}

// RawPerformance mirrors the perf harness output block.
type RawPerformance struct {
	Scenario string `json:"scenario,omitempty"`
	Metrics  struct {
		ThroughputPerMinute *float64 `json:"throughput_per_minute,omitempty"`
		P50LatencySeconds   *float64 `json:"p50_latency_seconds,omitempty"`
		P95LatencySeconds   *float64 `json:"p95_latency_seconds,omitempty"`
	} `json:"metrics"`
}

// RawResources mirrors the resource profiling output block.
type RawResources struct {
	PeakCPUMillicores *float64 `json:"peak_cpu_millicores,omitempty"`
	PeakMemory        *int64   `json:"peak_memory,omitempty"`
	PodCount          *int     `json:"pod_count,omitempty"`
}

// rawCategoryGroup is one entry of the array-shaped categories summary.
type rawCategoryGroup struct {
	Category string `json:"category,omitempty"`
	Name     string `json:"name,omitempty"`
	Count    int    `json:"count"`
}

// RunFromJSON parses a raw JSON run payload and normalizes it.
func RunFromJSON(data []byte) (*model.Run, error) {
	var raw RawRun
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing run payload: %w", err)
	}

	return Run(&raw), nil
}

// Run converts a raw payload into a canonical run. Missing optional
// fields resolve to defined defaults and never produce an error.
func Run(raw *RawRun) *model.Run {
	run := &model.Run{
		ID:            raw.ID,
		Timestamp:     ParseDate(firstNonEmpty(raw.Date, raw.Timestamp)),
		Label:         raw.Label,
		Total:         raw.Total,
		Passed:        raw.Passed,
		Failed:        raw.Failed,
		Duration:      raw.Duration,
		CommitSHA:     raw.CommitSHA,
		CommitMessage: raw.CommitMessage,
	}

	run.Tests = make([]model.Test, 0, len(raw.Tests))
	for i := range raw.Tests {
		run.Tests = append(run.Tests, normalizeTest(&raw.Tests[i]))
	}

	// Derive aggregate counts from the test list when the payload
	// carries none of its own.
	if run.Total == 0 && run.Passed == 0 && run.Failed == 0 &&
		len(run.Tests) > 0 {
		run.Total = len(run.Tests)

		for i := range run.Tests {
			switch run.Tests[i].Status {
			case model.StatusPass:
				run.Passed++
			case model.StatusFail:
				run.Failed++
			}
		}
	}

	switch {
	case raw.PassRate != nil:
		run.PassRate = *raw.PassRate
	case run.Total > 0:
		run.PassRate = float64(run.Passed) / float64(run.Total) * 100
	}

	if run.Duration == "" && raw.DurationSecs != nil {
		run.Duration = FormatDuration(*raw.DurationSecs)
	}

	if run.CommitSHA == "" && len(raw.ComponentRefs) > 0 {
		run.CommitSHA = raw.ComponentRefs[0].SHA

		if run.CommitMessage == "" {
			run.CommitMessage = raw.ComponentRefs[0].Message
		}
	}

	run.Categories = normalizeCategories(raw.Categories)
	if len(run.Categories) == 0 {
		run.Categories = deriveCategories(run.Tests)
	}

	run.Performance = normalizePerformance(raw.Performance)
	run.Resources = normalizeResources(
		raw.PerformanceResources, raw.ResourceProfile,
	)

	return run
}

// normalizeTest resolves the test-level field aliases: scenario|name,
// status|passed, error|error_message, and the derived failure category.
func normalizeTest(raw *RawTest) model.Test {
	t := model.Test{
		Spec:     raw.Spec,
		Scenario: firstNonEmpty(raw.Scenario, raw.Name),
		Status:   normalizeStatus(raw.Status, raw.Passed),
		Category: model.Category(raw.Category),
		Duration: raw.Duration,
		Error:    firstNonEmpty(raw.Error, raw.ErrorMessage),
	}

	if t.Duration == "" && raw.DurationSecs != nil {
		t.Duration = FormatDuration(*raw.DurationSecs)
	}

	// Failing tests without an explicit category get one from the
	// classifier; passing tests never carry a failure category.
	if t.Status == model.StatusFail {
		if t.Category == "" && t.Error != "" {
			t.Category = classify.Categorize(t.Error)
		}
	} else {
		t.Category = ""
	}

	return t
}

// normalizeStatus resolves status|passed aliasing and canonicalizes the
// pass/fail synonyms ("passed", "failed") used by older payloads.
func normalizeStatus(status string, passed *bool) model.Status {
	switch status {
	case "pass", "passed":
		return model.StatusPass
	case "fail", "failed":
		return model.StatusFail
	case "":
		if passed != nil {
			if *passed {
				return model.StatusPass
			}

			return model.StatusFail
		}

		return model.StatusUnknown
	default:
		return model.StatusUnknown
	}
}

// normalizeCategories accepts either an array of {category|name, count}
// groups or an object map and always yields a category→count map.
func normalizeCategories(raw json.RawMessage) map[model.Category]int {
	if len(raw) == 0 {
		return nil
	}

	var asMap map[string]int
	if err := json.Unmarshal(raw, &asMap); err == nil {
		out := make(map[model.Category]int, len(asMap))
		for k, v := range asMap {
			out[model.Category(k)] = v
		}

		return out
	}

	var asGroups []rawCategoryGroup
	if err := json.Unmarshal(raw, &asGroups); err == nil {
		out := make(map[model.Category]int, len(asGroups))
		for _, g := range asGroups {
			name := firstNonEmpty(g.Category, g.Name)
			if name == "" {
				continue
			}

			out[model.Category(name)] += g.Count
		}

		return out
	}

	// Unrecognized shape degrades to "no summary" rather than failing.
	return nil
}

// deriveCategories builds the category summary from the failed tests.
func deriveCategories(tests []model.Test) map[model.Category]int {
	var out map[model.Category]int

	for i := range tests {
		t := &tests[i]
		if !t.Failed() {
			continue
		}

		cat := t.Category
		if cat == "" {
			cat = model.CategoryUpstreamRegression
		}

		if out == nil {
			out = make(map[model.Category]int)
		}

		out[cat]++
	}

	return out
}

func normalizePerformance(raw *RawPerformance) *model.PerformanceMetrics {
	if raw == nil {
		return nil
	}

	return &model.PerformanceMetrics{
		ThroughputPerMinute: raw.Metrics.ThroughputPerMinute,
		P50LatencySeconds:   raw.Metrics.P50LatencySeconds,
		P95LatencySeconds:   raw.Metrics.P95LatencySeconds,
	}
}

// normalizeResources resolves the performance_resources|resource_profile
// aliasing; performance_resources wins when both are present.
func normalizeResources(
	resources, profile *RawResources,
) *model.ResourceMetrics {
	raw := resources
	if raw == nil {
		raw = profile
	}

	if raw == nil {
		return nil
	}

	return &model.ResourceMetrics{
		PeakCPUMillicores: raw.PeakCPUMillicores,
		PeakMemoryBytes:   raw.PeakMemory,
		PodCount:          raw.PodCount,
	}
}

// dateLayouts are the timestamp formats seen across payload generations.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a date string from any known payload generation.
// Unparseable input yields the zero time sentinel; it never errors.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

// FormatDuration renders a duration in seconds as "{m}m {s}s", or "{s}s"
// when under a minute.
func FormatDuration(secs float64) string {
	total := int(secs)
	m, s := total/60, total%60

	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}

	return fmt.Sprintf("%ds", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
