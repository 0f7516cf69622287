// Package export renders run views into external formats: a CSV table
// for spreadsheets and a plain-text summary report for the CLI.
package export

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"

	"github.com/pipeops/healthoor/pkg/classify"
	"github.com/pipeops/healthoor/pkg/diff"
	"github.com/pipeops/healthoor/pkg/model"
)

// csvHeader is the fixed column set; consumers depend on the exact
// names and order.
const csvHeader = "Date,Pass Rate (%),Passed,Failed,Total,Commit SHA," +
	"Throughput (runs/min),P50 Latency (s)"

const dateLayout = "2006-01-02"

// ToCSV renders the runs as CSV, one row per run in the given order.
// Optional metrics render as empty cells. Fields are comma-joined
// without quoting; values are assumed comma-free, which holds for
// everything emitted here (dates, numbers, commit hashes).
func ToCSV(runs []*model.Run) string {
	var b strings.Builder

	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, run := range runs {
		if run == nil {
			continue
		}

		date := ""
		if run.HasDate() {
			date = run.Timestamp.UTC().Format(dateLayout)
		}

		throughput := ""
		if run.Performance != nil && run.Performance.ThroughputPerMinute != nil {
			throughput = fmt.Sprintf("%.1f", *run.Performance.ThroughputPerMinute)
		}

		latency := ""
		if run.Performance != nil && run.Performance.P50LatencySeconds != nil {
			latency = fmt.Sprintf("%.2f", *run.Performance.P50LatencySeconds)
		}

		fmt.Fprintf(
			&b,
			"%s,%.1f,%d,%d,%d,%s,%s,%s\n",
			date,
			run.PassRate,
			run.Passed,
			run.Failed,
			run.Total,
			run.CommitSHA,
			throughput,
			latency,
		)
	}

	return b.String()
}

// Summary renders a plain-text report for one run: aggregates, optional
// performance and resource metrics, the comparison against the previous
// run when one was available, and failures grouped by category.
func Summary(
	run *model.Run,
	result *diff.Result,
	groups []classify.CategoryGroup,
) string {
	var b strings.Builder

	if run == nil {
		return ""
	}

	title := run.ID
	if run.HasDate() {
		title = fmt.Sprintf("%s (%s)", run.ID, run.Timestamp.UTC().Format(dateLayout))
	}

	fmt.Fprintf(&b, "Run %s\n", title)
	fmt.Fprintf(&b, "  total:     %d\n", run.Total)
	fmt.Fprintf(&b, "  passed:    %d\n", run.Passed)
	fmt.Fprintf(&b, "  failed:    %d\n", run.Failed)
	fmt.Fprintf(&b, "  pass rate: %.1f%%\n", run.PassRate)

	if run.Duration != "" {
		fmt.Fprintf(&b, "  duration:  %s\n", run.Duration)
	}

	if run.CommitSHA != "" {
		fmt.Fprintf(&b, "  commit:    %s\n", run.CommitSHA)
	}

	writePerformance(&b, run.Performance)
	writeResources(&b, run.Resources)
	writeComparison(&b, result)
	writeGroups(&b, groups)

	return b.String()
}

func writePerformance(b *strings.Builder, perf *model.PerformanceMetrics) {
	if perf == nil {
		return
	}

	b.WriteString("\nPerformance\n")

	if perf.ThroughputPerMinute != nil {
		fmt.Fprintf(b, "  throughput:  %.1f runs/min\n", *perf.ThroughputPerMinute)
	}

	if perf.P50LatencySeconds != nil {
		fmt.Fprintf(b, "  p50 latency: %.2fs\n", *perf.P50LatencySeconds)
	}

	if perf.P95LatencySeconds != nil {
		fmt.Fprintf(b, "  p95 latency: %.2fs\n", *perf.P95LatencySeconds)
	}
}

func writeResources(b *strings.Builder, res *model.ResourceMetrics) {
	if res == nil {
		return
	}

	b.WriteString("\nResources\n")

	if res.PeakCPUMillicores != nil {
		fmt.Fprintf(b, "  peak cpu:    %.0f millicores\n", *res.PeakCPUMillicores)
	}

	if res.PeakMemoryBytes != nil {
		fmt.Fprintf(b, "  peak memory: %s\n", units.BytesSize(float64(*res.PeakMemoryBytes)))
	}

	if res.PodCount != nil {
		fmt.Fprintf(b, "  pods:        %d\n", *res.PodCount)
	}
}

func writeComparison(b *strings.Builder, result *diff.Result) {
	if result == nil {
		return
	}

	b.WriteString("\nCompared to previous run\n")
	fmt.Fprintf(b, "  new failures:       %d\n", len(result.NewFailures))

	for _, t := range result.NewFailures {
		fmt.Fprintf(b, "    - %s\n", t.Key())
	}

	fmt.Fprintf(b, "  fixed:              %d\n", len(result.Fixed))

	for _, t := range result.Fixed {
		fmt.Fprintf(b, "    - %s\n", t.Key())
	}

	fmt.Fprintf(b, "  unchanged failures: %d\n", len(result.UnchangedFailures))
}

func writeGroups(b *strings.Builder, groups []classify.CategoryGroup) {
	if len(groups) == 0 {
		return
	}

	b.WriteString("\nFailures by category\n")

	for _, group := range groups {
		fmt.Fprintf(b, "  %s (%d)\n", group.Category, group.Count)

		for _, key := range group.Tests {
			fmt.Fprintf(b, "    - %s\n", key)
		}
	}
}
