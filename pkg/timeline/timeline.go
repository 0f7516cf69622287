// Package timeline derives pass-rate series, regression events, and
// auxiliary metric series from a set of runs. Everything here is a pure
// computation over already-normalized runs; callers recompute on demand
// and never mutate the results of a previous pass.
package timeline

import (
	"sort"
	"time"

	"github.com/pipeops/healthoor/pkg/model"
)

// regressionThreshold is the pass-rate drop, in percentage points, that
// an adjacent pair must strictly exceed to be flagged.
const regressionThreshold = 10.0

// Fallback scale maxima for auxiliary series with no data points.
const (
	fallbackThroughputMax = 100.0
	fallbackCPUMax        = 1000.0
)

// headroomFactor extends an auxiliary scale above its observed maximum.
const headroomFactor = 1.1

// Severity is a deterministic rendering and alerting tier for a
// pass-rate value.
type Severity string

const (
	SeverityPerfect  Severity = "perfect"
	SeverityGood     Severity = "good"
	SeverityFair     Severity = "fair"
	SeverityPoor     Severity = "poor"
	SeverityCritical Severity = "critical"
)

// Point is one run on the pass-rate timeline.
type Point struct {
	RunID    string    `json:"run_id"`
	Date     time.Time `json:"date"`
	Label    string    `json:"label,omitempty"`
	PassRate float64   `json:"pass_rate"`
	Severity Severity  `json:"severity"`
}

// RegressionEvent marks a pass-rate drop between two adjacent points.
type RegressionEvent struct {
	RunID    string    `json:"run_id"`
	Date     time.Time `json:"date"`
	FromRate float64   `json:"from_rate"`
	ToRate   float64   `json:"to_rate"`
}

// Drop returns the magnitude of the event in percentage points.
func (e RegressionEvent) Drop() float64 {
	return e.FromRate - e.ToRate
}

// AuxPoint is one sample of an optional per-run metric.
type AuxPoint struct {
	RunID string    `json:"run_id"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an auxiliary metric series with its own scale domain,
// independent of the pass-rate axis.
type Series struct {
	Points []AuxPoint `json:"points"`
	// ScaleMax is the suggested axis maximum: the observed maximum
	// plus headroom, or a metric-specific fallback when no point
	// carries the metric.
	ScaleMax float64 `json:"scale_max"`
}

// BuildSeries produces the date-ascending pass-rate series for the
// given runs. Runs without a valid date cannot be placed on the
// timeline and are skipped.
func BuildSeries(runs []*model.Run) []Point {
	points := make([]Point, 0, len(runs))

	for _, run := range runs {
		if run == nil || !run.HasDate() {
			continue
		}

		points = append(points, Point{
			RunID:    run.ID,
			Date:     run.Timestamp,
			Label:    run.Label,
			PassRate: run.PassRate,
			Severity: Tier(run.PassRate),
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return points
}

// DetectRegressions scans adjacent point pairs and flags every drop
// strictly greater than the threshold. A drop of exactly the threshold
// is not flagged, and rises never are.
func DetectRegressions(points []Point) []RegressionEvent {
	var events []RegressionEvent

	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]

		if prev.PassRate-curr.PassRate > regressionThreshold {
			events = append(events, RegressionEvent{
				RunID:    curr.RunID,
				Date:     curr.Date,
				FromRate: prev.PassRate,
				ToRate:   curr.PassRate,
			})
		}
	}

	return events
}

// Tier maps a pass rate onto its severity tier.
func Tier(passRate float64) Severity {
	switch {
	case passRate >= 100:
		return SeverityPerfect
	case passRate >= 90:
		return SeverityGood
	case passRate >= 70:
		return SeverityFair
	case passRate >= 50:
		return SeverityPoor
	default:
		return SeverityCritical
	}
}

// ThroughputSeries builds the runs-per-minute series over the runs that
// carry the metric.
func ThroughputSeries(runs []*model.Run) Series {
	return auxSeries(runs, fallbackThroughputMax, func(r *model.Run) *float64 {
		if r.Performance == nil {
			return nil
		}

		return r.Performance.ThroughputPerMinute
	})
}

// ResourceSeries builds the peak-CPU-millicores series over the runs
// that carry the metric.
func ResourceSeries(runs []*model.Run) Series {
	return auxSeries(runs, fallbackCPUMax, func(r *model.Run) *float64 {
		if r.Resources == nil {
			return nil
		}

		return r.Resources.PeakCPUMillicores
	})
}

// auxSeries collects the metric over the subset of dated runs where it
// is present and computes the scale domain with headroom.
func auxSeries(
	runs []*model.Run,
	fallbackMax float64,
	metric func(*model.Run) *float64,
) Series {
	points := make([]AuxPoint, 0, len(runs))
	max := 0.0

	for _, run := range runs {
		if run == nil || !run.HasDate() {
			continue
		}

		value := metric(run)
		if value == nil {
			continue
		}

		points = append(points, AuxPoint{
			RunID: run.ID,
			Date:  run.Timestamp,
			Value: *value,
		})

		if *value > max {
			max = *value
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	scaleMax := fallbackMax
	if len(points) > 0 {
		scaleMax = max * headroomFactor
	}

	return Series{Points: points, ScaleMax: scaleMax}
}

// TickInterval returns the axis tick spacing in days for a series of n
// points, targeting at most ten labeled ticks.
func TickInterval(n int) int {
	if n <= 0 {
		return 1
	}

	interval := (n + 9) / 10
	if interval < 1 {
		interval = 1
	}

	return interval
}
