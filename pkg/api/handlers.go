package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pipeops/healthoor/pkg/diff"
	"github.com/pipeops/healthoor/pkg/export"
	"github.com/pipeops/healthoor/pkg/filter"
	"github.com/pipeops/healthoor/pkg/model"
	"github.com/pipeops/healthoor/pkg/timeline"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRuns returns the filtered run history, newest last. The filter
// state is decoded from the query string; unknown keys are ignored.
func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	state := filter.Decode(r.URL.RawQuery)

	runs, err := s.loadRuns(r.Context(), state)
	if err != nil {
		s.log.WithError(err).Error("Failed to load runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading runs"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":   runs,
		"filter": filter.Encode(state),
	})
}

// handleRun returns one run with its test results, filtered by the
// decoded state, plus the regression/fixed transitions against the
// chronologically previous run.
func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	state := filter.Decode(r.URL.RawQuery)

	run, err := s.getRun(r.Context(), runID)
	if err != nil {
		s.log.WithError(err).Error("Failed to load run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading run"})

		return
	}

	if run == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})

		return
	}

	previous, err := s.previousRun(r.Context(), run)
	if err != nil {
		s.log.WithError(err).Error("Failed to load previous run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading run"})

		return
	}

	tests := filter.Tests(run.Tests, state)

	writeJSON(w, http.StatusOK, map[string]any{
		"run":         run,
		"tests":       tests,
		"transitions": diff.StepRegressions(run, previous),
	})
}

// handleDiff compares two runs identified by from and to query params.
func (s *server) handleDiff(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"from and to run IDs are required"})

		return
	}

	runA, err := s.getRun(r.Context(), from)
	if err != nil {
		s.log.WithError(err).Error("Failed to load run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading runs"})

		return
	}

	runB, err := s.getRun(r.Context(), to)
	if err != nil {
		s.log.WithError(err).Error("Failed to load run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading runs"})

		return
	}

	if runA == nil || runB == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})

		return
	}

	writeJSON(w, http.StatusOK, diff.Diff(runA, runB))
}

// handleTimeline returns the pass-rate series with regression events
// and the auxiliary metric series for the filtered runs.
func (s *server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	state := filter.Decode(r.URL.RawQuery)

	runs, err := s.loadRuns(r.Context(), state)
	if err != nil {
		s.log.WithError(err).Error("Failed to load runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading runs"})

		return
	}

	points := timeline.BuildSeries(runs)

	writeJSON(w, http.StatusOK, map[string]any{
		"points":        points,
		"regressions":   timeline.DetectRegressions(points),
		"throughput":    timeline.ThroughputSeries(runs),
		"resources":     timeline.ResourceSeries(runs),
		"tick_interval": timeline.TickInterval(len(points)),
	})
}

// handleExportCSV streams the filtered run history as CSV.
func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	state := filter.Decode(r.URL.RawQuery)

	runs, err := s.loadRuns(r.Context(), state)
	if err != nil {
		s.log.WithError(err).Error("Failed to load runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading runs"})

		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set(
		"Content-Disposition", `attachment; filename="test-health.csv"`,
	)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(export.ToCSV(runs))); err != nil {
		s.log.WithError(err).Warn("Failed to write CSV response")
	}
}

// loadRuns returns the indexed runs (without per-test rows) that match
// the state's date range and run selection, timestamp ascending.
func (s *server) loadRuns(
	ctx context.Context, state filter.State,
) ([]*model.Run, error) {
	rows, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	runs := make([]*model.Run, 0, len(rows))

	for i := range rows {
		run := rows[i].ToModel(nil)
		if !state.IsSelected(run.ID) {
			continue
		}

		runs = append(runs, run)
	}

	return filter.Runs(runs, state), nil
}

// getRun loads one run with its test rows, or nil when not indexed.
func (s *server) getRun(
	ctx context.Context, runID string,
) (*model.Run, error) {
	row, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if row == nil {
		return nil, nil
	}

	tests, err := s.store.ListTestsForRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	return row.ToModel(tests), nil
}

// previousRun returns the chronologically previous run with its tests,
// or nil when the given run is the oldest.
func (s *server) previousRun(
	ctx context.Context, run *model.Run,
) (*model.Run, error) {
	rows, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	prevID := ""

	for i := range rows {
		if rows[i].RunID == run.ID {
			break
		}

		prevID = rows[i].RunID
	}

	if prevID == "" {
		return nil, nil
	}

	return s.getRun(ctx, prevID)
}
