// Package classify buckets test failures into heuristic categories based
// on keywords in the error message. Rules are evaluated in priority order
// and the first match wins; messages matching nothing fall through to
// UpstreamRegression.
package classify

import (
	"sort"
	"strings"

	"github.com/pipeops/healthoor/pkg/model"
)

// Categorize maps a failure message to a category. Matching is
// case-insensitive and deterministic: the same message always yields the
// same category. An empty message classifies as UpstreamRegression.
func Categorize(errorMessage string) model.Category {
	lower := strings.ToLower(errorMessage)

	// MissingComponent: optional operator components not installed.
	if containsAny(lower,
		"chains", "chain",
		"knative", "kn-apply", "serverless",
		"manualapprovalgate", "manual-approval", "approval-gate",
		"approvaltask",
	) {
		return model.CategoryMissingComponent
	}

	// UpgradePrereq: upgrade test prerequisites not satisfied.
	if strings.Contains(lower, "upgrade") &&
		containsAny(lower, "namespace", "setup", "prerequisite") {
		return model.CategoryUpgradePrereq
	}

	// PlatformIssue: platform/OS-level failures.
	if strings.Contains(lower, "uid_map") ||
		(strings.Contains(lower, "buildah") &&
			strings.Contains(lower, "namespace")) {
		return model.CategoryPlatformIssue
	}

	// ConfigGap: missing configuration or secrets.
	if strings.Contains(lower, "secret") &&
		containsAny(lower, "missing", "not found") {
		return model.CategoryConfigGap
	}

	if strings.Contains(lower, "auth") &&
		containsAny(lower, "secret", "credential") {
		return model.CategoryConfigGap
	}

	return model.CategoryUpstreamRegression
}

// CategoryGroup is one failure category with the tests that fell into it.
type CategoryGroup struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
	Tests    []string       `json:"tests"`
}

// GroupByCategory buckets the failed tests of a run by category, sorted
// by count descending. Tests that already carry a category keep it;
// otherwise the error message is classified. Passing tests are ignored.
func GroupByCategory(tests []model.Test) []CategoryGroup {
	byCategory := make(map[model.Category][]string)

	for i := range tests {
		t := &tests[i]
		if !t.Failed() {
			continue
		}

		cat := t.Category
		if cat == "" {
			cat = Categorize(t.Error)
		}

		byCategory[cat] = append(byCategory[cat], t.Key())
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for cat, names := range byCategory {
		groups = append(groups, CategoryGroup{
			Category: cat,
			Count:    len(names),
			Tests:    names,
		})
	}

	// Sort by count descending, then by category name for a stable order.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}

		return groups[i].Category < groups[j].Category
	})

	return groups
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
