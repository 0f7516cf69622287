package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/healthoor/pkg/classify"
	"github.com/pipeops/healthoor/pkg/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    model.Category
	}{
		{
			name:    "knative missing component",
			message: "service knative not found",
			want:    model.CategoryMissingComponent,
		},
		{
			name:    "chains missing component",
			message: "Chains controller deployment unavailable",
			want:    model.CategoryMissingComponent,
		},
		{
			name:    "approval gate missing component",
			message: "manualapprovalgate CRD is not installed",
			want:    model.CategoryMissingComponent,
		},
		{
			name:    "upgrade prereq namespace",
			message: "upgrade failed: namespace not ready",
			want:    model.CategoryUpgradePrereq,
		},
		{
			name:    "upgrade prereq setup",
			message: "Upgrade setup step did not complete",
			want:    model.CategoryUpgradePrereq,
		},
		{
			name:    "upgrade without prereq keyword falls through",
			message: "upgrade took too long",
			want:    model.CategoryUpstreamRegression,
		},
		{
			name:    "uid_map platform issue",
			message: "writing uid_map: operation not permitted",
			want:    model.CategoryPlatformIssue,
		},
		{
			name:    "buildah namespace platform issue",
			message: "buildah: error creating namespace",
			want:    model.CategoryPlatformIssue,
		},
		{
			name:    "secret not found config gap",
			message: "secret not found for auth",
			want:    model.CategoryConfigGap,
		},
		{
			name:    "auth credential config gap",
			message: "auth failed: no credential provided",
			want:    model.CategoryConfigGap,
		},
		{
			name:    "no rule matches",
			message: "unexpected timeout waiting for pod",
			want:    model.CategoryUpstreamRegression,
		},
		{
			name:    "empty message",
			message: "",
			want:    model.CategoryUpstreamRegression,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify.Categorize(tt.message))
		})
	}
}

// Rule order encodes priority: a message matching several rule families
// must classify under the earliest one.
func TestCategorize_RuleOrder(t *testing.T) {
	// Matches both MissingComponent ("chains") and ConfigGap
	// ("secret" + "missing").
	got := classify.Categorize("chains secret missing")
	assert.Equal(t, model.CategoryMissingComponent, got)

	// Matches both UpgradePrereq and ConfigGap.
	got = classify.Categorize("upgrade setup: auth secret rotated")
	assert.Equal(t, model.CategoryUpgradePrereq, got)
}

func TestCategorize_Deterministic(t *testing.T) {
	msg := "buildah could not map namespace"

	first := classify.Categorize(msg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, classify.Categorize(msg))
	}
}

func TestGroupByCategory(t *testing.T) {
	tests := []model.Test{
		{Spec: "pipelines", Scenario: "run-basic", Status: model.StatusFail,
			Error: "knative service missing"},
		{Spec: "pipelines", Scenario: "run-chained", Status: model.StatusFail,
			Error: "chains resolver unavailable"},
		{Spec: "triggers", Scenario: "webhook", Status: model.StatusFail,
			Error: "secret not found"},
		{Spec: "triggers", Scenario: "cron", Status: model.StatusPass},
		{Spec: "hub", Scenario: "search", Status: model.StatusFail,
			Category: model.CategoryPlatformIssue},
	}

	groups := classify.GroupByCategory(tests)
	require.Len(t, groups, 3)

	// Largest group first.
	assert.Equal(t, model.CategoryMissingComponent, groups[0].Category)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []string{
		"pipelines::run-basic",
		"pipelines::run-chained",
	}, groups[0].Tests)

	// Pre-assigned categories are respected, not re-derived.
	var sawPlatform bool

	for _, g := range groups {
		if g.Category == model.CategoryPlatformIssue {
			sawPlatform = true

			assert.Equal(t, []string{"hub::search"}, g.Tests)
		}
	}

	assert.True(t, sawPlatform)
}

func TestGroupByCategory_Empty(t *testing.T) {
	assert.Empty(t, classify.GroupByCategory(nil))
	assert.Empty(t, classify.GroupByCategory([]model.Test{
		{Spec: "a", Scenario: "b", Status: model.StatusPass},
	}))
}
