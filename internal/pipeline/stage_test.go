package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *Run) error { return nil }

func names(stages []Stage) []string {
	out := make([]string, 0, len(stages))
	for _, st := range stages {
		out = append(out, st.Name)
	}
	return out
}

func TestPlan_DependenciesFirstInputOrderOtherwise(t *testing.T) {
	stages := []Stage{
		{Name: "assemble", Requires: []string{"cite", "search"}, Run: noop},
		{Name: "title", Run: noop},
		{Name: "search", Requires: []string{"title"}, Run: noop},
		{Name: "cite", Requires: []string{"title"}, Run: noop},
	}

	plan, err := Plan(stages)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "search", "cite", "assemble"}, names(plan))
}

func TestPlan_OrchestratorTableKeepsDeclarationOrder(t *testing.T) {
	o := &Orchestrator{}
	plan, err := Plan(o.Stages())
	require.NoError(t, err)
	assert.Equal(t, names(o.Stages()), names(plan))
}

func TestPlan_Errors(t *testing.T) {
	cases := []struct {
		name   string
		stages []Stage
		reason string
	}{
		{"unnamed", []Stage{{Run: noop}}, "missing name"},
		{"duplicate", []Stage{{Name: "a", Run: noop}, {Name: "a", Run: noop}}, "duplicate stage"},
		{"unknown", []Stage{{Name: "a", Requires: []string{"ghost"}, Run: noop}}, "unknown dependency ghost"},
		{"self", []Stage{{Name: "a", Requires: []string{"a"}, Run: noop}}, "depends on itself"},
		{"cycle", []Stage{
			{Name: "root", Run: noop},
			{Name: "a", Requires: []string{"b"}, Run: noop},
			{Name: "b", Requires: []string{"a"}, Run: noop},
		}, "dependency cycle"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.stages)
			var pe *PlanError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tc.reason, pe.Reason)
		})
	}
}

func TestPlan_CycleNamesStuckStages(t *testing.T) {
	_, err := Plan([]Stage{
		{Name: "root", Run: noop},
		{Name: "a", Requires: []string{"root", "b"}, Run: noop},
		{Name: "b", Requires: []string{"a"}, Run: noop},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a, b")
	assert.NotContains(t, err.Error(), "root")
}

func TestAbortError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&AbortError{Stage: "methodology", Err: cause})
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "pipeline aborted at stage methodology: boom", err.Error())
}
