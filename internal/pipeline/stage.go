package pipeline

import (
	"context"
	"sort"
)

// Stage is one step of an article run. Run reads earlier blocks from the run
// and stores what it produces there.
type Stage struct {
	Name     string
	Requires []string
	Run      func(ctx context.Context, r *Run) error
}

// Plan orders stages so every stage follows its requirements. Among stages
// that are ready at the same time the input order is kept.
func Plan(stages []Stage) ([]Stage, error) {
	index := make(map[string]int, len(stages))
	for i, st := range stages {
		if st.Name == "" {
			return nil, &PlanError{Stage: "(unnamed)", Reason: "missing name"}
		}
		if _, dup := index[st.Name]; dup {
			return nil, &PlanError{Stage: st.Name, Reason: "duplicate stage"}
		}
		index[st.Name] = i
	}

	pending := make([]int, len(stages))
	dependents := make([][]int, len(stages))
	for i, st := range stages {
		for _, req := range st.Requires {
			j, ok := index[req]
			if !ok {
				return nil, &PlanError{Stage: st.Name, Reason: "unknown dependency " + req}
			}
			if j == i {
				return nil, &PlanError{Stage: st.Name, Reason: "depends on itself"}
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range stages {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]Stage, 0, len(stages))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, stages[next])
		for _, d := range dependents[next] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(ordered) != len(stages) {
		var stuck []string
		for i, st := range stages {
			if pending[i] > 0 {
				stuck = append(stuck, st.Name)
			}
		}
		return nil, cycleError(stuck)
	}
	return ordered, nil
}
