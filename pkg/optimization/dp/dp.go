// Package dp provides backward induction over finite stage/state/action
// models and a tabular 0/1 knapsack solver.
package dp

import (
	"context"
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/optimization-core/pkg/optimization/framework"
)

// Sense selects whether the model is minimized or maximized.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// worst is the value of a state from which no feasible policy exists.
func (s Sense) worst() float64 {
	if s == Maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

func (s Sense) better(a, b float64) bool {
	if s == Maximize {
		return a > b
	}
	return a < b
}

// Model is a finite-horizon decision problem. Stages run from 0 to
// Stages-1; Terminal prices the states of stage Stages.
//
// States and Actions must be pure. Key must map logically equal states to
// the same key.
type Model[S, A any, K comparable] struct {
	Stages     int
	States     func(stage int) []S
	Actions    func(stage int, state S) []A
	Transition func(stage int, state S, action A) (next S, cost float64, err error)
	Terminal   func(state S) (float64, error)
	Key        func(state S) K
	Sense      Sense
}

func (m *Model[S, A, K]) validate() error {
	var errs field.ErrorList
	if m.Stages < 0 {
		errs = append(errs, field.Invalid(field.NewPath("stages"), m.Stages, "must be non-negative"))
	}
	for _, cb := range []struct {
		name    string
		missing bool
	}{
		{"states", m.States == nil},
		{"actions", m.Actions == nil},
		{"transition", m.Transition == nil},
		{"terminal", m.Terminal == nil},
		{"key", m.Key == nil},
	} {
		if cb.missing {
			errs = append(errs, field.Required(field.NewPath(cb.name), ""))
		}
	}
	if m.Sense != Minimize && m.Sense != Maximize {
		errs = append(errs, field.NotSupported(field.NewPath("sense"), m.Sense, []string{"Minimize", "Maximize"}))
	}
	return framework.NewConfigurationError(errs)
}

// Solution holds the value function and policy computed by Solve.
type Solution[S, A any, K comparable] struct {
	model  *Model[S, A, K]
	values []map[K]float64
	policy []map[K]A
}

// Solve runs backward induction. For every stage and state it keeps the first
// action with the best cost plus downstream value. Actions leading to a state
// with no recorded value at the next stage, or to one from which nothing is
// feasible, are skipped.
func Solve[S, A any, K comparable](ctx context.Context, model *Model[S, A, K]) (*Solution[S, A, K], error) {
	if model == nil {
		return nil, framework.NewConfigurationError(field.ErrorList{field.Required(field.NewPath("model"), "")})
	}
	if err := model.validate(); err != nil {
		return nil, err
	}
	logger := klog.FromContext(ctx)
	logger.V(4).Info("Starting backward induction", "stages", model.Stages)

	worst := model.Sense.worst()
	sol := &Solution[S, A, K]{
		model:  model,
		values: make([]map[K]float64, model.Stages+1),
		policy: make([]map[K]A, model.Stages),
	}

	terminal := model.States(model.Stages)
	sol.values[model.Stages] = make(map[K]float64, len(terminal))
	for _, state := range terminal {
		v, err := model.Terminal(state)
		if err != nil {
			return nil, fmt.Errorf("terminal value: %w", err)
		}
		sol.values[model.Stages][model.Key(state)] = v
	}

	for stage := model.Stages - 1; stage >= 0; stage-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		states := model.States(stage)
		values := make(map[K]float64, len(states))
		policy := make(map[K]A, len(states))
		downstream := sol.values[stage+1]

		for _, state := range states {
			key := model.Key(state)
			best := worst
			var bestAction A
			found := false
			for _, action := range model.Actions(stage, state) {
				next, cost, err := model.Transition(stage, state, action)
				if err != nil {
					return nil, fmt.Errorf("stage %d: %w", stage, err)
				}
				down, ok := downstream[model.Key(next)]
				if !ok || down == worst {
					continue
				}
				if total := cost + down; !found || model.Sense.better(total, best) {
					best, bestAction, found = total, action, true
				}
			}
			values[key] = best
			if found {
				policy[key] = bestAction
			}
		}
		sol.values[stage] = values
		sol.policy[stage] = policy
		logger.V(5).Info("Stage solved", "stage", stage, "states", len(states), "feasible", len(policy))
	}

	logger.V(4).Info("Backward induction finished", "stages", model.Stages)
	return sol, nil
}

// Value returns the optimal value of state at stage. ok is false for states
// that were not enumerated at that stage.
func (s *Solution[S, A, K]) Value(stage int, state S) (float64, bool) {
	if stage < 0 || stage >= len(s.values) {
		return 0, false
	}
	v, ok := s.values[stage][s.model.Key(state)]
	return v, ok
}

// Action returns the optimal action for state at stage, if any is feasible.
func (s *Solution[S, A, K]) Action(stage int, state S) (A, bool) {
	var zero A
	if stage < 0 || stage >= len(s.policy) {
		return zero, false
	}
	a, ok := s.policy[stage][s.model.Key(state)]
	return a, ok
}

// Plan is a policy replayed forward from an initial state. States has one
// more entry than Actions and Costs: the final state is last.
type Plan[S, A any] struct {
	States  []S
	Actions []A
	Costs   []float64
	// Value is the stage-0 value of the initial state: the sum of Costs
	// plus the terminal value of the final state.
	Value float64
}

// Plan replays the policy from initial. It returns a *framework.PlanningError
// when a visited state has no recorded action.
func (s *Solution[S, A, K]) Plan(initial S) (*Plan[S, A], error) {
	m := s.model
	plan := &Plan[S, A]{States: []S{initial}}
	state := initial
	for stage := 0; stage < m.Stages; stage++ {
		key := m.Key(state)
		action, ok := s.policy[stage][key]
		if !ok {
			return nil, &framework.PlanningError{Stage: stage, State: key}
		}
		next, cost, err := m.Transition(stage, state, action)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", stage, err)
		}
		plan.Actions = append(plan.Actions, action)
		plan.Costs = append(plan.Costs, cost)
		plan.States = append(plan.States, next)
		state = next
	}

	v, ok := s.values[0][m.Key(initial)]
	if !ok {
		return nil, &framework.PlanningError{Stage: 0, State: m.Key(initial)}
	}
	plan.Value = v
	return plan, nil
}
