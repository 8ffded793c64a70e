package engine

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// ValueIteration solves a known MDP with synchronous Bellman optimality sweeps.
type ValueIteration struct {
	states    int
	actions   int
	model     TransitionModel
	gamma     float64
	tolerance float64
	logger    logrus.FieldLogger
	values    []float64
	policy    []int
}

func NewValueIteration(states, actions int, model TransitionModel, gamma float64, opts ...Option) (*ValueIteration, error) {
	if err := checkSizes(states, actions); err != nil {
		return nil, err
	}
	if err := checkUnit("gamma", gamma); err != nil {
		return nil, err
	}
	if err := model.Validate(states, actions); err != nil {
		return nil, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	vi := &ValueIteration{
		states:    states,
		actions:   actions,
		model:     model.clone(),
		gamma:     gamma,
		tolerance: o.tolerance,
		logger:    o.logger,
	}
	vi.Reset()
	return vi, nil
}

func (vi *ValueIteration) Reset() {
	vi.values = make([]float64, vi.states)
	vi.policy = make([]int, vi.states)
}

// Solve runs up to iterations sweeps and reports how many were executed.
// Without a tolerance every sweep runs.
func (vi *ValueIteration) Solve(iterations int) (int, error) {
	if iterations < 0 {
		return 0, invalidf("iterations must not be negative (got %d)", iterations)
	}
	next := make([]float64, vi.states)
	q := make([]float64, vi.actions)
	sweeps := 0
	for sweeps < iterations {
		for s := 0; s < vi.states; s++ {
			for a := 0; a < vi.actions; a++ {
				q[a] = vi.model.expectedReturn(s, a, vi.gamma, vi.values)
			}
			best := argmax(q)
			next[s] = q[best]
			vi.policy[s] = best
		}
		delta := floats.Distance(next, vi.values, math.Inf(1))
		vi.values, next = next, vi.values
		sweeps++
		if vi.tolerance > 0 && delta < vi.tolerance {
			break
		}
	}
	vi.logger.WithFields(logrus.Fields{"solver": "value-iteration", "sweeps": sweeps}).Debug("solve finished")
	return sweeps, nil
}

func (vi *ValueIteration) GetAction(state int) (int, error) {
	if err := checkIndex("state", state, vi.states); err != nil {
		return 0, err
	}
	return vi.policy[state], nil
}

func (vi *ValueIteration) Values() []float64 {
	return append([]float64(nil), vi.values...)
}

func (vi *ValueIteration) Policy() []int {
	return append([]int(nil), vi.policy...)
}

func (vi *ValueIteration) Snapshot() PlannerSnapshot {
	return PlannerSnapshot{Values: vi.Values(), Policy: vi.Policy()}
}

func (vi *ValueIteration) Restore(snap PlannerSnapshot) error {
	values, policy, err := snap.tables(vi.states, vi.actions)
	if err != nil {
		return err
	}
	vi.values, vi.policy = values, policy
	return nil
}
