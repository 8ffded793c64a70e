package engine

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

const DefaultPolicyEpsilon = 1e-10

// PolicyIteration alternates full policy evaluation with greedy improvement
// until the policy is stable.
type PolicyIteration struct {
	states              int
	actions             int
	model               TransitionModel
	gamma               float64
	epsilon             float64
	maxEvaluationSweeps int
	logger              logrus.FieldLogger
	values              []float64
	policy              []int
}

func NewPolicyIteration(states, actions int, model TransitionModel, gamma, epsilon float64, opts ...Option) (*PolicyIteration, error) {
	if err := checkSizes(states, actions); err != nil {
		return nil, err
	}
	if err := checkUnit("gamma", gamma); err != nil {
		return nil, err
	}
	if epsilon <= 0 || math.IsNaN(epsilon) {
		return nil, invalidf("epsilon must be positive (got %g)", epsilon)
	}
	if err := model.Validate(states, actions); err != nil {
		return nil, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	pi := &PolicyIteration{
		states:              states,
		actions:             actions,
		model:               model.clone(),
		gamma:               gamma,
		epsilon:             epsilon,
		maxEvaluationSweeps: o.maxEvaluationSweeps,
		logger:              o.logger,
	}
	pi.Reset()
	return pi, nil
}

func (pi *PolicyIteration) Reset() {
	pi.values = make([]float64, pi.states)
	pi.policy = make([]int, pi.states)
}

// Q is the one-step lookahead value of action in state under the current values.
func (pi *PolicyIteration) Q(state, action int) (float64, error) {
	if err := checkIndex("state", state, pi.states); err != nil {
		return 0, err
	}
	if err := checkIndex("action", action, pi.actions); err != nil {
		return 0, err
	}
	return pi.q(state, action), nil
}

func (pi *PolicyIteration) q(state, action int) float64 {
	return pi.model.expectedReturn(state, action, pi.gamma, pi.values)
}

// Solve returns the number of improvement passes, the last one being the
// pass that found the policy stable.
func (pi *PolicyIteration) Solve() (int, error) {
	passes := 0
	for {
		sweeps, err := pi.evaluate()
		if err != nil {
			return passes, err
		}
		stable := pi.improve()
		passes++
		pi.logger.WithFields(logrus.Fields{
			"solver": "policy-iteration",
			"pass":   passes,
			"sweeps": sweeps,
			"stable": stable,
		}).Debug("improvement pass")
		if stable {
			return passes, nil
		}
	}
}

func (pi *PolicyIteration) evaluate() (int, error) {
	next := make([]float64, pi.states)
	for sweep := 1; sweep <= pi.maxEvaluationSweeps; sweep++ {
		for s := 0; s < pi.states; s++ {
			next[s] = pi.q(s, pi.policy[s])
		}
		delta := floats.Distance(pi.values, next, math.Inf(1))
		pi.values, next = next, pi.values
		if delta < pi.epsilon {
			return sweep, nil
		}
	}
	return pi.maxEvaluationSweeps, fmt.Errorf("%w: no convergence within %d sweeps (epsilon %g)", ErrNonConvergence, pi.maxEvaluationSweeps, pi.epsilon)
}

func (pi *PolicyIteration) improve() bool {
	stable := true
	q := make([]float64, pi.actions)
	for s := 0; s < pi.states; s++ {
		for a := 0; a < pi.actions; a++ {
			q[a] = pi.q(s, a)
		}
		best := argmax(q)
		if best != pi.policy[s] {
			stable = false
		}
		pi.policy[s] = best
	}
	return stable
}

func (pi *PolicyIteration) GetAction(state int) (int, error) {
	if err := checkIndex("state", state, pi.states); err != nil {
		return 0, err
	}
	return pi.policy[state], nil
}

func (pi *PolicyIteration) Values() []float64 {
	return append([]float64(nil), pi.values...)
}

func (pi *PolicyIteration) Policy() []int {
	return append([]int(nil), pi.policy...)
}

func (pi *PolicyIteration) Snapshot() PlannerSnapshot {
	return PlannerSnapshot{Values: pi.Values(), Policy: pi.Policy()}
}

func (pi *PolicyIteration) Restore(snap PlannerSnapshot) error {
	values, policy, err := snap.tables(pi.states, pi.actions)
	if err != nil {
		return err
	}
	pi.values, pi.policy = values, policy
	return nil
}
