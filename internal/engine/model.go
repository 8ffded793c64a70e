package engine

import "math"

const probabilityTolerance = 1e-9

// Outcome is one possible result of taking an action in a state.
type Outcome struct {
	Probability float64 `json:"probability"`
	NextState   int     `json:"nextState"`
	Reward      float64 `json:"reward"`
	Terminal    bool    `json:"terminal"`
}

// TransitionModel lists the outcomes of every state/action pair, indexed [state][action].
// Deterministic pairs carry a single outcome with probability 1.
type TransitionModel [][][]Outcome

func (m TransitionModel) Validate(states, actions int) error {
	if len(m) != states {
		return invalidf("model has %d states, want %d", len(m), states)
	}
	for s, row := range m {
		if len(row) != actions {
			return invalidf("model state %d has %d actions, want %d", s, len(row), actions)
		}
		for a, outcomes := range row {
			if len(outcomes) == 0 {
				return invalidf("model state %d action %d has no outcomes", s, a)
			}
			total := 0.0
			for _, o := range outcomes {
				if o.Probability < 0 || o.Probability > 1 || math.IsNaN(o.Probability) {
					return invalidf("model state %d action %d has probability %.4f", s, a, o.Probability)
				}
				if err := checkIndex("model next state", o.NextState, states); err != nil {
					return err
				}
				total += o.Probability
			}
			if math.Abs(total-1) > probabilityTolerance {
				return invalidf("model state %d action %d probabilities sum to %.6f", s, a, total)
			}
		}
	}
	return nil
}

// expectedReturn is sum over outcomes of p * (r + gamma * V[s']).
func (m TransitionModel) expectedReturn(state, action int, gamma float64, values []float64) float64 {
	total := 0.0
	for _, o := range m[state][action] {
		total += o.Probability * (o.Reward + gamma*values[o.NextState])
	}
	return total
}

func (m TransitionModel) clone() TransitionModel {
	out := make(TransitionModel, len(m))
	for s, row := range m {
		out[s] = make([][]Outcome, len(row))
		for a, outcomes := range row {
			out[s][a] = append([]Outcome(nil), outcomes...)
		}
	}
	return out
}
