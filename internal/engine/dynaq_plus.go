package engine

import "math"

// DynaQPlus is Dyna-Q with a recency bonus on planning rewards and an
// optimistic self-loop model for actions never tried from a visited state.
type DynaQPlus struct {
	dyna
	kappa float64
	tau   [][]int
}

func NewDynaQPlus(states, actions int, alpha, gamma, epsilon, kappa float64, opts ...Option) (*DynaQPlus, error) {
	if kappa < 0 || math.IsNaN(kappa) {
		return nil, invalidf("kappa must not be negative (got %.4f)", kappa)
	}
	d, err := newDyna(states, actions, alpha, gamma, epsilon, opts)
	if err != nil {
		return nil, err
	}
	agent := &DynaQPlus{dyna: d, kappa: kappa}
	agent.tau = newRecency(states, actions)
	return agent, nil
}

func newRecency(states, actions int) [][]int {
	tau := make([][]int, states)
	for s := range tau {
		tau[s] = make([]int, actions)
	}
	return tau
}

func (a *DynaQPlus) Reset() {
	a.reset()
	a.tau = newRecency(a.states, a.actions)
}

func (a *DynaQPlus) Learn(state, action, nextState int, reward float64) error {
	if err := a.checkTransition(state, action, nextState); err != nil {
		return err
	}
	for s := range a.tau {
		for i := range a.tau[s] {
			a.tau[s][i]++
		}
	}
	a.tau[state][action] = 0
	a.learn(state, action, nextState, reward)
	for untried := 0; untried < a.actions; untried++ {
		if !a.visited.contains(state, untried) {
			a.model.record(state, untried, state, 0)
		}
	}
	return nil
}

// BonusReward is the planning reward r + kappa * sqrt(tau[s,a]).
func (a *DynaQPlus) BonusReward(state, action int, reward float64) (float64, error) {
	if err := a.checkTransition(state, action, state); err != nil {
		return 0, err
	}
	return a.bonusReward(state, action, reward), nil
}

func (a *DynaQPlus) bonusReward(state, action int, reward float64) float64 {
	return reward + a.kappa*math.Sqrt(float64(a.tau[state][action]))
}

// Plan runs n backups on visited pairs, each with the recency bonus added
// to the modelled reward. Optimistic entries of untried actions stay in the
// model but are only replayed once the action is really taken.
func (a *DynaQPlus) Plan(n int) error {
	if err := a.checkPlan(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		state := a.sampleState()
		taken := a.visited.actions[state]
		action := taken[a.rng.Intn(len(taken))]
		e := a.model.at(state, action)
		a.backup(state, action, e.nextState, a.bonusReward(state, action, e.reward))
	}
	return nil
}

func (a *DynaQPlus) Recency() [][]int {
	out := make([][]int, len(a.tau))
	for s, row := range a.tau {
		out[s] = append([]int(nil), row...)
	}
	return out
}

func (a *DynaQPlus) Snapshot() AgentSnapshot {
	snap := a.snapshot()
	snap.Recency = a.Recency()
	return snap
}

func (a *DynaQPlus) Restore(snap AgentSnapshot) error {
	tau := newRecency(a.states, a.actions)
	if snap.Recency != nil {
		if len(snap.Recency) != a.states {
			return invalidf("recency snapshot has %d states, want %d", len(snap.Recency), a.states)
		}
		for s, row := range snap.Recency {
			if len(row) != a.actions {
				return invalidf("recency snapshot state %d has %d actions, want %d", s, len(row), a.actions)
			}
			for _, v := range row {
				if v < 0 {
					return invalidf("recency snapshot state %d holds negative count %d", s, v)
				}
			}
			copy(tau[s], row)
		}
	}
	if err := a.restore(snap); err != nil {
		return err
	}
	a.tau = tau
	return nil
}
