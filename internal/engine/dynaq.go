package engine

// DynaQ learns a deterministic model from real transitions and replays it
// with planning backups between real steps.
type DynaQ struct {
	dyna
}

func NewDynaQ(states, actions int, alpha, gamma, epsilon float64, opts ...Option) (*DynaQ, error) {
	d, err := newDyna(states, actions, alpha, gamma, epsilon, opts)
	if err != nil {
		return nil, err
	}
	return &DynaQ{dyna: d}, nil
}

func (a *DynaQ) Reset() {
	a.reset()
}

// Learn consumes one real transition.
func (a *DynaQ) Learn(state, action, nextState int, reward float64) error {
	if err := a.checkTransition(state, action, nextState); err != nil {
		return err
	}
	a.learn(state, action, nextState, reward)
	return nil
}

// Plan runs n backups on pairs sampled uniformly from the visited set.
func (a *DynaQ) Plan(n int) error {
	if err := a.checkPlan(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		state := a.sampleState()
		taken := a.visited.actions[state]
		action := taken[a.rng.Intn(len(taken))]
		e := a.model.at(state, action)
		a.backup(state, action, e.nextState, e.reward)
	}
	return nil
}

func (a *DynaQ) Snapshot() AgentSnapshot {
	return a.snapshot()
}

func (a *DynaQ) Restore(snap AgentSnapshot) error {
	return a.restore(snap)
}
