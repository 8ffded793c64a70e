package engine

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Agent is the surface shared by the online model-based learners.
type Agent interface {
	StartEpisode()
	Learn(state, action, nextState int, reward float64) error
	Plan(n int) error
	GetAction(state int, mode SelectionMode) (int, error)
	Q() [][]float64
	Episode() int
	Step() int
	Snapshot() AgentSnapshot
	Restore(AgentSnapshot) error
	Reset()
}

// dyna holds the tables and counters common to Dyna-Q and Dyna-Q+.
type dyna struct {
	states  int
	actions int
	alpha   float64
	gamma   float64
	epsilon float64
	seed    int64
	logger  logrus.FieldLogger
	rng     *rand.Rand
	q       *QTable
	model   *learnedModel
	visited *visitedSet
	episode int
	step    int
}

func newDyna(states, actions int, alpha, gamma, epsilon float64, opts []Option) (dyna, error) {
	if err := checkSizes(states, actions); err != nil {
		return dyna{}, err
	}
	if alpha <= 0 || alpha > 1 {
		return dyna{}, invalidf("alpha must be in (0, 1] (got %.4f)", alpha)
	}
	if err := checkUnit("gamma", gamma); err != nil {
		return dyna{}, err
	}
	if err := checkUnit("epsilon", epsilon); err != nil {
		return dyna{}, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return dyna{}, err
	}
	d := dyna{
		states:  states,
		actions: actions,
		alpha:   alpha,
		gamma:   gamma,
		epsilon: epsilon,
		seed:    o.seed,
		logger:  o.logger,
	}
	d.reset()
	return d, nil
}

// reset reallocates every table and reseeds the random source.
func (d *dyna) reset() {
	d.rng = rand.New(rand.NewSource(d.seed))
	d.q = newQTable(d.states, d.actions)
	d.model = newLearnedModel(d.states, d.actions)
	d.visited = newVisitedSet(d.states)
	d.episode = 0
	d.step = 0
}

func (d *dyna) StartEpisode() {
	d.episode++
	d.step = 0
}

func (d *dyna) checkTransition(state, action, nextState int) error {
	if err := checkIndex("state", state, d.states); err != nil {
		return err
	}
	if err := checkIndex("action", action, d.actions); err != nil {
		return err
	}
	return checkIndex("next state", nextState, d.states)
}

// backup applies Q[s,a] += alpha * (r + gamma * max Q[s',.] - Q[s,a]).
func (d *dyna) backup(state, action, nextState int, reward float64) {
	current := d.q.get(state, action)
	target := reward + d.gamma*d.q.maxValue(nextState)
	d.q.set(state, action, current+d.alpha*(target-current))
}

// Backup applies the Bellman backup alone, leaving the model and visited set untouched.
func (d *dyna) Backup(state, action, nextState int, reward float64) error {
	if err := d.checkTransition(state, action, nextState); err != nil {
		return err
	}
	d.backup(state, action, nextState, reward)
	return nil
}

func (d *dyna) learn(state, action, nextState int, reward float64) {
	d.backup(state, action, nextState, reward)
	d.model.record(state, action, nextState, reward)
	d.visited.add(state, action)
	d.step++
}

func (d *dyna) checkPlan(n int) error {
	if n < 0 {
		return invalidf("planning steps must not be negative (got %d)", n)
	}
	if d.visited.empty() {
		return ErrEmptyModel
	}
	return nil
}

func (d *dyna) sampleState() int {
	return d.visited.order[d.rng.Intn(len(d.visited.order))]
}

func (d *dyna) GetAction(state int, mode SelectionMode) (int, error) {
	if err := checkIndex("state", state, d.states); err != nil {
		return 0, err
	}
	return SelectAction(d.rng, d.q.row(state), mode, d.epsilon)
}

func (d *dyna) Q() [][]float64 {
	return d.q.rows()
}

func (d *dyna) StateValues() []float64 {
	return d.q.stateValues()
}

func (d *dyna) Episode() int { return d.episode }

func (d *dyna) Step() int { return d.step }

func (d *dyna) Visited() []VisitedState {
	return d.visited.snapshot()
}

func (d *dyna) snapshot() AgentSnapshot {
	return AgentSnapshot{
		Q:       d.q.rows(),
		Model:   d.model.snapshot(),
		Visited: d.visited.snapshot(),
		Episode: d.episode,
		Step:    d.step,
	}
}

// restore rebuilds the tables from snap; on error the agent is left unchanged.
func (d *dyna) restore(snap AgentSnapshot) error {
	q := newQTable(d.states, d.actions)
	if err := q.load(snap.Q); err != nil {
		return err
	}
	model := newLearnedModel(d.states, d.actions)
	for _, e := range snap.Model {
		if err := d.checkTransition(e.State, e.Action, e.NextState); err != nil {
			return err
		}
		model.record(e.State, e.Action, e.NextState, e.Reward)
	}
	visited := newVisitedSet(d.states)
	for _, vs := range snap.Visited {
		for _, a := range vs.Actions {
			if err := d.checkTransition(vs.State, a, 0); err != nil {
				return err
			}
			if !model.at(vs.State, a).known {
				return invalidf("visited pair (%d, %d) has no model entry", vs.State, a)
			}
			visited.add(vs.State, a)
		}
	}
	d.q, d.model, d.visited = q, model, visited
	d.episode, d.step = snap.Episode, snap.Step
	return nil
}
