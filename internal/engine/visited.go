package engine

// visitedSet records the actions really taken from each state, keeping both
// states and actions in first-seen order so uniform sampling is reproducible.
type visitedSet struct {
	order   []int
	actions [][]int
}

func newVisitedSet(states int) *visitedSet {
	return &visitedSet{actions: make([][]int, states)}
}

func (v *visitedSet) add(state, action int) {
	if v.actions[state] == nil {
		v.order = append(v.order, state)
	}
	if !v.contains(state, action) {
		v.actions[state] = append(v.actions[state], action)
	}
}

func (v *visitedSet) contains(state, action int) bool {
	for _, a := range v.actions[state] {
		if a == action {
			return true
		}
	}
	return false
}

func (v *visitedSet) empty() bool {
	return len(v.order) == 0
}

func (v *visitedSet) snapshot() []VisitedState {
	out := make([]VisitedState, 0, len(v.order))
	for _, s := range v.order {
		out = append(out, VisitedState{State: s, Actions: append([]int(nil), v.actions[s]...)})
	}
	return out
}

type modelEntry struct {
	known     bool
	reward    float64
	nextState int
}

// learnedModel keeps the latest real (reward, next state) per state/action pair.
type learnedModel struct {
	actions int
	entries []modelEntry
}

func newLearnedModel(states, actions int) *learnedModel {
	return &learnedModel{actions: actions, entries: make([]modelEntry, states*actions)}
}

func (m *learnedModel) at(state, action int) modelEntry {
	return m.entries[state*m.actions+action]
}

func (m *learnedModel) record(state, action, nextState int, reward float64) {
	m.entries[state*m.actions+action] = modelEntry{known: true, reward: reward, nextState: nextState}
}

func (m *learnedModel) snapshot() []ModelEntry {
	var out []ModelEntry
	for i, e := range m.entries {
		if !e.known {
			continue
		}
		out = append(out, ModelEntry{State: i / m.actions, Action: i % m.actions, Reward: e.reward, NextState: e.nextState})
	}
	return out
}
