package engine

// PlannerSnapshot captures the tables of a solved planner.
type PlannerSnapshot struct {
	Values []float64 `json:"values"`
	Policy []int     `json:"policy"`
}

func (p PlannerSnapshot) tables(states, actions int) ([]float64, []int, error) {
	if len(p.Values) != states || len(p.Policy) != states {
		return nil, nil, invalidf("planner snapshot has %d values and %d policy entries, want %d", len(p.Values), len(p.Policy), states)
	}
	for s, a := range p.Policy {
		if err := checkIndex("snapshot policy action", a, actions); err != nil {
			return nil, nil, invalidf("state %d: %v", s, err)
		}
	}
	return append([]float64(nil), p.Values...), append([]int(nil), p.Policy...), nil
}

type ModelEntry struct {
	State     int     `json:"state"`
	Action    int     `json:"action"`
	Reward    float64 `json:"reward"`
	NextState int     `json:"nextState"`
}

type VisitedState struct {
	State   int   `json:"state"`
	Actions []int `json:"actions"`
}

// AgentSnapshot captures every table an online agent owns. Recency is only
// set for Dyna-Q+.
type AgentSnapshot struct {
	Q       [][]float64    `json:"q"`
	Model   []ModelEntry   `json:"model"`
	Visited []VisitedState `json:"visited"`
	Recency [][]int        `json:"recency,omitempty"`
	Episode int            `json:"episode"`
	Step    int            `json:"step"`
}
