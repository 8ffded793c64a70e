package engine

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// QTable is a dense states x actions table of action values.
type QTable struct {
	states  int
	actions int
	data    *mat.Dense
}

func newQTable(states, actions int) *QTable {
	return &QTable{states: states, actions: actions, data: mat.NewDense(states, actions, nil)}
}

func (q *QTable) get(state, action int) float64 {
	return q.data.At(state, action)
}

func (q *QTable) set(state, action int, value float64) {
	q.data.Set(state, action, value)
}

// row aliases the backing storage; callers must not write through it.
func (q *QTable) row(state int) []float64 {
	return q.data.RawRowView(state)
}

func (q *QTable) maxValue(state int) float64 {
	return floats.Max(q.row(state))
}

func (q *QTable) rows() [][]float64 {
	out := make([][]float64, q.states)
	for s := 0; s < q.states; s++ {
		out[s] = append([]float64(nil), q.row(s)...)
	}
	return out
}

func (q *QTable) stateValues() []float64 {
	values := make([]float64, q.states)
	for s := 0; s < q.states; s++ {
		values[s] = q.maxValue(s)
	}
	return values
}

func (q *QTable) load(rows [][]float64) error {
	if len(rows) != q.states {
		return invalidf("q snapshot has %d states, want %d", len(rows), q.states)
	}
	for s, row := range rows {
		if len(row) != q.actions {
			return invalidf("q snapshot state %d has %d actions, want %d", s, len(row), q.actions)
		}
		q.data.SetRow(s, row)
	}
	return nil
}
