package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopOrExit: from state 0, action 0 loops back paying 0.5 and action 1
// moves to the absorbing state 1 paying 1. With gamma 0.9 looping is worth
// 0.5/(1-0.9) = 5, so the optimal policy keeps looping.
func loopOrExit() TransitionModel {
	return TransitionModel{
		{
			{{Probability: 1, NextState: 0, Reward: 0.5}},
			{{Probability: 1, NextState: 1, Reward: 1, Terminal: true}},
		},
		{
			{{Probability: 1, NextState: 1, Terminal: true}},
			{{Probability: 1, NextState: 1, Terminal: true}},
		},
	}
}

// chain moves 0 -> 1 -> 2 on action 0 and pays 1 only on the 1 -> 2 step.
func chain() TransitionModel {
	return TransitionModel{
		{{{Probability: 1, NextState: 1}}},
		{{{Probability: 1, NextState: 2, Reward: 1, Terminal: true}}},
		{{{Probability: 1, NextState: 2, Terminal: true}}},
	}
}

func TestValueIterationTwoStateOptimum(t *testing.T) {
	vi, err := NewValueIteration(2, 2, loopOrExit(), 0.9)
	require.NoError(t, err)

	sweeps, err := vi.Solve(500)
	require.NoError(t, err)
	assert.Equal(t, 500, sweeps)

	values := vi.Values()
	assert.InDelta(t, 5.0, values[0], 1e-9)
	assert.InDelta(t, 0.0, values[1], 1e-12)
	assert.Equal(t, []int{0, 0}, vi.Policy())

	action, err := vi.GetAction(0)
	require.NoError(t, err)
	assert.Equal(t, 0, action)
}

func TestValueIterationFixedHorizon(t *testing.T) {
	vi, err := NewValueIteration(2, 2, loopOrExit(), 0.9)
	require.NoError(t, err)

	_, err = vi.Solve(1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vi.Values()[0], 1e-12)
	assert.Equal(t, 1, vi.Policy()[0], "exiting looks best after one sweep")

	_, err = vi.Solve(2)
	require.NoError(t, err)
	assert.InDelta(t, 1.76, vi.Values()[0], 1e-12)
	assert.Equal(t, 0, vi.Policy()[0])
}

func TestValueIterationSweepsAreSynchronous(t *testing.T) {
	vi, err := NewValueIteration(3, 1, chain(), 0.9)
	require.NoError(t, err)

	_, err = vi.Solve(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, vi.Values(), "state 0 must not see state 1's new value within the same sweep")

	_, err = vi.Solve(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, vi.Values()[0], 1e-12)
}

func TestValueIterationToleranceStopsEarly(t *testing.T) {
	vi, err := NewValueIteration(3, 1, chain(), 0.9, WithTolerance(1e-6))
	require.NoError(t, err)

	sweeps, err := vi.Solve(1000)
	require.NoError(t, err)
	assert.Equal(t, 3, sweeps)
	assert.InDelta(t, 0.9, vi.Values()[0], 1e-12)
}

func TestValueIterationStochasticModel(t *testing.T) {
	model := TransitionModel{
		{
			{{Probability: 0.5, NextState: 1, Reward: 2, Terminal: true}, {Probability: 0.5, NextState: 0}},
			{{Probability: 1, NextState: 1, Reward: 0.9, Terminal: true}},
		},
		{
			{{Probability: 1, NextState: 1, Terminal: true}},
			{{Probability: 1, NextState: 1, Terminal: true}},
		},
	}
	vi, err := NewValueIteration(2, 2, model, 0.5)
	require.NoError(t, err)
	_, err = vi.Solve(200)
	require.NoError(t, err)
	// V0 = 0.5*2 + 0.5*0.5*V0 => V0 = 4/3 beats the sure 0.9.
	assert.InDelta(t, 4.0/3.0, vi.Values()[0], 1e-9)
	assert.Equal(t, 0, vi.Policy()[0])
}

func TestValueIterationResetAndRestore(t *testing.T) {
	vi, err := NewValueIteration(2, 2, loopOrExit(), 0.9)
	require.NoError(t, err)
	_, err = vi.Solve(50)
	require.NoError(t, err)
	snap := vi.Snapshot()

	vi.Reset()
	assert.Equal(t, []float64{0, 0}, vi.Values())
	assert.Equal(t, []int{0, 0}, vi.Policy())

	require.NoError(t, vi.Restore(snap))
	assert.Equal(t, snap.Values, vi.Values())
	assert.Equal(t, snap.Policy, vi.Policy())

	assert.ErrorIs(t, vi.Restore(PlannerSnapshot{Values: []float64{1}, Policy: []int{0}}), ErrInvalidArgument)
	assert.ErrorIs(t, vi.Restore(PlannerSnapshot{Values: []float64{1, 2}, Policy: []int{0, 7}}), ErrInvalidArgument)
}

func TestValueIterationRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		states  int
		actions int
		model   TransitionModel
		gamma   float64
	}{
		{"no states", 0, 2, TransitionModel{}, 0.9},
		{"no actions", 2, 0, loopOrExit(), 0.9},
		{"gamma above one", 2, 2, loopOrExit(), 1.1},
		{"negative gamma", 2, 2, loopOrExit(), -0.1},
		{"shape mismatch", 3, 2, loopOrExit(), 0.9},
		{"next state out of range", 1, 1, TransitionModel{{{{Probability: 1, NextState: 4}}}}, 0.9},
		{"probabilities do not sum", 1, 1, TransitionModel{{{{Probability: 0.4, NextState: 0}}}}, 0.9},
		{"empty outcomes", 1, 1, TransitionModel{{{}}}, 0.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewValueIteration(tc.states, tc.actions, tc.model, tc.gamma)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	vi, err := NewValueIteration(2, 2, loopOrExit(), 0.9)
	require.NoError(t, err)
	_, err = vi.Solve(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = vi.GetAction(2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
