package main

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"

	"tabular-rl-go/internal/engine"
)

var arrows = [...]string{engine.ActionUp: "^", engine.ActionRight: ">", engine.ActionDown: "v", engine.ActionLeft: "<"}

type renderer struct {
	out io.Writer
	au  aurora.Aurora
}

func newRenderer(out io.Writer, color bool) renderer {
	return renderer{out: out, au: aurora.NewAurora(color)}
}

func (r renderer) cell(g *engine.Gridworld, state int, text string) aurora.Value {
	switch {
	case g.IsWall(state):
		return r.au.Gray(8, "  ####")
	case g.IsGoal(state):
		return r.au.Green(text).Bold()
	default:
		return r.au.Blue(text)
	}
}

func (r renderer) printValues(g *engine.Gridworld, values []float64) {
	fmt.Fprintln(r.out, r.au.Bold("value table:"))
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			s := row*g.Cols() + col
			fmt.Fprint(r.out, r.cell(g, s, fmt.Sprintf("%6.2f", values[s])), " ")
		}
		fmt.Fprintln(r.out)
	}
}

func (r renderer) printPolicy(g *engine.Gridworld, policy []int) {
	fmt.Fprintln(r.out, r.au.Bold("policy:"))
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			s := row*g.Cols() + col
			text := "     " + arrows[policy[s]]
			if g.IsGoal(s) {
				text = "     G"
			}
			fmt.Fprint(r.out, r.cell(g, s, text), " ")
		}
		fmt.Fprintln(r.out)
	}
}

func (r renderer) printQ(q [][]float64) {
	fmt.Fprintln(r.out, r.au.Bold("q-table:"))
	for s, row := range q {
		fmt.Fprintf(r.out, "%4d ", s)
		for _, v := range row {
			fmt.Fprintf(r.out, "%8.3f ", v)
		}
		fmt.Fprintln(r.out)
	}
}

func (r renderer) printHeatmap(visits [][]int) {
	fmt.Fprintln(r.out, r.au.Bold("visit heatmap:"))
	for _, row := range visits {
		for _, count := range row {
			if count == 0 {
				fmt.Fprint(r.out, r.au.Faint("   . "))
			} else {
				fmt.Fprint(r.out, r.au.Yellow(fmt.Sprintf("%4d ", count)))
			}
		}
		fmt.Fprintln(r.out)
	}
}

// greedyPolicy reads the greedy action per state off a Q-table.
func greedyPolicy(agent engine.Agent, states int) ([]int, error) {
	policy := make([]int, states)
	for s := range policy {
		a, err := agent.GetAction(s, engine.ModeGreedy)
		if err != nil {
			return nil, err
		}
		policy[s] = a
	}
	return policy, nil
}
