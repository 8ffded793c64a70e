package engine

import (
	"fmt"
	"math/rand"
	"strings"
)

const gridActions = 4

// Grid actions, in the order the action index encodes them.
const (
	ActionUp = iota
	ActionRight
	ActionDown
	ActionLeft
)

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Goal struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Reward float64 `json:"reward"`
}

type SlipTile struct {
	Row         int     `json:"row"`
	Col         int     `json:"col"`
	Probability float64 `json:"probability"`
}

type GridworldConfig struct {
	Rows        int        `json:"rows"`
	Cols        int        `json:"cols"`
	Start       Position   `json:"start"`
	Goals       []Goal     `json:"goals"`
	Walls       []Position `json:"walls"`
	SlipTiles   []SlipTile `json:"slipTiles"`
	StepPenalty float64    `json:"stepPenalty"`
	MaxSteps    int        `json:"maxSteps"`
	RandomStart bool       `json:"randomStart"`
	Seed        int64      `json:"seed"`
}

type tileKind int

const (
	tileEmpty tileKind = iota
	tileWall
	tileSlip
	tileGoal
)

type tile struct {
	kind     tileKind
	slipProb float64
	reward   float64
}

// Gridworld is a finite grid MDP: goal tiles are terminal, walls block
// movement and slip tiles replace the chosen move with a uniformly random one.
// States are numbered row*cols+col.
type Gridworld struct {
	rows        int
	cols        int
	start       Position
	maxSteps    int
	stepPenalty float64
	randomStart bool
	tiles       []tile
	rng         *rand.Rand
	curr        int
	stepsTaken  int
}

func NewGridworld(cfg GridworldConfig) (*Gridworld, error) {
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, invalidf("grid must have positive size (got %dx%d)", cfg.Rows, cfg.Cols)
	}
	if cfg.StepPenalty < 0 {
		return nil, invalidf("step penalty must not be negative (got %.4f)", cfg.StepPenalty)
	}
	g := &Gridworld{
		rows:        cfg.Rows,
		cols:        cfg.Cols,
		start:       cfg.Start,
		maxSteps:    defaultMaxSteps(cfg.Rows, cfg.Cols, cfg.MaxSteps),
		stepPenalty: cfg.StepPenalty,
		randomStart: cfg.RandomStart,
		tiles:       make([]tile, cfg.Rows*cfg.Cols),
		rng:         rand.New(rand.NewSource(NormalizeSeed(cfg.Seed))),
	}
	if !g.inside(cfg.Start.Row, cfg.Start.Col) {
		return nil, invalidf("start (%d,%d) is outside the grid", cfg.Start.Row, cfg.Start.Col)
	}
	for _, w := range cfg.Walls {
		if !g.inside(w.Row, w.Col) {
			return nil, invalidf("wall (%d,%d) is outside the grid", w.Row, w.Col)
		}
		g.tiles[g.state(w.Row, w.Col)] = tile{kind: tileWall}
	}
	for _, s := range cfg.SlipTiles {
		if !g.inside(s.Row, s.Col) {
			return nil, invalidf("slip tile (%d,%d) is outside the grid", s.Row, s.Col)
		}
		if err := checkUnit("slip probability", s.Probability); err != nil {
			return nil, err
		}
		g.tiles[g.state(s.Row, s.Col)] = tile{kind: tileSlip, slipProb: s.Probability}
	}
	if len(cfg.Goals) == 0 {
		return nil, invalidf("grid needs at least one goal")
	}
	for _, goal := range cfg.Goals {
		if !g.inside(goal.Row, goal.Col) {
			return nil, invalidf("goal (%d,%d) is outside the grid", goal.Row, goal.Col)
		}
		g.tiles[g.state(goal.Row, goal.Col)] = tile{kind: tileGoal, reward: goal.Reward}
	}
	switch g.tiles[g.state(cfg.Start.Row, cfg.Start.Col)].kind {
	case tileWall, tileGoal:
		return nil, invalidf("start (%d,%d) must be an open tile", cfg.Start.Row, cfg.Start.Col)
	}
	g.curr = g.state(cfg.Start.Row, cfg.Start.Col)
	return g, nil
}

func defaultMaxSteps(rows, cols, override int) int {
	baseSteps := rows * cols * 5 / 2
	if minSteps := rows + cols; baseSteps < minSteps {
		baseSteps = minSteps
	}
	maxSteps := baseSteps
	if override > 0 {
		maxSteps = override
	}
	if maxSteps < 10 {
		maxSteps = 10
	}
	return maxSteps
}

func (g *Gridworld) States() int  { return g.rows * g.cols }
func (g *Gridworld) Actions() int { return gridActions }
func (g *Gridworld) Rows() int    { return g.rows }
func (g *Gridworld) Cols() int    { return g.cols }
func (g *Gridworld) MaxSteps() int {
	return g.maxSteps
}

func (g *Gridworld) Position() Position {
	return g.position(g.curr)
}

func (g *Gridworld) IsWall(state int) bool {
	return g.tiles[state].kind == tileWall
}

func (g *Gridworld) IsGoal(state int) bool {
	return g.tiles[state].kind == tileGoal
}

func (g *Gridworld) Reset() int {
	g.stepsTaken = 0
	g.curr = g.state(g.start.Row, g.start.Col)
	if g.randomStart {
		open := make([]int, 0, len(g.tiles))
		for s, t := range g.tiles {
			if t.kind != tileWall && t.kind != tileGoal {
				open = append(open, s)
			}
		}
		g.curr = open[g.rng.Intn(len(open))]
	}
	return g.curr
}

// Step applies action and reports (next, reward, terminated, truncated).
// Actions outside [0, Actions()) are a programming error and panic.
func (g *Gridworld) Step(action int) (int, float64, bool, bool) {
	if action < 0 || action >= gridActions {
		panic(fmt.Sprintf("gridworld: action %d out of range [0, %d)", action, gridActions))
	}
	if g.stepsTaken >= g.maxSteps || g.IsGoal(g.curr) {
		return g.curr, 0, g.IsGoal(g.curr), !g.IsGoal(g.curr)
	}
	actual := g.resolveAction(action)
	next, reward, terminated := g.move(g.curr, actual)
	g.curr = next
	g.stepsTaken++
	return next, reward, terminated, !terminated && g.stepsTaken >= g.maxSteps
}

func (g *Gridworld) resolveAction(action int) int {
	t := g.tiles[g.curr]
	if t.kind != tileSlip || t.slipProb <= 0 {
		return action
	}
	if g.rng.Float64() < t.slipProb {
		return g.rng.Intn(gridActions)
	}
	return action
}

func (g *Gridworld) move(state, action int) (int, float64, bool) {
	if g.IsGoal(state) {
		return state, 0, true
	}
	pos := g.position(state)
	row, col := nextPosition(pos.Row, pos.Col, action)
	if !g.inside(row, col) {
		row, col = pos.Row, pos.Col
	}
	next := g.state(row, col)
	if g.IsWall(next) {
		next = state
	}
	reward := -g.stepPenalty
	if g.IsGoal(next) {
		reward += g.tiles[next].reward
		return next, reward, true
	}
	return next, reward, false
}

// TransitionModel enumerates the dynamics Step samples from.
func (g *Gridworld) TransitionModel() TransitionModel {
	model := make(TransitionModel, g.States())
	for s := range model {
		model[s] = make([][]Outcome, gridActions)
		for a := 0; a < gridActions; a++ {
			model[s][a] = g.outcomes(s, a)
		}
	}
	return model
}

func (g *Gridworld) outcomes(state, action int) []Outcome {
	t := g.tiles[state]
	if t.kind != tileSlip || t.slipProb <= 0 || g.IsGoal(state) {
		next, reward, terminal := g.move(state, action)
		return []Outcome{{Probability: 1, NextState: next, Reward: reward, Terminal: terminal}}
	}
	var out []Outcome
	for actual := 0; actual < gridActions; actual++ {
		p := t.slipProb / gridActions
		if actual == action {
			p += 1 - t.slipProb
		}
		if p == 0 {
			continue
		}
		next, reward, terminal := g.move(state, actual)
		merged := false
		for i := range out {
			if out[i].NextState == next {
				out[i].Probability += p
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, Outcome{Probability: p, NextState: next, Reward: reward, Terminal: terminal})
		}
	}
	return out
}

func (g *Gridworld) inside(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

func (g *Gridworld) state(row, col int) int {
	return row*g.cols + col
}

func (g *Gridworld) position(state int) Position {
	return Position{Row: state / g.cols, Col: state % g.cols}
}

func nextPosition(row, col, action int) (int, int) {
	switch action {
	case ActionUp:
		row--
	case ActionRight:
		col++
	case ActionDown:
		row++
	case ActionLeft:
		col--
	}
	return row, col
}

// ParseLayout reads a text map: '.' open, '#' wall, 'S' start, 'G' goal
// worth goalReward, '~' slip tile with slipProb.
func ParseLayout(layout string, goalReward, slipProb float64) (GridworldConfig, error) {
	var lines []string
	for _, line := range strings.Split(layout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return GridworldConfig{}, invalidf("empty layout")
	}
	cfg := GridworldConfig{Rows: len(lines), Cols: len(lines[0])}
	starts := 0
	for r, line := range lines {
		if len(line) != cfg.Cols {
			return GridworldConfig{}, invalidf("layout row %d has %d columns, want %d", r, len(line), cfg.Cols)
		}
		for c, ch := range line {
			switch ch {
			case '.':
			case '#':
				cfg.Walls = append(cfg.Walls, Position{Row: r, Col: c})
			case 'S':
				cfg.Start = Position{Row: r, Col: c}
				starts++
			case 'G':
				cfg.Goals = append(cfg.Goals, Goal{Row: r, Col: c, Reward: goalReward})
			case '~':
				cfg.SlipTiles = append(cfg.SlipTiles, SlipTile{Row: r, Col: c, Probability: slipProb})
			default:
				return GridworldConfig{}, invalidf("layout row %d has unknown tile %q", r, ch)
			}
		}
	}
	if starts != 1 {
		return GridworldConfig{}, invalidf("layout needs exactly one start tile (found %d)", starts)
	}
	return cfg, nil
}

func (g *Gridworld) String() string {
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			s := g.state(r, c)
			switch {
			case s == g.curr:
				b.WriteByte('A')
			case g.IsWall(s):
				b.WriteByte('#')
			case g.IsGoal(s):
				b.WriteByte('G')
			case g.tiles[s].kind == tileSlip:
				b.WriteByte('~')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
