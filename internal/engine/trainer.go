package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Float64 returns a pointer to v for the optional Config fields.
func Float64(v float64) *float64 {
	return &v
}

// valueOr copies v so sanitised configs never share storage with the caller.
func valueOr(v *float64, fallback float64) *float64 {
	if v == nil {
		return Float64(fallback)
	}
	return Float64(*v)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ScaledStepPenalty downscales the per-step penalty on large grids so the default goal reward remains meaningful.
// Uses the Manhattan distance from start to goal as a proxy for the shortest path length and clamps the scaling
// factor to avoid extreme penalties on oversized or tiny boards.
func ScaledStepPenalty(rows, cols int, base float64) float64 {
	if base <= 0 {
		return 0
	}
	pathLen := float64(rows + cols - 2)
	if pathLen < 1 {
		pathLen = 1
	}
	reference := 6.0 // matches the 3+3 path of the default 4x4 board
	scale := pathLen / reference
	if scale < 0.5 {
		scale = 0.5
	}
	if scale > 3 {
		scale = 3
	}
	return base / scale
}

const (
	StatusRunning         = "running"
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
	StatusFailed          = "failed"
)

const (
	AlgorithmDynaQ     = "dyna-q"
	AlgorithmDynaQPlus = "dyna-q+"
)

const (
	defaultAlpha   = 1.0
	defaultGamma   = 0.95
	defaultEpsilon = 0.1
	defaultKappa   = 0.001

	layoutGoalReward      = 1.0
	layoutSlipProbability = 0.2
)

// Config describes one training run. Gamma, Epsilon and Kappa are optional:
// nil takes the default, while an explicit zero is kept.
type Config struct {
	Episodes      int                `json:"episodes"`
	Seed          int64              `json:"seed"`
	Algorithm     string             `json:"algorithm"`
	Selection     string             `json:"selection"`
	Alpha         float64            `json:"alpha"`
	Gamma         *float64           `json:"gamma,omitempty"`
	Epsilon       *float64           `json:"epsilon,omitempty"`
	Kappa         *float64           `json:"kappa,omitempty"`
	PlanningSteps int                `json:"planningSteps"`
	Rows          int                `json:"rows"`
	Cols          int                `json:"cols"`
	MaxSteps      int                `json:"maxSteps"`
	Goals         []Goal             `json:"goals"`
	GoalCount     int                `json:"goalCount"`
	Walls         []Position         `json:"walls"`
	SlipTiles     []SlipTile         `json:"slipTiles"`
	StepPenalty   float64            `json:"stepPenalty"`
	RandomStart   bool               `json:"randomStart"`
	Layout        string             `json:"layout"`
	LayoutSlip    float64            `json:"layoutSlip"`
	StepDelayMs   int                `json:"stepDelayMs"`
	RunID         string             `json:"runId"`
	Logger        logrus.FieldLogger `json:"-"`
}

// Snapshot is the progress report streamed by Run. Err is set only on the
// final snapshot of a failed or cancelled run.
type Snapshot struct {
	RunID             string      `json:"runId"`
	Step              int         `json:"step"`
	Episode           int         `json:"episode"`
	EpisodeSteps      int         `json:"episodeSteps"`
	EpisodeReward     float64     `json:"episodeReward"`
	Reward            float64     `json:"reward"`
	Position          Position    `json:"position"`
	ValueMap          [][]float64 `json:"valueMap"`
	SuccessCount      int         `json:"successCount"`
	EpisodesCompleted int         `json:"episodesCompleted"`
	TotalReward       float64     `json:"totalReward"`
	TotalSteps        int         `json:"totalSteps"`
	Config            Config      `json:"config"`
	Status            string      `json:"status"`
	Err               error       `json:"-"`
}

// Trainer drives an online agent through a gridworld, one real step at a
// time, running the configured planning backups after each step.
type Trainer struct {
	cfg               Config
	mode              SelectionMode
	logger            logrus.FieldLogger
	env               *Gridworld
	agent             Agent
	visits            []int
	stepsPerEpisode   []int
	step              int
	successCount      int
	episodesCompleted int
	totalReward       float64
	totalSteps        int
}

func NewTrainer(cfg Config) (*Trainer, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmDynaQ
	}
	switch cfg.Algorithm {
	case AlgorithmDynaQ, AlgorithmDynaQPlus:
		// allowed
	default:
		return nil, invalidf("unknown algorithm %q", cfg.Algorithm)
	}
	if cfg.Selection == "" {
		cfg.Selection = string(ModeEpsilonGreedy)
	}
	mode, err := ParseSelectionMode(cfg.Selection)
	if err != nil {
		return nil, err
	}
	if cfg.Episodes <= 0 {
		cfg.Episodes = 1
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = defaultAlpha
	}
	cfg.Gamma = valueOr(cfg.Gamma, defaultGamma)
	cfg.Epsilon = valueOr(cfg.Epsilon, defaultEpsilon)
	cfg.Kappa = valueOr(cfg.Kappa, defaultKappa)
	if cfg.PlanningSteps < 0 {
		cfg.PlanningSteps = 0
	}
	if cfg.StepDelayMs < 0 {
		cfg.StepDelayMs = 0
	}
	cfg.Seed = NormalizeSeed(cfg.Seed)
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	if cfg.RunID != "" {
		logger = logger.WithField("run", cfg.RunID)
	}

	grid, err := gridworldConfig(&cfg)
	if err != nil {
		return nil, err
	}
	env, err := NewGridworld(grid)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithSeed(cfg.Seed), WithLogger(logger)}
	var agent Agent
	switch cfg.Algorithm {
	case AlgorithmDynaQPlus:
		agent, err = NewDynaQPlus(env.States(), env.Actions(), cfg.Alpha, *cfg.Gamma, *cfg.Epsilon, *cfg.Kappa, opts...)
	default:
		agent, err = NewDynaQ(env.States(), env.Actions(), cfg.Alpha, *cfg.Gamma, *cfg.Epsilon, opts...)
	}
	if err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:    cfg,
		mode:   mode,
		logger: logger,
		env:    env,
		agent:  agent,
		visits: make([]int, env.States()),
	}, nil
}

// gridworldConfig resolves the board described by cfg, filling in the
// defaults it used and writing them back.
func gridworldConfig(cfg *Config) (GridworldConfig, error) {
	if cfg.Layout != "" {
		if cfg.LayoutSlip <= 0 || cfg.LayoutSlip > 1 {
			cfg.LayoutSlip = layoutSlipProbability
		}
		grid, err := ParseLayout(cfg.Layout, layoutGoalReward, cfg.LayoutSlip)
		if err != nil {
			return GridworldConfig{}, err
		}
		cfg.Rows, cfg.Cols = grid.Rows, grid.Cols
		grid.StepPenalty = ScaledStepPenalty(grid.Rows, grid.Cols, cfg.StepPenalty)
		grid.MaxSteps = cfg.MaxSteps
		grid.RandomStart = cfg.RandomStart
		grid.Seed = cfg.Seed
		cfg.Goals = cloneGoals(grid.Goals)
		return grid, nil
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 4
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 4
	}
	if cfg.StepPenalty < 0 {
		cfg.StepPenalty = 0
	}
	goals := sanitizeGoals(cfg.Goals, cfg.Rows, cfg.Cols)
	if cfg.GoalCount > 0 {
		goals = autoPlaceGoals(cfg.Rows, cfg.Cols, cfg.GoalCount)
	} else if len(goals) == 0 {
		reward := maxFloat(1, float64(cfg.Rows+cfg.Cols-2)/2.5)
		goals = []Goal{{Row: 0, Col: cfg.Cols - 1, Reward: reward}}
	}
	cfg.Goals = cloneGoals(goals)
	return GridworldConfig{
		Rows:        cfg.Rows,
		Cols:        cfg.Cols,
		Start:       Position{Row: cfg.Rows - 1, Col: 0},
		Goals:       goals,
		Walls:       cfg.Walls,
		SlipTiles:   cfg.SlipTiles,
		StepPenalty: ScaledStepPenalty(cfg.Rows, cfg.Cols, cfg.StepPenalty),
		MaxSteps:    cfg.MaxSteps,
		RandomStart: cfg.RandomStart,
		Seed:        cfg.Seed,
	}, nil
}

func sanitizeGoals(goals []Goal, rows, cols int) []Goal {
	result := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if g.Reward == 0 {
			continue
		}
		if g.Row < 0 || g.Row >= rows || g.Col < 0 || g.Col >= cols {
			continue
		}
		if g.Row == rows-1 && g.Col == 0 {
			continue // start tile
		}
		result = append(result, Goal{Row: g.Row, Col: g.Col, Reward: g.Reward})
	}
	return result
}

func autoPlaceGoals(rows, cols, count int) []Goal {
	reward := maxFloat(1, float64(rows+cols-2)/2.5)
	total := rows*cols - 1
	if count > total {
		count = total
	}
	if count <= 0 {
		return []Goal{{Row: 0, Col: cols - 1, Reward: reward}}
	}
	interval := total / count
	if interval == 0 {
		interval = 1
	}
	start := (rows - 1) * cols
	goals := make([]Goal, 0, count)
	for i := 0; i < rows*cols && len(goals) < count; i++ {
		if i == start || i%interval != 0 {
			continue
		}
		goals = append(goals, Goal{Row: i / cols, Col: i % cols, Reward: reward})
	}
	return goals
}

func (t *Trainer) Config() Config          { return t.cfg }
func (t *Trainer) Agent() Agent            { return t.agent }
func (t *Trainer) Environment() *Gridworld { return t.env }

// StepsPerEpisode lists the real steps taken in each completed episode.
func (t *Trainer) StepsPerEpisode() []int {
	return append([]int(nil), t.stepsPerEpisode...)
}

// Visits returns how often each cell was entered, laid out as the grid.
func (t *Trainer) Visits() [][]int {
	out := make([][]int, t.env.Rows())
	for r := range out {
		out[r] = append([]int(nil), t.visits[r*t.env.Cols():(r+1)*t.env.Cols()]...)
	}
	return out
}

// Run streams a snapshot after every real step and every episode. The
// channel is closed once training finishes, fails or ctx is cancelled.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		if err := t.train(ctx, out); err != nil {
			status := StatusFailed
			if ctx.Err() != nil {
				status = StatusCancelled
			}
			snap := t.snapshot(status, t.agent.Episode(), 0, 0, 0)
			snap.Err = err
			out <- snap
			return
		}
		out <- t.snapshot(StatusDone, t.cfg.Episodes, 0, 0, 0)
	}()
	return out
}

// Train runs every configured episode without streaming snapshots.
func (t *Trainer) Train(ctx context.Context) error {
	return t.train(ctx, nil)
}

func (t *Trainer) train(ctx context.Context, out chan<- Snapshot) error {
	for episode := 1; episode <= t.cfg.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.runEpisode(ctx, episode, out); err != nil {
			return fmt.Errorf("episode %d: %w", episode, err)
		}
	}
	return nil
}

func (t *Trainer) runEpisode(ctx context.Context, episode int, out chan<- Snapshot) error {
	state := t.env.Reset()
	t.agent.StartEpisode()
	t.visits[state]++
	steps := 0
	episodeReward := 0.0
	var lastReward float64
	goalReached := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, err := t.agent.GetAction(state, t.mode)
		if err != nil {
			return err
		}
		next, reward, terminated, truncated := t.env.Step(action)
		if err := t.agent.Learn(state, action, next, reward); err != nil {
			return err
		}
		if t.cfg.PlanningSteps > 0 {
			if err := t.agent.Plan(t.cfg.PlanningSteps); err != nil {
				return err
			}
		}
		t.visits[next]++
		episodeReward += reward
		lastReward = reward
		steps++
		t.step++
		if terminated {
			goalReached = true
		}
		if out != nil {
			if err := t.emit(ctx, out, t.snapshot(StatusRunning, episode, steps, episodeReward, reward)); err != nil {
				return err
			}
		}
		if out != nil && t.cfg.StepDelayMs > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(t.cfg.StepDelayMs) * time.Millisecond):
			}
		}
		if terminated || truncated {
			break
		}
		state = next
	}
	if goalReached {
		t.successCount++
	}
	t.totalReward += episodeReward
	t.totalSteps += steps
	t.episodesCompleted++
	t.stepsPerEpisode = append(t.stepsPerEpisode, steps)
	t.logger.WithFields(logrus.Fields{
		"episode": episode,
		"steps":   steps,
		"reward":  episodeReward,
		"goal":    goalReached,
	}).Info("episode complete")
	if out != nil {
		return t.emit(ctx, out, t.snapshot(StatusEpisodeComplete, episode, steps, episodeReward, lastReward))
	}
	return nil
}

func (t *Trainer) emit(ctx context.Context, out chan<- Snapshot, snap Snapshot) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- snap:
		return nil
	}
}

func (t *Trainer) valueMap() [][]float64 {
	q := t.agent.Q()
	rows, cols := t.env.Rows(), t.env.Cols()
	values := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		values[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			row := q[r*cols+c]
			values[r][c] = row[argmax(row)]
		}
	}
	return values
}

func (t *Trainer) snapshot(status string, episode, episodeSteps int, episodeReward, reward float64) Snapshot {
	return Snapshot{
		RunID:             t.cfg.RunID,
		Step:              t.step,
		Episode:           episode,
		EpisodeSteps:      episodeSteps,
		EpisodeReward:     episodeReward,
		Reward:            reward,
		Position:          t.env.Position(),
		ValueMap:          t.valueMap(),
		SuccessCount:      t.successCount,
		EpisodesCompleted: t.episodesCompleted,
		TotalReward:       t.totalReward,
		TotalSteps:        t.totalSteps,
		Config:            t.cfg,
		Status:            status,
	}
}

func cloneGoals(goals []Goal) []Goal {
	if len(goals) == 0 {
		return nil
	}
	copyGoals := make([]Goal, len(goals))
	copy(copyGoals, goals)
	return copyGoals
}
