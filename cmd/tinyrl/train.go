package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tabular-rl-go/internal/engine"
)

type trainFlags struct {
	common    commonFlags
	algo      *string
	selection *string
	episodes  *int
	alpha     *float64
	epsilon   *float64
	kappa     *float64
	planning  *int
}

func registerTrain(fs *flag.FlagSet) trainFlags {
	return trainFlags{
		common:    registerCommon(fs),
		algo:      fs.String("algo", envString("algo", engine.AlgorithmDynaQ), "agent: dyna-q or dyna-q+"),
		selection: fs.String("selection", envString("selection", string(engine.ModeEpsilonGreedy)), "action selection: random, greedy, epsilon-greedy"),
		episodes:  fs.Int("episodes", envInt("episodes", 100), "number of training episodes"),
		alpha:     fs.Float64("alpha", envFloat("alpha", 1.0), "step size (0-1]"),
		epsilon:   fs.Float64("epsilon", envFloat("epsilon", 0.1), "exploration rate (0-1)"),
		kappa:     fs.Float64("kappa", envFloat("kappa", 0.001), "Dyna-Q+ exploration bonus weight"),
		planning:  fs.Int("planning", envInt("planning", 50), "planning backups after every real step"),
	}
}

func (f trainFlags) validate() error {
	if err := f.common.validate(); err != nil {
		return err
	}
	if *f.episodes <= 0 {
		return fmt.Errorf("episodes must be positive (got %d)", *f.episodes)
	}
	if *f.alpha <= 0 || *f.alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1] (got %.2f)", *f.alpha)
	}
	if *f.epsilon < 0 || *f.epsilon > 1 {
		return fmt.Errorf("epsilon must be between 0 and 1 (got %.2f)", *f.epsilon)
	}
	if *f.kappa < 0 {
		return fmt.Errorf("kappa must not be negative (got %.4f)", *f.kappa)
	}
	if *f.planning < 0 {
		return fmt.Errorf("planning must not be negative (got %d)", *f.planning)
	}
	return nil
}

func (f trainFlags) config(runID string) (engine.Config, error) {
	layout, err := f.common.readLayout()
	if err != nil {
		return engine.Config{}, err
	}
	logger, err := f.common.logger(runID)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Episodes:      *f.episodes,
		Seed:          *f.common.seed,
		Algorithm:     *f.algo,
		Selection:     *f.selection,
		Alpha:         *f.alpha,
		Gamma:         engine.Float64(*f.common.gamma),
		Epsilon:       engine.Float64(*f.epsilon),
		Kappa:         engine.Float64(*f.kappa),
		PlanningSteps: *f.planning,
		Rows:          *f.common.rows,
		Cols:          *f.common.cols,
		MaxSteps:      *f.common.maxSteps,
		StepPenalty:   *f.common.stepPenalty,
		Layout:        layout,
		LayoutSlip:    *f.common.slip,
		RunID:         runID,
		Logger:        logger,
	}, nil
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	flags := registerTrain(fs)
	snapshotPath := fs.String("snapshot", envString("snapshot", ""), "write the trained agent tables as JSON to this path")
	showQ := fs.Bool("show-q", envBool("show-q", false), "print the full q-table")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := flags.validate(); err != nil {
		return err
	}

	runID := newRunID()
	cfg, err := flags.config(runID)
	if err != nil {
		return err
	}
	trainer, err := engine.NewTrainer(cfg)
	if err != nil {
		return err
	}
	cfg = trainer.Config()
	fmt.Printf("train config => run=%s algo=%s episodes=%d seed=%d alpha=%.2f gamma=%.2f epsilon=%.2f planning=%d\n",
		runID, cfg.Algorithm, cfg.Episodes, cfg.Seed, cfg.Alpha, *cfg.Gamma, *cfg.Epsilon, cfg.PlanningSteps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var final engine.Snapshot
	for snapshot := range trainer.Run(ctx) {
		final = snapshot
	}
	if final.Err != nil {
		return final.Err
	}

	episodes := float64(final.EpisodesCompleted)
	fmt.Printf("summary: avg_reward=%.2f avg_steps=%.2f success_rate=%.2f\n",
		final.TotalReward/episodes, float64(final.TotalSteps)/episodes, float64(final.SuccessCount)/episodes)

	env := trainer.Environment()
	agent := trainer.Agent()
	policy, err := greedyPolicy(agent, env.States())
	if err != nil {
		return err
	}
	r := newRenderer(os.Stdout, !*flags.common.noColor)
	r.printValues(env, flattenRows(final.ValueMap))
	r.printPolicy(env, policy)
	r.printHeatmap(trainer.Visits())
	if *showQ {
		r.printQ(agent.Q())
	}

	if *snapshotPath != "" {
		return writeJSON(*snapshotPath, agent.Snapshot())
	}
	return nil
}

func flattenRows(rows [][]float64) []float64 {
	var out []float64
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
