package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tabular-rl-go/internal/engine"
)

func runExperiment(args []string) error {
	fs := flag.NewFlagSet("experiment", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	flags := registerTrain(fs)
	runs := fs.Int("runs", envInt("runs", 10), "independent runs per planning setting")
	planningList := fs.String("planning-list", envString("planning-list", "0,5,50"), "comma separated planning step settings")
	workers := fs.Int("workers", envInt("workers", 0), "concurrent runs (0 uses GOMAXPROCS)")
	chartPath := fs.String("chart", envString("chart", "steps.html"), "write an HTML line chart to this path (empty disables)")
	jsonPath := fs.String("json", envString("json", ""), "write the raw results as JSON to this path")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := flags.validate(); err != nil {
		return err
	}
	if *runs <= 0 {
		return fmt.Errorf("runs must be positive (got %d)", *runs)
	}
	planning, err := parseIntList(*planningList)
	if err != nil {
		return err
	}

	runID := newRunID()
	base, err := flags.config(runID)
	if err != nil {
		return err
	}
	fmt.Printf("experiment config => run=%s algo=%s episodes=%d runs=%d planning=%v seed=%d\n",
		runID, base.Algorithm, base.Episodes, *runs, planning, base.Seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	result, err := engine.RunExperiment(ctx, engine.ExperimentConfig{
		Base:          base,
		Runs:          *runs,
		PlanningSteps: planning,
		Workers:       *workers,
	})
	if err != nil {
		return err
	}

	for i, n := range result.PlanningSteps {
		mean := result.MeanSteps[i]
		fmt.Printf("planning=%-4d first=%.1f last=%.1f\n", n, mean[0], mean[len(mean)-1])
	}
	if *chartPath != "" {
		if err := writeChart(*chartPath, result); err != nil {
			return err
		}
		fmt.Printf("chart written to %s\n", *chartPath)
	}
	if *jsonPath != "" {
		return writeJSON(*jsonPath, result)
	}
	return nil
}
