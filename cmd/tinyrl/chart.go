package main

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tabular-rl-go/internal/engine"
)

// stepsChart plots mean steps per episode, one line per planning setting.
func stepsChart(result engine.ExperimentResult) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s: steps per episode", result.Algorithm),
			Subtitle: fmt.Sprintf("mean of %d runs", result.Runs),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "steps"}),
	)

	episodes := make([]string, result.Episodes)
	for i := range episodes {
		episodes[i] = fmt.Sprintf("%d", i+1)
	}
	line.SetXAxis(episodes)
	for i, planning := range result.PlanningSteps {
		items := make([]opts.LineData, 0, len(result.MeanSteps[i]))
		for _, v := range result.MeanSteps[i] {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(fmt.Sprintf("%d planning steps", planning), items)
	}
	return line
}

func writeChart(path string, result engine.ExperimentResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer f.Close()

	page := components.NewPage()
	page.AddCharts(stepsChart(result))
	return page.Render(f)
}
