package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gonewx/particlesim/pkg/scenes"
)

func writeChart(path, title string, dt float64, sum scenes.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer f.Close()
	if err := renderChart(f, title, dt, sum); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// renderChart 画出每个 tick 的活跃粒子数和碰撞数
func renderChart(w io.Writer, title string, dt float64, sum scenes.Summary) error {
	xs := make([]string, len(sum.Active))
	for i := range xs {
		xs[i] = strconv.FormatFloat(float64(i+1)*dt, 'f', 2, 64)
	}

	active := charts.NewLine()
	active.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "active particles"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	active.SetXAxis(xs).AddSeries("active", lineData(sum.Active))

	hits := charts.NewBar()
	hits.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Subtitle: "collisions per tick"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
	)
	hit := make([]opts.BarData, len(sum.CollisionsTick))
	for i, v := range sum.CollisionsTick {
		hit[i] = opts.BarData{Value: v}
	}
	hits.SetXAxis(xs).AddSeries("collisions", hit)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(active, hits)
	return page.Render(w)
}

func lineData(vs []int) []opts.LineData {
	out := make([]opts.LineData, len(vs))
	for i, v := range vs {
		out[i] = opts.LineData{Value: v}
	}
	return out
}
