// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"vmops.dev/lab/vmopsstat"
)

// chartDPI is the resolution of PNG charts.
const chartDPI = 150

// ChartOptions control ThroughputChart.
type ChartOptions struct {
	Title string
	// LogScale draws throughput on a logarithmic axis. Rows with zero
	// throughput are left out.
	LogScale bool
	// Width and Height default to 16cm by 10cm.
	Width, Height vg.Length
}

// ThroughputSeries returns the throughput-over-cores points of rows for
// each configuration, in order of first appearance.
func ThroughputSeries(rows []vmopsstat.ThroughputRow, logScale bool) (configs []string, series []plotter.XYs) {
	idx := make(map[string]int)
	for _, r := range rows {
		if logScale && r.Throughput <= 0 {
			continue
		}
		i, ok := idx[r.Config]
		if !ok {
			i = len(configs)
			idx[r.Config] = i
			configs = append(configs, r.Config)
			series = append(series, nil)
		}
		series[i] = append(series[i], plotter.XY{X: float64(r.Cores), Y: r.Throughput})
	}
	return configs, series
}

// ThroughputChart plots throughput over core count with one line per
// configuration and saves it to path. The file format follows the
// extension of path, such as .png, .svg, or .pdf. PNG charts have a
// white background.
func ThroughputChart(path string, rows []vmopsstat.ThroughputRow, opts ChartOptions) error {
	configs, series := ThroughputSeries(rows, opts.LogScale)
	if len(configs) == 0 {
		return fmt.Errorf("no throughput data to plot")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "# Threads"
	p.Y.Label.Text = "Throughput [ops/s]"
	p.X.Min = 0
	p.Legend.Top = true
	if opts.LogScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	} else {
		p.Y.Min = 0
	}
	p.Add(plotter.NewGrid())

	for i, xys := range series {
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("%s: %w", configs[i], err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(configs[i], line, points)
	}

	w, h := opts.Width, opts.Height
	if w == 0 {
		w = 16 * vg.Centimeter
	}
	if h == 0 {
		h = 10 * vg.Centimeter
	}
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return p.Save(w, h, path)
	}

	c := vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(chartDPI), vgimg.UseBackgroundColor(color.White))}
	p.Draw(draw.New(c))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
