// Package plotutil renders diagnostic plots for a processing run: beam
// projections with their fitted model overlaid, and per-run trend plots of
// position, width and throughput.
package plotutil

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/European-XFEL/imageproc/internal/fit"
	"github.com/European-XFEL/imageproc/internal/pipeline"
)

var (
	dataColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	modelColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}
)

// SaveProjection renders a projection profile and, when the model and
// parameters are non-nil, the fitted curve over it. The file format is
// chosen from the path extension (.png, .svg, .pdf).
func SaveProjection(title string, profile []float64, m fit.Model, params []float64, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Pixel"
	p.Y.Label.Text = "Intensity"

	pts := make(plotter.XYs, len(profile))
	for i, v := range profile {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	dataLine, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("projection line: %w", err)
	}
	dataLine.Color = dataColor
	dataLine.Width = vg.Points(1)
	p.Add(dataLine)
	p.Legend.Add("data", dataLine)

	if m != nil && params != nil {
		model := make([]float64, m.NumPoints())
		m.Eval(params, model)
		modelPts := make(plotter.XYs, len(model))
		for i, v := range model {
			modelPts[i] = plotter.XY{X: float64(i), Y: v}
		}
		modelLine, err := plotter.NewLine(modelPts)
		if err != nil {
			return fmt.Errorf("model line: %w", err)
		}
		modelLine.Color = modelColor
		modelLine.Width = vg.Points(1)
		modelLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(modelLine)
		p.Legend.Add(m.Name(), modelLine)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save projection plot: %w", err)
	}
	return nil
}

// TrendPlotter accumulates per-frame results during a run so position,
// width and rate trends can be plotted after it ends.
type TrendPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	samples   []pipeline.Result
}

// NewTrendPlotter creates an idle trend plotter.
func NewTrendPlotter() *TrendPlotter {
	return &TrendPlotter{}
}

// Start clears any previous run and begins recording into outputDir.
func (tp *TrendPlotter) Start(outputDir string) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tp.outputDir = outputDir
	tp.enabled = true
	tp.samples = nil
	return nil
}

// Stop disables sampling. Call GeneratePlots to produce output files.
func (tp *TrendPlotter) Stop() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.enabled = false
}

// Sample records one frame's result. Dropped and failed frames are kept
// out of the trends.
func (tp *TrendPlotter) Sample(res pipeline.Result) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if !tp.enabled || !res.Success {
		return
	}
	tp.samples = append(tp.samples, res)
}

// SampleCount returns the number of recorded results.
func (tp *TrendPlotter) SampleCount() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.samples)
}

// GeneratePlots writes the trend PNGs and returns how many were created.
func (tp *TrendPlotter) GeneratePlots() (int, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(tp.samples) == 0 {
		return 0, nil
	}

	trends := []struct {
		file, title, ylabel string
		series              map[string]func(pipeline.Result) float64
	}{
		{
			file:   "position.png",
			title:  "Beam Position",
			ylabel: "Pixel",
			series: map[string]func(pipeline.Result) float64{
				"x0": func(r pipeline.Result) float64 { return r.X0 },
				"y0": func(r pipeline.Result) float64 { return r.Y0 },
			},
		},
		{
			file:   "width.png",
			title:  "Beam Width",
			ylabel: "Pixel (sigma)",
			series: map[string]func(pipeline.Result) float64{
				"sx": func(r pipeline.Result) float64 { return r.SX },
				"sy": func(r pipeline.Result) float64 { return r.SY },
			},
		},
		{
			file:   "rate.png",
			title:  "Throughput",
			ylabel: "Hz",
			series: map[string]func(pipeline.Result) float64{
				"in":  func(r pipeline.Result) float64 { return r.InRateHz },
				"out": func(r pipeline.Result) float64 { return r.OutRateHz },
			},
		},
	}

	count := 0
	for _, tr := range trends {
		p := plot.New()
		p.Title.Text = tr.title
		p.X.Label.Text = "Frame"
		p.Y.Label.Text = tr.ylabel

		for name, get := range tr.series {
			pts := make(plotter.XYs, len(tp.samples))
			for i, s := range tp.samples {
				pts[i] = plotter.XY{X: float64(i), Y: get(s)}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return count, fmt.Errorf("%s: %w", tr.file, err)
			}
			if name == "x0" || name == "sx" || name == "in" {
				line.Color = dataColor
			} else {
				line.Color = modelColor
			}
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(name, line)
		}

		p.Legend.Top = true
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10

		path := filepath.Join(tp.outputDir, tr.file)
		if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
			return count, fmt.Errorf("save %s: %w", tr.file, err)
		}
		count++
	}
	return count, nil
}

// MakeOutputDir builds a timestamped plot directory under baseDir.
func MakeOutputDir(baseDir, runName string) string {
	ts := time.Now().Format("20060102_150405")
	if runName != "" {
		return filepath.Join(baseDir, runName, ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}
