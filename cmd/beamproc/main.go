// beamproc runs the image-processing pipeline over a synthetic beam
// stream and reports per-frame fit results and throughput. It is the
// offline harness for tuning configs before they go to the beamline.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/European-XFEL/imageproc/internal/average"
	"github.com/European-XFEL/imageproc/internal/config"
	"github.com/European-XFEL/imageproc/internal/fit"
	"github.com/European-XFEL/imageproc/internal/frame"
	"github.com/European-XFEL/imageproc/internal/pipeline"
	"github.com/European-XFEL/imageproc/internal/plotutil"
	"github.com/European-XFEL/imageproc/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to a tuning JSON file (defaults apply when empty)")
	frames := flag.Int("frames", 200, "Number of synthetic frames to process")
	width := flag.Int("width", 256, "Frame width in pixels")
	height := flag.Int("height", 192, "Frame height in pixels")
	noise := flag.Float64("noise", 5.0, "Additive noise amplitude")
	avgWindow := flag.Int("average", 0, "Boxcar window for frame averaging (0 disables)")
	plotDir := flag.String("plots", "", "Directory for diagnostic plots (empty disables)")
	seed := flag.Int64("seed", 1, "Random seed for the synthetic stream")
	every := flag.Int("every", 20, "Print a result line every N frames")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	opts := pipeline.DefaultOptions()
	opts.Do1DFit = true
	opts.DoProjections = true
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		opts, err = cfg.ToOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	proc, err := pipeline.New(opts, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
	if err := proc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	var trends *plotutil.TrendPlotter
	var dir string
	if *plotDir != "" {
		trends = plotutil.NewTrendPlotter()
		dir = plotutil.MakeOutputDir(*plotDir, "beamproc")
		if err := trends.Start(dir); err != nil {
			fmt.Fprintf(os.Stderr, "plots: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("run %s: writing plots to %s\n", proc.RunID(), dir)
	}

	var boxcar *average.Boxcar
	if *avgWindow > 1 {
		boxcar = average.NewBoxcar(*avgWindow)
	}

	rng := rand.New(rand.NewSource(*seed))
	fmt.Println("train,success,x0,y0,sx1d,sy1d,inRateHz,outRateHz,errorFraction")

	var last pipeline.Result
	for i := 0; i < *frames; i++ {
		img := syntheticBeam(*width, *height, float64(i), *noise, rng)

		if boxcar != nil {
			if m := boxcar.Append(img); m != nil {
				img = m
			}
		}

		res, err := proc.Process(img, uint64(i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "train %d: %v\n", i, err)
			os.Exit(1)
		}
		last = res
		if trends != nil {
			trends.Sample(res)
		}
		if *every > 0 && i%*every == 0 {
			fmt.Printf("%d,%t,%.2f,%.2f,%.2f,%.2f,%.1f,%.1f,%.3f\n",
				res.TrainID, res.Success, res.X0, res.Y0, res.SX1D, res.SY1D,
				res.InRateHz, res.OutRateHz, res.ErrorFraction)
		}
	}

	if err := proc.End(); err != nil {
		fmt.Fprintf(os.Stderr, "end: %v\n", err)
		os.Exit(1)
	}

	if trends != nil {
		trends.Stop()
		if len(last.ProjectionX) > 0 && last.FitStatusX.Converged() {
			m := fit.Gauss1D(len(last.ProjectionX), false)
			path := filepath.Join(dir, "projection.png")
			params := []float64{last.AX1D, last.X01D, last.SX1D}
			if err := plotutil.SaveProjection("x projection", last.ProjectionX, m, params, path); err != nil {
				fmt.Fprintf(os.Stderr, "projection plot: %v\n", err)
			}
		}
		n, err := trends.GeneratePlots()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate plots: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d trend plots\n", n)
	}
}

// syntheticBeam renders a slowly drifting Gaussian spot with noise.
func syntheticBeam(w, h int, t, noise float64, rng *rand.Rand) *frame.Frame {
	x0 := float64(w)/2 + 10*math.Sin(t/40)
	y0 := float64(h)/2 + 6*math.Cos(t/55)
	sx := float64(w) / 24
	sy := float64(h) / 20

	f := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - x0) / sx
			dy := (float64(y) - y0) / sy
			v := 1000 * math.Exp(-(dx*dx+dy*dy)/2)
			if noise > 0 {
				v += noise * rng.Float64()
			}
			f.Data[f.Idx(x, y)] = v
		}
	}
	return f
}
