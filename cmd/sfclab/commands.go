package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/analysis"
	"github.com/san-kum/sfclab/internal/automation"
	"github.com/san-kum/sfclab/internal/config"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
	"github.com/san-kum/sfclab/internal/export"
	"github.com/san-kum/sfclab/internal/metrics"
	"github.com/san-kum/sfclab/internal/optim"
	"github.com/san-kum/sfclab/internal/sim"
	"github.com/san-kum/sfclab/internal/storage"
	"github.com/san-kum/sfclab/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	loop, err := sim.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	loop.AddMetric(metrics.NewStability(stateBound))

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s (rank %d, %d steps)...\n", cfg.Name, len(cfg.Plant.B), cfg.Run().Steps())
	start := time.Now()
	result, err := loop.Run(ctx, cfg.Run())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := saveRun(st, cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printSummary(result)
	return nil
}

func saveRun(st *storage.Store, cfg *config.Config, result *dynamo.Result) (string, error) {
	meta := storage.RunMetadata{
		Name:       cfg.Name,
		Seed:       cfg.Sim.Seed,
		PeriodMs:   cfg.Sim.PeriodMs,
		DurationMs: cfg.Sim.DurationMs,
		JitterMs:   cfg.Sim.JitterMs,
		Noise:      cfg.Sim.Noise,
		Model:      cfg.ControlModel(),
	}
	return st.Save(meta, result)
}

func printSummary(result *dynamo.Result) {
	fmt.Printf("steps: %d (irregular intervals: %d)\n", result.StepsTaken, result.Irregular)
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func checkDesign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	report, err := analysis.Check(cfg.ControlModel())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "design\t%s (rank %d)\n", cfg.Name, report.Rank)
	fmt.Fprintf(w, "controllable\t%v\n", report.Controllable)
	fmt.Fprintf(w, "observable\t%v\n", report.Observable)
	fmt.Fprintf(w, "controller radius\t%.6f\t%s\n", report.ControllerRadius, formatEigen(report.ControllerEigen))
	fmt.Fprintf(w, "observer radius\t%.6f\t%s\n", report.ObserverRadius, formatEigen(report.ObserverEigen))
	if err := w.Flush(); err != nil {
		return err
	}

	if !report.Stable() {
		return errors.Wrap(dynamo.ErrUnstable, "design check failed")
	}
	fmt.Println("\ndesign is stable")
	return nil
}

func formatEigen(vals []complex128) string {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += "  "
		}
		if imag(v) == 0 {
			s += fmt.Sprintf("%.4f", real(v))
		} else {
			s += fmt.Sprintf("%.4f%+.4fi", real(v), imag(v))
		}
	}
	return s
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if gridN < 1 {
		return errors.New("--points must be positive")
	}

	names := optim.GainNames(len(cfg.Plant.B))
	ranges := make([][]float64, len(names))
	for i, name := range names {
		base := cfg.Gains.K
		if name[0] == 'l' {
			base = cfg.Gains.L
		}
		ranges[i] = gridAround(base[i%len(base)], gridSpan, gridN)
	}

	search := optim.NewGridSearch(names, ranges)
	search.SetLimit(workers)
	total := len(search.Candidates())
	fmt.Printf("tuning %s: %d candidates, minimizing %s\n", cfg.Name, total, metric)

	ctx, cancel := signalContext()
	defer cancel()

	baseline, err := optim.ClosedLoopCost(cfg, metric)(ctx, nil)
	if err != nil {
		return err
	}
	best, score, err := search.Search(ctx, optim.ClosedLoopCost(cfg, metric))
	if err != nil {
		return err
	}

	fmt.Printf("baseline %s: %.6f\n", metric, baseline)
	fmt.Printf("best %s:     %.6f\n", metric, score)
	for _, name := range names {
		fmt.Printf("  %s = %.6f\n", name, best[name])
	}

	tuned, err := optim.ApplyGains(cfg, best)
	if err != nil {
		return err
	}
	report, err := analysis.Check(tuned.ControlModel())
	if err != nil {
		return err
	}
	fmt.Printf("controller radius %.4f, observer radius %.4f\n", report.ControllerRadius, report.ObserverRadius)
	return nil
}

// gridAround spreads n points over value*(1 +/- span).
func gridAround(value, span float64, n int) []float64 {
	if n == 1 {
		return []float64{value}
	}
	out := make([]float64, n)
	lo, hi := value*(1-span), value*(1+span)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return viz.Run(cfg, frameRate, theme)
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         cfg.Sim.Seed,
		Limit:        workers,
	}, logger)
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	rms := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Stable {
			rms = append(rms, r.Metrics["tracking_rms"])
		}
	}
	sort.Float64s(rms)

	fmt.Printf("trials: %d  stable: %d  unstable: %d\n", len(results), stable, unstable)
	if len(rms) > 0 {
		fmt.Printf("tracking_rms  min %.6f  median %.6f  max %.6f\n", rms[0], rms[len(rms)/2], rms[len(rms)-1])
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, sc, logger)
	for _, r := range results {
		runID, serr := saveRun(st, r.Config, r.Result)
		if serr != nil {
			return serr
		}
		logger.Info("scenario step stored", zap.String("run", runID))
		fmt.Printf("%-24s %s  tracking_rms %.6f\n", r.Name, runID, r.Result.Metrics["tracking_rms"])
	}
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tRANK\tPERIOD\tSTEPS\tIRREG\tTRACKING")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dms\t%d\t%d\t%.4f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Rank,
			run.PeriodMs,
			run.Steps,
			run.Irregular,
			run.Metrics["tracking_rms"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *dynamo.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadSeries(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Times) == 0 {
		return nil, nil, errors.Errorf("run %s has no samples", runID)
	}
	return meta, result, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("rank: %d, setpoint: %g\n", meta.Rank, meta.Model.Setpoint)
	fmt.Printf("samples: %d\n\n", len(result.Times))

	ref := make([]float64, len(result.Outputs))
	for i := range ref {
		ref[i] = meta.Model.Setpoint
	}
	fmt.Println(asciigraph.PlotMany([][]float64{result.Outputs, ref},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.Caption("y vs setpoint"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(result.Controls,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("u"),
	))
	fmt.Println()

	for i := 0; i < meta.Rank; i++ {
		x := column(result.States, i)
		xhat := column(result.Estimates, i)
		fmt.Println(asciigraph.PlotMany([][]float64{x, xhat},
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.Cyan),
			asciigraph.Caption(fmt.Sprintf("x%d vs estimate", i)),
		))
		fmt.Println()
	}

	if svgOut != "" {
		svg := export.TimeSeriesToSVG(result.Times, []export.Series{
			{Name: "y", Color: "#00ff88", Values: result.Outputs},
			{Name: "setpoint", Color: "#ffcc00", Values: ref},
			{Name: "u", Color: "#ff00ff", Values: result.Controls},
		}, 900, 400)
		if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgOut)
	}
	return nil
}

func column(states []dynamo.State, idx int) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		if idx < len(s) {
			out[i] = s[idx]
		}
	}
	return out
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	portrait := analysis.NewPhasePortrait(result.States, xAxis, yAxis)
	if portrait == nil {
		return errors.Errorf("run %s has rank %d, axes %d/%d out of range", meta.ID, meta.Rank, xAxis, yAxis)
	}
	if ctrl, err := control.New[uint32](meta.Model); err == nil {
		ref := ctrl.Reference()
		portrait.SetTarget(ref[:])
	}

	fmt.Printf("phase space plot: %s\n", meta.ID)
	fmt.Println()
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 70, 20))

	if svgOut != "" {
		if err := os.WriteFile(svgOut, []byte(export.PhaseToSVG(portrait, 500, 500, "#00ffff")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgOut)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write(storage.SeriesHeader(meta.Rank)); err != nil {
		return err
	}
	for i := range result.Times {
		if err := w.Write(storage.SeriesRow(meta.Rank, result, i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("signal: tracking error y - %g\n\n", meta.Model.Setpoint)

	e := make([]float64, len(result.Outputs))
	for i, y := range result.Outputs {
		e[i] = y - meta.Model.Setpoint
	}

	ps := analysis.PowerSpectrum(e)
	if len(ps) < 4 {
		return errors.Errorf("run %s is too short for frequency analysis", meta.ID)
	}
	plotData := ps[:len(ps)/4]

	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (tracking error)"),
	))
	fmt.Println()

	n := len(analysis.PadPow2(e))
	sampleRate := 1000 / float64(meta.PeriodMs)
	bin := analysis.DominantBin(plotData)
	freq := float64(bin) * sampleRate / float64(n)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	fmt.Printf("rms error: %.6f\n", math.Sqrt(sumSq(e)/float64(len(e))))
	return nil
}

func sumSq(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}
