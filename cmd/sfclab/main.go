package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	setpoint   float64
	periodMs   uint32
	durationMs uint64
	jitterMs   uint32
	noise      float64
	seed       int64
	// run
	stateBound float64
	// plot and phase
	svgOut string
	xAxis  int
	yAxis  int
	// tune
	metric   string
	gridSpan float64
	gridN    int
	workers  int
	// live
	frameRate int
	theme     string
	// montecarlo
	trials       int
	perturbation float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sfclab",
		Short:         "state-feedback observer controller lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sfclab", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop simulation and store it",
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().Float64Var(&stateBound, "state-bound", 10, "per-entry bound for the stability metric")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "check controller and observer design",
		RunE:  checkDesign,
	}
	addConfigFlags(checkCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search gains around the configured design",
		RunE:  tuneGains,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metric, "metric", "tracking_rms", "metric to minimize")
	tuneCmd.Flags().Float64Var(&gridSpan, "span", 0.5, "relative span around each gain")
	tuneCmd.Flags().IntVar(&gridN, "points", 3, "grid points per gain")
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "concurrent evaluations")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the loop with live visualization",
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme (cyberpunk, retro, minimal)")

	mcCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run perturbed initial states in parallel",
		RunE:  runMonteCarlo,
	}
	addConfigFlags(mcCmd)
	mcCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	mcCmd.Flags().Float64Var(&perturbation, "perturbation", 0.5, "uniform initial state perturbation")
	mcCmd.Flags().IntVar(&workers, "workers", 4, "concurrent trials")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario and store every step",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot output, control and estimates of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write an svg plot to this file")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of the true state",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	phaseCmd.Flags().StringVar(&svgOut, "svg", "", "also write an svg plot to this file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and series as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run series as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of the tracking error",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-12s rank %d  period %dms\n", name, len(p.Plant.B), p.Sim.PeriodMs)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a config file to start from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}
	addConfigFlags(initCmd)

	rootCmd.AddCommand(runCmd, checkCmd, tuneCmd, liveCmd, mcCmd, scenarioCmd, listCmd, plotCmd, phaseCmd,
		exportCmd, exportCSVCmd, analyzeCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml), instead of --preset")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a named preset, instead of --config")
	cmd.Flags().Float64Var(&setpoint, "setpoint", 0, "reference output")
	cmd.Flags().Uint32Var(&periodMs, "period", config.DefaultPeriodMs, "control period in ms")
	cmd.Flags().Uint64Var(&durationMs, "duration", config.DefaultDurationMs, "simulated duration in ms")
	cmd.Flags().Uint32Var(&jitterMs, "jitter", 0, "uniform clock jitter in ms")
	cmd.Flags().Float64Var(&noise, "noise", 0, "measurement noise standard deviation")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
}

// loadConfig resolves defaults, then the preset, then the config file, then
// any flags given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, errors.New("--preset and --config are mutually exclusive")
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, errors.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if flags.Changed("period") {
		cfg.Sim.PeriodMs = periodMs
	}
	if flags.Changed("duration") {
		cfg.Sim.DurationMs = durationMs
	}
	if flags.Changed("jitter") {
		cfg.Sim.JitterMs = jitterMs
	}
	if flags.Changed("noise") {
		cfg.Sim.Noise = noise
	}
	if flags.Changed("seed") {
		cfg.Sim.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}
