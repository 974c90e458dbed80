// Command hoo runs Hierarchical Optimistic Optimization against built-in
// noisy benchmark functions.
package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thalesfsp/hoo"
)

var (
	configPath string
	logLevel   string
	config     runConfig
)

var rootCmd = &cobra.Command{
	Use:          "hoo",
	Short:        "Hierarchical Optimistic Optimization of noisy functions",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return errors.Wrap(err, "log level")
		}

		zerolog.SetGlobalLevel(level)
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()

		loaded, err := loadRunConfig(configPath)
		if err != nil {
			return err
		}

		config = loaded

		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize a benchmark function",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd, &config)

		result, err := runBenchmark(config, log.Logger)
		if err != nil {
			return err
		}

		printSummary(os.Stdout, result)

		return nil
	},
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the benchmark functions",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(benchmarkNames(), "\n"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "yaml config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	f := runCmd.Flags()
	f.StringP("function", "f", "", "benchmark function, see `hoo functions`")
	f.IntP("rounds", "n", 0, "round budget")
	f.Float64("v1", 0, "diameter coefficient at depth 0")
	f.Float64("rho", 0, "diameter decay rate, clamped into (0, 1)")
	f.Int64("seed", 0, "tie-break seed, 0 uses the clock")
	f.IntSlice("priority", nil, "per-dimension bisection weights")
	f.Bool("inclusive-horizon", false, "play exactly --rounds rounds instead of rounds-1")
	f.Float64("noise", 0, "observation noise standard deviation")
	f.Int("dimensions", 0, "hyper-ellipsoid dimensions")
	f.Float64Slice("g-params", nil, "analytical-g parameters, one per dimension")

	rootCmd.AddCommand(runCmd, functionsCmd)
}

// applyFlags copies the flags set on the command line over config.
func applyFlags(cmd *cobra.Command, config *runConfig) {
	f := cmd.Flags()

	if f.Changed("function") {
		config.Function, _ = f.GetString("function")
	}

	if f.Changed("rounds") {
		config.Rounds, _ = f.GetInt("rounds")
	}

	if f.Changed("v1") {
		config.V1, _ = f.GetFloat64("v1")
	}

	if f.Changed("rho") {
		config.Rho, _ = f.GetFloat64("rho")
	}

	if f.Changed("seed") {
		config.Seed, _ = f.GetInt64("seed")
	}

	if f.Changed("priority") {
		config.Priority, _ = f.GetIntSlice("priority")
	}

	if f.Changed("inclusive-horizon") {
		config.InclusiveHorizon, _ = f.GetBool("inclusive-horizon")
	}

	if f.Changed("noise") {
		config.Noise, _ = f.GetFloat64("noise")
	}

	if f.Changed("dimensions") {
		config.Dimensions, _ = f.GetInt("dimensions")
	}

	if f.Changed("g-params") {
		config.GParams, _ = f.GetFloat64Slice("g-params")
	}
}

// runResult summarises a finished run.
type runResult struct {
	Function  string
	Rounds    int
	Nodes     int
	Best      hoo.Recommendation
	BestValue float64
	Regret    float64
	Elapsed   time.Duration
}

// runBenchmark optimizes the configured benchmark.
func runBenchmark(config runConfig, logger zerolog.Logger) (runResult, error) {
	newBenchmark, ok := benchmarks[config.Function]
	if !ok {
		return runResult{}, errors.Errorf(
			"unknown function %q, want one of %s", config.Function, strings.Join(benchmarkNames(), ", "),
		)
	}

	bench, err := newBenchmark(benchmarkParams{
		Noise:      config.Noise,
		Dimensions: config.Dimensions,
		GParams:    config.GParams,
	})
	if err != nil {
		return runResult{}, err
	}

	store, err := hoo.NewCoveringStore(bench.lower, bench.upper, hoo.CoveringConfig{PriorityWeights: config.Priority})
	if err != nil {
		return runResult{}, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine, err := hoo.NewEngine(hoo.Config{
		V1:               config.V1,
		Rho:              config.Rho,
		RandomState:      rand.New(rand.NewSource(seed)),
		ProgressInterval: config.ProgressInterval,
		Logger:           logger.With().Str("function", bench.name).Logger(),
		InclusiveHorizon: config.InclusiveHorizon,
	}, store, bench.Draw)
	if err != nil {
		return runResult{}, err
	}

	logger.Info().
		Str("function", bench.name).
		Int("rounds", config.Rounds).
		Int64("seed", seed).
		Msg("starting")

	start := time.Now()

	if err := engine.Run(config.Rounds); err != nil {
		return runResult{}, err
	}

	best, err := engine.Recommend()
	if err != nil {
		return runResult{}, err
	}

	return runResult{
		Function:  bench.name,
		Rounds:    engine.Rounds(),
		Nodes:     engine.Len(),
		Best:      best,
		BestValue: bench.best,
		Regret:    bench.Regret(),
		Elapsed:   time.Since(start),
	}, nil
}

// printSummary writes a coloured summary of result to w.
func printSummary(w io.Writer, result runResult) {
	out := termenv.NewOutput(w)
	label := func(s string) termenv.Style {
		return out.String(fmt.Sprintf("%-14s", s)).Bold()
	}
	value := func(s string) termenv.Style {
		return out.String(s).Foreground(out.Color("2"))
	}

	fmt.Fprintln(w, label("function"), value(result.Function))
	fmt.Fprintln(w, label("rounds"), value(fmt.Sprintf("%d (%d nodes, %s)", result.Rounds, result.Nodes, result.Elapsed.Round(time.Millisecond))))
	fmt.Fprintln(w, label("best arm"), value(fmt.Sprintf("%.6g", result.Best.Point)))
	fmt.Fprintln(w, label("mean reward"), value(fmt.Sprintf("%.6g over %d visits (optimum %.6g)", result.Best.Mean, result.Best.Visits, result.BestValue)))
	fmt.Fprintln(w, label("regret"), value(fmt.Sprintf("%.6g", result.Regret)))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
