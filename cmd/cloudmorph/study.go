package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/cloudmorph/internal/automation"
	"github.com/san-kum/cloudmorph/internal/cloud"
	"github.com/san-kum/cloudmorph/internal/config"
	"github.com/san-kum/cloudmorph/internal/experiment"
	"github.com/san-kum/cloudmorph/internal/optim"
	"github.com/san-kum/cloudmorph/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

var (
	gridParams []string
	metricName string
	minimize   bool

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	trials int
)

func studyCommands() []*cobra.Command {
	tuneCmd := &cobra.Command{
		Use:   "tune [skeleton.csv]",
		Short: "grid search script parameters for the best metric",
		Long: "tune runs the script once per point of a parameter grid without rendering.\n" +
			"Each --param is name=lo:hi:n. Known parameters: " + strings.Join(config.ParamNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: tuneRun,
	}
	tuneCmd.Flags().StringArrayVar(&gridParams, "param", nil, "grid axis as name=lo:hi:n (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "settled_fraction", "metric to optimize")
	tuneCmd.Flags().BoolVar(&minimize, "minimize", false, "look for the smallest value")
	addStudyFlags(tuneCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [skeleton.csv]",
		Short: "run the script across one parameter range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepRun,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", config.ParamDamping, "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.5, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "n", 6, "number of values")
	addStudyFlags(sweepCmd)

	seedsCmd := &cobra.Command{
		Use:   "seeds [skeleton.csv]",
		Short: "run the script with random cloud seeds and count domain escapes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  seedsRun,
	}
	seedsCmd.Flags().IntVar(&trials, "trials", 20, "number of seeds")
	addStudyFlags(seedsCmd)

	batchCmd := &cobra.Command{
		Use:   "batch <scenario.yaml>",
		Short: "render every run of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  batchRun,
	}

	return []*cobra.Command{tuneCmd, sweepCmd, seedsCmd, batchCmd}
}

func addStudyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset script")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	cmd.Flags().Float64Var(&step, "step", cloud.DefaultStep, "grid spacing of the initial cloud")
	cmd.Flags().StringVar(&indexKind, "index", "kdtree", "nearest-point index (kdtree, brute)")
	addFormatFlags(cmd)
}

// parseGridParam parses name=lo:hi:n.
func parseGridParam(s string) (string, []float64, error) {
	name, bounds, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("param %q: want name=lo:hi:n", s)
	}
	parts := strings.Split(bounds, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("param %q: want name=lo:hi:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("param %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("param %q: %w", s, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("param %q: bad count %q", s, parts[2])
	}
	if n == 1 {
		return name, []float64{lo}, nil
	}
	return name, floats.Span(make([]float64, n), lo, hi), nil
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func tuneRun(cmd *cobra.Command, args []string) error {
	cfg, sk, err := loadSkeleton(cmd, args)
	if err != nil {
		return err
	}
	if len(gridParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}

	names := make([]string, 0, len(gridParams))
	ranges := make([][]float64, 0, len(gridParams))
	for _, p := range gridParams {
		name, values, err := parseGridParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	if !minimize {
		gs.Maximize()
	}

	registry := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		c := cfg.Clone()
		for name, v := range params {
			if err := c.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		exp := experiment.New(c, registry)
		if err := exp.Prepare(sk); err != nil {
			return nil, err
		}
		return exp, nil
	}

	ctx, stop := interruptContext()
	defer stop()

	fmt.Printf("searching %d grid points for %s\n\n", gs.Size(), metricName)
	best, value, results, err := gs.Search(ctx, build, metricName)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
	for _, tr := range results {
		cols := make([]string, 0, len(names)+1)
		for _, name := range names {
			cols = append(cols, strconv.FormatFloat(tr.Params[name], 'g', 4, 64))
		}
		if tr.Err != nil {
			cols = append(cols, "failed")
		} else {
			cols = append(cols, fmt.Sprintf("%.4f", tr.Value))
		}
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	w.Flush()
	if err != nil {
		return err
	}

	pairs := make([]string, 0, 2*len(best)+2)
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, k, strconv.FormatFloat(best[k], 'g', 6, 64))
	}
	pairs = append(pairs, metricName, fmt.Sprintf("%.4f", value))
	fmt.Println()
	fmt.Println(viz.Panel.Render(viz.KeyValues(pairs...)))
	return nil
}

func sweepRun(cmd *cobra.Command, args []string) error {
	cfg, sk, err := loadSkeleton(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	sweep := &automation.ParameterSweep{ParamName: sweepParam, ParamMin: sweepMin, ParamMax: sweepMax, NumSteps: sweepSteps}
	results, err := automation.RunSweep(ctx, sweep, cfg, sk, experiment.NewRegistry())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFRAMES\tSETTLED\t<|V|²>\tSTATUS\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(w, "%.4g\t%d\t%.1f%%\t%.4f\t%s\n",
			r.ParamValue, r.Frames, 100*r.Metrics["settled_fraction"], r.Metrics["mean_squared_velocity"], status)
	}
	w.Flush()
	return err
}

func seedsRun(cmd *cobra.Command, args []string) error {
	cfg, sk, err := loadSkeleton(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	mc := &automation.MonteCarloConfig{NumTrials: trials, Seed: cfg.Cloud.Seed}
	results, err := automation.RunMonteCarlo(ctx, mc, cfg, sk, experiment.NewRegistry())
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	settled := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Stable {
			settled = append(settled, r.Settled)
		}
	}
	fmt.Println(viz.Panel.Render(viz.KeyValues(
		"trials", strconv.Itoa(len(results)),
		"stable", strconv.Itoa(stable),
		"escaped", strconv.Itoa(unstable),
	)))
	if len(settled) > 1 {
		fmt.Println(viz.MetricLabel.Render("settled fraction per stable seed"))
		fmt.Println(viz.SparklineChart(settled, 60))
	}
	return nil
}

func batchRun(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	base := config.DefaultConfig()
	if configFile != "" {
		if base, err = config.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if base.DataDir == "" || cmd.Flags().Changed("data") {
		base.DataDir = dataDir
	}

	st := storeFor(cmd)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	fmt.Println(viz.HeaderStyle.Render(scenario.Name))
	if scenario.Description != "" {
		fmt.Println(viz.Subtle.Render(scenario.Description))
	}
	outcomes, err := automation.RunScenario(ctx, scenario, base, experiment.NewRegistry(), st)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN\tFRAMES\tSETTLED")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\n", o.Name, o.RunID, o.Result.Frames, 100*o.Result.Metrics["settled_fraction"])
	}
	w.Flush()
	return err
}
