package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/cloudmorph/internal/analysis"
	"github.com/san-kum/cloudmorph/internal/cloud"
	"github.com/san-kum/cloudmorph/internal/config"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/experiment"
	"github.com/san-kum/cloudmorph/internal/export"
	"github.com/san-kum/cloudmorph/internal/logging"
	"github.com/san-kum/cloudmorph/internal/sim"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/storage"
	"github.com/san-kum/cloudmorph/internal/viz"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	preset      string
	seed        int64
	step        float64
	velSigma    float64
	indexKind   string
	scale       float64
	fps         int
	supersample int
	comma       string
	decimal     string
	noHeader    bool

	svgPath string
	noTUI   bool
	theme   string
	asJSON  bool
	repeats int
)

// settledThreshold is the settled fraction at which show reports a run as
// settled.
const settledThreshold = 0.9

func main() {
	rootCmd := &cobra.Command{
		Use:   "cloudmorph",
		Short: "animate a point cloud morphing into a skeleton outline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	renderCmd := &cobra.Command{
		Use:   "render [skeleton.csv]",
		Short: "run the script and save the animation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&preset, "preset", "", "use preset script")
	renderCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	renderCmd.Flags().Float64Var(&step, "step", cloud.DefaultStep, "grid spacing of the initial cloud")
	renderCmd.Flags().Float64Var(&velSigma, "vel-sigma", cloud.DefaultVelSigma, "initial velocity spread")
	renderCmd.Flags().StringVar(&indexKind, "index", "kdtree", "nearest-point index (kdtree, brute)")
	renderCmd.Flags().Float64Var(&scale, "scale", 120, "pixels per domain unit")
	renderCmd.Flags().IntVar(&fps, "fps", 20, "animation frame rate")
	renderCmd.Flags().IntVar(&supersample, "supersample", 2, "supersampling factor")
	renderCmd.Flags().StringVar(&svgPath, "svg", "", "also write the final frame as svg")
	renderCmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the progress view")
	renderCmd.Flags().StringVar(&theme, "theme", "neon", "progress theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	addFormatFlags(renderCmd)

	skeletonCmd := &cobra.Command{
		Use:   "skeleton [skeleton.csv]",
		Short: "load and normalize a skeleton and preview it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showSkeleton,
	}
	skeletonCmd.Flags().StringVar(&svgPath, "svg", "", "write the skeleton as svg")
	addFormatFlags(skeletonCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and traces",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print metadata as json")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scripts",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPHASES\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				kinds := make([]string, 0)
				for _, ph := range p.Script() {
					kinds = append(kinds, ph.Kind)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(kinds, " > "), p.Description)
			}
			w.Flush()
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [skeleton.csv]",
		Short: "compare nearest-point index implementations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchIndexes,
	}
	benchCmd.Flags().Float64Var(&step, "step", cloud.DefaultStep, "grid spacing of the query cloud")
	benchCmd.Flags().IntVar(&repeats, "repeats", 20, "queries per index")
	addFormatFlags(benchCmd)

	rootCmd.AddCommand(renderCmd, skeletonCmd, listCmd, showCmd, presetsCmd, benchCmd)
	rootCmd.AddCommand(studyCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&comma, "comma", ";", "column separator of the skeleton file")
	cmd.Flags().StringVar(&decimal, "decimal", ",", "decimal separator of the skeleton file")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "skeleton file has no header row")
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves preset, config file and flags in that order; flags win
// only when set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			fileCfg.Name = cfg.Name
			fileCfg.Script = cfg.Script
		}
		cfg = fileCfg
	}

	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Cloud.Seed = seed
	}
	if changed("step") {
		cfg.Cloud.Step = step
	}
	if changed("vel-sigma") {
		cfg.Cloud.VelSigma = velSigma
	}
	if changed("index") {
		cfg.Index.Kind = indexKind
	}
	if changed("scale") {
		cfg.Render.Scale = scale
	}
	if changed("fps") {
		cfg.Render.FPS = fps
	}
	if changed("supersample") {
		cfg.Render.Supersample = supersample
	}
	if changed("comma") {
		cfg.Skeleton.Comma = comma
	}
	if changed("decimal") {
		cfg.Skeleton.Decimal = decimal
	}
	if changed("no-header") {
		cfg.Skeleton.Header = !noHeader
	}
	if cfg.DataDir == "" || changed("data") {
		cfg.DataDir = dataDir
	}
	if len(args) > 0 {
		cfg.Skeleton.Path = args[0]
	}
	if cfg.Skeleton.Path == "" {
		return nil, errors.New("no skeleton file given")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry())
	if err := exp.Setup(); err != nil {
		return err
	}
	cam, closeRenderer, err := exp.Record()
	if err != nil {
		return err
	}
	defer closeRenderer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run := func(ctx context.Context, progress dynamo.Observer) (*sim.Result, error) {
		exp.Simulator().AddObserver(progress)
		return exp.Run(ctx)
	}

	var result *sim.Result
	start := time.Now()
	if noTUI || !interactive() {
		result, err = run(ctx, loggingObserver{total: exp.TotalSteps()})
	} else {
		title := fmt.Sprintf("cloudmorph · %s · %d particles", cfg.Name, exp.Cloud().Len())
		m := viz.NewRunModel(ctx, title, exp.TotalSteps(), viz.GetTheme(theme), run)
		final, terr := tea.NewProgram(m).Run()
		if terr != nil {
			return terr
		}
		result, err = final.(viz.RunModel).Result()
	}
	if err != nil {
		logging.Logger().Warn("run aborted, nothing saved", "err", err)
		return err
	}

	runID, err := st.Save(exp.StorageRun(result), cam)
	if err != nil {
		return err
	}

	if svgPath != "" {
		style := export.DefaultStyle()
		style.Scale = cfg.Render.Scale
		style.Radius = cfg.Render.MarkerRadius
		style.Background = cfg.Render.Background
		style.Foreground = cfg.Render.Foreground
		svg := export.CloudToSVG(exp.Skeleton().Box, exp.Cloud().Pos, style)
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
	}

	fmt.Println(viz.Panel.Render(viz.KeyValues(
		"run", runID,
		"particles", fmt.Sprintf("%d (%dx%d)", exp.Cloud().Len(), exp.Grid().NumX, exp.Grid().NumY),
		"frames", fmt.Sprintf("%d", result.Frames),
		"settled", fmt.Sprintf("%.1f%%", 100*result.Metrics["settled_fraction"]),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"gif", st.Dir(runID)+"/"+storage.AnimationFile,
	)))
	if tr := result.Traces["mean_squared_velocity"]; len(tr) > 1 {
		fmt.Println(asciigraph.Plot(tr,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("<|v|²> per frame"),
		))
	}
	return nil
}

type loggingObserver struct {
	total int
}

func (o loggingObserver) OnStep(phase string, step int, c *dynamo.Cloud) error {
	if step == 0 {
		logging.Logger().Info("phase", "name", phase, "of", o.total)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// interactive reports whether the progress view can run: bubbletea reads
// keys from stdin and draws on stdout.
func interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func loadSkeleton(cmd *cobra.Command, args []string) (*config.Config, *skeleton.Skeleton, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	format, err := cfg.Skeleton.Format()
	if err != nil {
		return nil, nil, err
	}
	sk, err := skeleton.Load(cfg.Skeleton.Path, format, cfg.Skeleton.Options)
	if err != nil {
		return nil, nil, err
	}
	return cfg, sk, nil
}

func showSkeleton(cmd *cobra.Command, args []string) error {
	cfg, sk, err := loadSkeleton(cmd, args)
	if err != nil {
		return err
	}

	grid, err := cloud.Dims(sk.Box, cfg.Cloud.Step)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(cfg.Skeleton.Path))
	fmt.Println(viz.KeyValues(
		"points", fmt.Sprintf("%d", sk.Len()),
		"raw x", fmt.Sprintf("[%g, %g]", sk.Raw.Min.X, sk.Raw.Max.X),
		"raw y", fmt.Sprintf("[%g, %g]", sk.Raw.Min.Y, sk.Raw.Max.Y),
		"domain", fmt.Sprintf("%g x %g", sk.Box.X, sk.Box.Y),
		"radius", fmt.Sprintf("%g", sk.Width[0]),
		"grid", fmt.Sprintf("%dx%d = %d particles", grid.NumX, grid.NumY, grid.Len()),
	))

	canvas := viz.FitCanvas(sk.Box, 80)
	canvas.Polyline(sk.Box, sk.Pos)
	fmt.Println()
	fmt.Print(canvas.String())

	if svgPath != "" {
		svg := export.SkeletonToSVG(sk.Box, sk.Pos, sk.Width, export.DefaultStyle())
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
	}
	return nil
}

// storeFor honours data_dir from --config unless --data was given.
func storeFor(cmd *cobra.Command) *storage.Store {
	dir := dataDir
	if configFile != "" && !cmd.Flags().Changed("data") {
		if cfg, err := config.Load(configFile); err == nil && cfg.DataDir != "" {
			dir = cfg.DataDir
		}
	}
	return storage.New(dir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storeFor(cmd)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPARTICLES\tFRAMES\tSETTLED\tTIMESTAMP")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f%%\t%s\n",
			run.ID, run.Name, run.Particles, run.Frames,
			100*run.Metrics["settled_fraction"], run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storeFor(cmd)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	if asJSON {
		return storage.ExportJSON(os.Stdout, meta)
	}

	fmt.Println(viz.Title.Render(meta.Name))
	phases := make([]string, 0, len(meta.Phases))
	for _, p := range meta.Phases {
		phases = append(phases, fmt.Sprintf("%s(%d)", p.Name, p.Frames))
	}
	fmt.Println(viz.KeyValues(
		"run", meta.ID,
		"skeleton", meta.Skeleton,
		"seed", fmt.Sprintf("%d", meta.Seed),
		"domain", fmt.Sprintf("%g x %g", meta.Box.X, meta.Box.Y),
		"particles", fmt.Sprintf("%d", meta.Particles),
		"frames", fmt.Sprintf("%d @ %d fps", meta.Frames, meta.FPS),
		"phases", strings.Join(phases, " > "),
	))
	fmt.Println()
	for _, name := range []string{"mean_squared_velocity", "settled_fraction", "energy_decay", "peak_speed"} {
		if v, ok := meta.Metrics[name]; ok {
			fmt.Printf("%s %s\n", viz.MetricLabel.Render(fmt.Sprintf("%-22s", name)), viz.MetricValue.Render(fmt.Sprintf("%.4f", v)))
		}
	}

	tr, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}

	sum := analysis.Summarize(tr.Series["mean_squared_velocity"], tr.Series["settled_fraction"], settledThreshold)
	settle := "never"
	if sum.SettleStep >= 0 {
		settle = fmt.Sprintf("frame %d of %d", sum.SettleStep, sum.Steps)
	}
	pairs := []string{"settled at", settle}
	if sum.HasDecay {
		pairs = append(pairs, "<|v|²> decay", fmt.Sprintf("%.4f / frame", sum.DecayRate))
	}
	if sum.HasOscillation {
		pairs = append(pairs, "<|v|²> period", fmt.Sprintf("%.1f frames", sum.Period))
	}
	fmt.Println()
	fmt.Println(viz.KeyValues(pairs...))
	for _, name := range []string{"mean_squared_velocity", "settled_fraction"} {
		data := tr.Series[name]
		if len(data) < 2 {
			continue
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		))
	}
	return nil
}

func benchIndexes(cmd *cobra.Command, args []string) error {
	cfg, sk, err := loadSkeleton(cmd, args)
	if err != nil {
		return err
	}

	c, grid, err := cloud.NewGrid(sk.Box, cfg.Cloud.Step, cfg.Cloud.VelSigma, rand.New(rand.NewSource(cfg.Cloud.Seed)))
	if err != nil {
		return err
	}

	if repeats < 1 {
		return fmt.Errorf("repeats must be positive, got %d", repeats)
	}

	registry := experiment.NewRegistry()
	fmt.Printf("benchmarking %d queries against %d skeleton points\n\n", grid.Len(), sk.Len())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tBUILD\tQUERY\tQUERIES/SEC")

	for _, kind := range registry.ListIndexes() {
		buildStart := time.Now()
		index, err := registry.GetIndex(kind, sk.Pos)
		if err != nil {
			return err
		}
		build := time.Since(buildStart)

		queryStart := time.Now()
		for i := 0; i < repeats; i++ {
			index.Query(c.Pos)
		}
		query := time.Since(queryStart) / time.Duration(repeats)
		qps := float64(grid.Len()) / query.Seconds()

		fmt.Fprintf(w, "%s\t%v\t%v\t%.0f\n", kind, build.Round(time.Microsecond), query.Round(time.Microsecond), qps)
	}
	return w.Flush()
}
