package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/cloudmorph/internal/capture"
	"github.com/san-kum/cloudmorph/internal/cloud"
	"github.com/san-kum/cloudmorph/internal/config"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/logging"
	"github.com/san-kum/cloudmorph/internal/render"
	"github.com/san-kum/cloudmorph/internal/sim"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/spatial"
	"github.com/san-kum/cloudmorph/internal/storage"
)

// Experiment ties one configuration to its skeleton, cloud and script.
type Experiment struct {
	cfg        *config.Config
	registry   *Registry
	randSource *rand.Rand

	skeleton  *skeleton.Skeleton
	env       Env
	memo      *spatial.Memo
	cloud     *dynamo.Cloud
	grid      cloud.Grid
	phases    []sim.Phase
	simulator *sim.Simulator
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{
		cfg:        cfg,
		registry:   registry,
		randSource: rand.New(rand.NewSource(cfg.Cloud.Seed)),
	}
}

// Setup loads the skeleton named in the configuration and prepares the run.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	format, err := e.cfg.Skeleton.Format()
	if err != nil {
		return err
	}
	sk, err := skeleton.Load(e.cfg.Skeleton.Path, format, e.cfg.Skeleton.Options)
	if err != nil {
		return fmt.Errorf("load skeleton: %w", err)
	}
	return e.Prepare(sk)
}

// Prepare builds the index, the initial grid cloud, the script phases and the
// simulator around an already normalized skeleton.
func (e *Experiment) Prepare(sk *skeleton.Skeleton) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	if sk == nil || sk.Len() == 0 {
		return dynamo.ErrEmptySkeleton
	}

	index, err := e.registry.GetIndex(e.cfg.Index.Kind, sk.Pos)
	if err != nil {
		return err
	}
	logging.Logger().Info("index built", "kind", e.cfg.Index.Kind, "points", index.Len())
	// the evolve phase and the settled fraction metric ask about the same
	// positions once per step
	memo := spatial.NewMemo(index)

	c, grid, err := cloud.NewGrid(sk.Box, e.cfg.Cloud.Step, e.cfg.Cloud.VelSigma, e.randSource)
	if err != nil {
		return err
	}

	env := Env{Skeleton: sk, Index: memo}
	phases, err := e.registry.GetScript(e.cfg.Script, env)
	if err != nil {
		return err
	}

	e.skeleton = sk
	e.env = env
	e.memo = memo
	e.cloud = c
	e.grid = grid
	e.phases = phases
	e.simulator = sim.New(sk.Box)
	for _, m := range e.registry.DefaultMetrics(env) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Skeleton() *skeleton.Skeleton { return e.skeleton }
func (e *Experiment) Cloud() *dynamo.Cloud         { return e.cloud }
func (e *Experiment) Grid() cloud.Grid             { return e.grid }
func (e *Experiment) Phases() []sim.Phase          { return e.phases }
func (e *Experiment) Simulator() *sim.Simulator    { return e.simulator }
func (e *Experiment) TotalSteps() int              { return sim.TotalSteps(e.phases...) }

// IndexStats reports nearest-point queries asked during runs and how many
// reused the previous search.
func (e *Experiment) IndexStats() (queries, hits int) {
	if e.memo == nil {
		return 0, 0
	}
	return e.memo.Stats()
}

// Record attaches a renderer and camera so every step becomes a GIF frame.
// The returned close function releases the renderer.
func (e *Experiment) Record() (*capture.Camera, func() error, error) {
	if e.simulator == nil {
		return nil, nil, fmt.Errorf("experiment not setup")
	}
	opts := e.cfg.Render
	r, err := render.New(e.skeleton.Box, opts)
	if err != nil {
		return nil, nil, err
	}
	bg, _ := render.ParseColor(opts.Background)
	fg, _ := render.ParseColor(opts.Foreground)
	cam, err := capture.NewCamera(opts.FPS, bg.Color(), fg.Color(), capture.DefaultLevels)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	e.simulator.AddObserver(capture.NewRecorder(r, cam))
	return cam, r.Close, nil
}

// Run executes the script over the experiment's cloud. The cloud is mutated
// in place.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	result, err := e.simulator.Run(ctx, e.cloud, e.phases...)
	queries, hits := e.IndexStats()
	logging.Logger().Debug("index queries", "asked", queries, "reused", hits)
	return result, err
}

// StorageRun describes the finished run for the store.
func (e *Experiment) StorageRun(result *sim.Result) storage.Run {
	return storage.Run{
		Name:           e.cfg.Name,
		Skeleton:       e.cfg.Skeleton.Path,
		Seed:           e.cfg.Cloud.Seed,
		Box:            e.skeleton.Box,
		GridX:          e.grid.NumX,
		GridY:          e.grid.NumY,
		SkeletonPoints: e.skeleton.Len(),
		FPS:            e.cfg.Render.FPS,
		Result:         result,
	}
}
