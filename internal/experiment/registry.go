package experiment

import (
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/cloudmorph/internal/config"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/integrators"
	"github.com/san-kum/cloudmorph/internal/metrics"
	"github.com/san-kum/cloudmorph/internal/sim"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/spatial"
	"gonum.org/v1/gonum/spatial/r2"
)

// Env is what phase constructors may depend on besides their own config.
type Env struct {
	Skeleton *skeleton.Skeleton
	Index    spatial.Index
}

type PhaseFactory func(p config.PhaseConfig, env Env) (sim.Phase, error)

type Registry struct {
	phases map[string]PhaseFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		phases: make(map[string]PhaseFactory),
	}

	r.phases[config.PhaseImplode] = func(p config.PhaseConfig, env Env) (sim.Phase, error) {
		box := env.Skeleton.Box
		im, err := integrators.NewImplode(box, integrators.ImplodeParams{
			Center:              p.CenterOr(box.Center()),
			Periods:             p.Periods,
			IterationsPerPeriod: p.IterationsPerPeriod,
			Profile:             integrators.Profile(p.Profile),
		})
		if err != nil {
			return nil, err
		}
		return im, nil
	}
	r.phases[config.PhaseExplode] = func(p config.PhaseConfig, env Env) (sim.Phase, error) {
		ex, err := integrators.NewExplode(env.Skeleton.Box, p.Dt, p.Steps)
		if err != nil {
			return nil, err
		}
		return ex, nil
	}
	r.phases[config.PhaseEvolve] = func(p config.PhaseConfig, env Env) (sim.Phase, error) {
		at, err := integrators.NewAttraction(env.Skeleton, env.Index, integrators.AttractionParams{
			Dt:        p.Dt,
			Steps:     p.Steps,
			Viscosity: p.Viscosity,
			Damping:   p.Damping,
		})
		if err != nil {
			return nil, err
		}
		return at, nil
	}

	return r
}

func (r *Registry) GetPhase(p config.PhaseConfig, env Env) (sim.Phase, error) {
	fn, ok := r.phases[p.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown phase: %s", p.Kind)
	}
	if env.Skeleton == nil {
		return nil, dynamo.ErrEmptySkeleton
	}
	return fn(p, env)
}

// GetScript builds every phase in order; the first failure names its
// position in the script.
func (r *Registry) GetScript(script []config.PhaseConfig, env Env) ([]sim.Phase, error) {
	phases := make([]sim.Phase, 0, len(script))
	for i, p := range script {
		ph, err := r.GetPhase(p, env)
		if err != nil {
			return nil, fmt.Errorf("script[%d] %s: %w", i, p.Kind, err)
		}
		phases = append(phases, ph)
	}
	return phases, nil
}

func (r *Registry) GetIndex(kind string, pts []r2.Vec) (spatial.Index, error) {
	return spatial.New(kind, pts)
}

func (r *Registry) ListPhases() []string  { return slices.Sorted(maps.Keys(r.phases)) }
func (r *Registry) ListIndexes() []string { return spatial.Kinds() }

func (r *Registry) DefaultMetrics(env Env) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewMeanSquaredVelocity(),
		metrics.NewSettledFraction(env.Index, env.Skeleton.Width),
		metrics.NewEnergyDecay(),
		metrics.NewPeakSpeed(),
	}
}
