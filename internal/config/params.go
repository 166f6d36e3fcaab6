package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/cloudmorph/internal/dynamo"
)

// Tunable parameter names. Phase parameters apply to every phase of the
// matching kind in the script.
const (
	ParamStep           = "step"
	ParamVelSigma       = "vel_sigma"
	ParamViscosity      = "viscosity"
	ParamDamping        = "damping"
	ParamEvolveDt       = "evolve_dt"
	ParamEvolveSteps    = "evolve_steps"
	ParamExplodeDt      = "explode_dt"
	ParamExplodeSteps   = "explode_steps"
	ParamImplodePeriods = "implode_periods"
)

// GetParams reports the tunable values. Phase values come from the first
// phase of each kind; kinds missing from the script are left out.
func (c *Config) GetParams() map[string]float64 {
	params := map[string]float64{
		ParamStep:     c.Cloud.Step,
		ParamVelSigma: c.Cloud.VelSigma,
	}
	seen := make(map[string]bool)
	for _, p := range c.Script {
		if seen[p.Kind] {
			continue
		}
		seen[p.Kind] = true
		switch p.Kind {
		case PhaseEvolve:
			params[ParamViscosity] = p.Viscosity
			params[ParamDamping] = p.Damping
			params[ParamEvolveDt] = p.Dt
			params[ParamEvolveSteps] = float64(p.Steps)
		case PhaseExplode:
			params[ParamExplodeDt] = p.Dt
			params[ParamExplodeSteps] = float64(p.Steps)
		case PhaseImplode:
			params[ParamImplodePeriods] = p.Periods
		}
	}
	return params
}

// ParamNames lists every name SetParam accepts.
func ParamNames() []string {
	return slices.Sorted(maps.Keys(paramKinds))
}

var paramKinds = map[string]string{
	ParamStep:           "",
	ParamVelSigma:       "",
	ParamViscosity:      PhaseEvolve,
	ParamDamping:        PhaseEvolve,
	ParamEvolveDt:       PhaseEvolve,
	ParamEvolveSteps:    PhaseEvolve,
	ParamExplodeDt:      PhaseExplode,
	ParamExplodeSteps:   PhaseExplode,
	ParamImplodePeriods: PhaseImplode,
}

// SetParam sets a tunable value. It does not validate the result; call
// Validate once all parameters are set.
func (c *Config) SetParam(name string, value float64) error {
	kind, ok := paramKinds[name]
	if !ok {
		return fmt.Errorf("%w: unknown param %q", dynamo.ErrParameterBounds, name)
	}
	switch name {
	case ParamStep:
		c.Cloud.Step = value
		return nil
	case ParamVelSigma:
		c.Cloud.VelSigma = value
		return nil
	}

	found := false
	for i := range c.Script {
		p := &c.Script[i]
		if p.Kind != kind {
			continue
		}
		found = true
		switch name {
		case ParamViscosity:
			p.Viscosity = value
		case ParamDamping:
			p.Damping = value
		case ParamEvolveDt, ParamExplodeDt:
			p.Dt = value
		case ParamEvolveSteps, ParamExplodeSteps:
			p.Steps = int(value)
		case ParamImplodePeriods:
			p.Periods = value
		}
	}
	if !found {
		return fmt.Errorf("%w: param %q needs a %s phase in the script", dynamo.ErrParameterBounds, name, kind)
	}
	return nil
}

// Clone returns a deep copy, so a sweep can change one run's script without
// touching the others.
func (c *Config) Clone() *Config {
	out := *c
	out.Script = make([]PhaseConfig, len(c.Script))
	for i, p := range c.Script {
		p.Center = slices.Clone(p.Center)
		out.Script[i] = p
	}
	return &out
}
