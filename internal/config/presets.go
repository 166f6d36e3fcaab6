package config

import (
	"maps"
	"slices"
)

type Preset struct {
	Description string
	Script      func() []PhaseConfig
}

var Presets = map[string]Preset{
	"text": {
		Description: "implode half a period, explode, then settle onto the skeleton",
		Script:      TextScript,
	},
	"pulse": {
		Description: "one full spring-eased implode and release before settling",
		Script: func() []PhaseConfig {
			implode := DefaultPhase(PhaseImplode)
			implode.Periods = 1
			implode.Profile = "spring"
			evolve := DefaultPhase(PhaseEvolve)
			evolve.Steps = 80
			return []PhaseConfig{implode, evolve}
		},
	},
	"scatter": {
		Description: "long free flight from the grid, then a slow settle",
		Script: func() []PhaseConfig {
			explode := DefaultPhase(PhaseExplode)
			explode.Steps = 40
			evolve := DefaultPhase(PhaseEvolve)
			evolve.Steps = 100
			evolve.Damping = 0.96
			return []PhaseConfig{explode, evolve}
		},
	},
	"settle": {
		Description: "attraction only, straight from the grid",
		Script: func() []PhaseConfig {
			evolve := DefaultPhase(PhaseEvolve)
			evolve.Steps = 120
			evolve.Viscosity = 3
			return []PhaseConfig{evolve}
		},
	},
}

// TextScript is the three-act default: implode, explode, evolve.
func TextScript() []PhaseConfig {
	return []PhaseConfig{
		DefaultPhase(PhaseImplode),
		DefaultPhase(PhaseExplode),
		DefaultPhase(PhaseEvolve),
	}
}

// GetPreset returns the default configuration running the named script, or
// nil.
func GetPreset(name string) *Config {
	preset, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Script = preset.Script()
	return cfg
}

func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
