package config

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/san-kum/cloudmorph/internal/cloud"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/integrators"
	"github.com/san-kum/cloudmorph/internal/render"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/spatial"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	PhaseImplode = "implode"
	PhaseExplode = "explode"
	PhaseEvolve  = "evolve"

	DefaultDataDir = ".cloudmorph"
	DefaultSeed    = 1
)

type Config struct {
	Name     string         `yaml:"name"`
	DataDir  string         `yaml:"data_dir"`
	Skeleton SkeletonConfig `yaml:"skeleton"`
	Cloud    CloudConfig    `yaml:"cloud"`
	Render   render.Options `yaml:"render"`
	Index    IndexConfig    `yaml:"index"`
	Script   []PhaseConfig  `yaml:"script"`
}

type SkeletonConfig struct {
	Path             string `yaml:"path"`
	Comma            string `yaml:"comma"`
	Decimal          string `yaml:"decimal"`
	Header           bool   `yaml:"header"`
	skeleton.Options `yaml:",inline"`
}

type CloudConfig struct {
	Step     float64 `yaml:"step"`
	VelSigma float64 `yaml:"vel_sigma"`
	Seed     int64   `yaml:"seed"`
}

type IndexConfig struct {
	Kind string `yaml:"kind"`
}

// PhaseConfig is one act of the script. Fields that do not apply to Kind are
// ignored. Center is given in domain coordinates; when empty the domain
// center is used.
type PhaseConfig struct {
	Kind                string    `yaml:"kind"`
	Steps               int       `yaml:"steps"`
	Dt                  float64   `yaml:"dt"`
	Periods             float64   `yaml:"periods"`
	IterationsPerPeriod int       `yaml:"iterations_per_period"`
	Center              []float64 `yaml:"center,omitempty"`
	Profile             string    `yaml:"profile,omitempty"`
	Viscosity           float64   `yaml:"viscosity"`
	Damping             float64   `yaml:"damping"`
}

// DefaultPhase returns the defaults for kind. Unknown kinds come back with
// only Kind set so Validate can name them.
func DefaultPhase(kind string) PhaseConfig {
	switch kind {
	case PhaseImplode:
		return PhaseConfig{
			Kind:                kind,
			Periods:             integrators.DefaultImplodePeriods,
			IterationsPerPeriod: integrators.DefaultImplodeIterations,
			Profile:             string(integrators.ProfileLinear),
		}
	case PhaseExplode:
		return PhaseConfig{
			Kind:  kind,
			Steps: integrators.DefaultExplodeSteps,
			Dt:    integrators.DefaultExplodeDt,
		}
	case PhaseEvolve:
		p := integrators.DefaultAttractionParams()
		return PhaseConfig{
			Kind:      kind,
			Steps:     p.Steps,
			Dt:        p.Dt,
			Viscosity: p.Viscosity,
			Damping:   p.Damping,
		}
	default:
		return PhaseConfig{Kind: kind}
	}
}

// UnmarshalYAML fills kind defaults before decoding, so a phase only needs to
// list the values it changes.
func (p *PhaseConfig) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	*p = DefaultPhase(head.Kind)

	type plain PhaseConfig
	return node.Decode((*plain)(p))
}

// CenterOr returns the configured center or def.
func (p PhaseConfig) CenterOr(def r2.Vec) r2.Vec {
	if len(p.Center) != 2 {
		return def
	}
	return r2.Vec{X: p.Center[0], Y: p.Center[1]}
}

func (p PhaseConfig) Validate() error {
	switch p.Kind {
	case PhaseImplode:
		if p.Periods < 0 || p.IterationsPerPeriod <= 0 {
			return fmt.Errorf("%w: implode periods %g, iterations per period %d",
				dynamo.ErrParameterBounds, p.Periods, p.IterationsPerPeriod)
		}
		if len(p.Center) != 0 && len(p.Center) != 2 {
			return fmt.Errorf("%w: implode center needs 2 coordinates, got %d", dynamo.ErrParameterBounds, len(p.Center))
		}
		switch integrators.Profile(p.Profile) {
		case "", integrators.ProfileLinear, integrators.ProfileSpring:
		default:
			return fmt.Errorf("%w: unknown implode profile %q", dynamo.ErrParameterBounds, p.Profile)
		}
	case PhaseExplode, PhaseEvolve:
		if !(p.Dt > 0) {
			return fmt.Errorf("%w: %s dt %g", dynamo.ErrInvalidTimestep, p.Kind, p.Dt)
		}
		if p.Steps < 0 {
			return fmt.Errorf("%w: %s steps %d", dynamo.ErrParameterBounds, p.Kind, p.Steps)
		}
		if p.Kind == PhaseEvolve && (p.Viscosity < 0 || p.Damping < 0 || p.Damping > 1) {
			return fmt.Errorf("%w: viscosity %g, damping %g", dynamo.ErrParameterBounds, p.Viscosity, p.Damping)
		}
	default:
		return fmt.Errorf("%w: unknown phase kind %q", dynamo.ErrParameterBounds, p.Kind)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Name:    "text",
		DataDir: DefaultDataDir,
		Skeleton: SkeletonConfig{
			Comma:   ";",
			Decimal: ",",
			Header:  true,
			Options: skeleton.DefaultOptions(),
		},
		Cloud: CloudConfig{
			Step:     cloud.DefaultStep,
			VelSigma: cloud.DefaultVelSigma,
			Seed:     DefaultSeed,
		},
		Render: render.DefaultOptions(),
		Index:  IndexConfig{Kind: spatial.KindKDTree},
		Script: TextScript(),
	}
}

// Format converts the textual separators to a skeleton.Format.
func (s SkeletonConfig) Format() (skeleton.Format, error) {
	comma, err := singleRune("comma", s.Comma)
	if err != nil {
		return skeleton.Format{}, err
	}
	decimal, err := singleRune("decimal", s.Decimal)
	if err != nil {
		return skeleton.Format{}, err
	}
	return skeleton.Format{Comma: comma, Decimal: decimal, Header: s.Header}, nil
}

func singleRune(field, s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: skeleton %s must be a single character, got %q", dynamo.ErrParameterBounds, field, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// Validate checks everything that can be checked without reading the
// skeleton file.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Skeleton.Format(); err != nil {
		errs = append(errs, err)
	}
	if !(c.Skeleton.VertFactor > 0) {
		errs = append(errs, fmt.Errorf("%w: vert_factor %g", dynamo.ErrParameterBounds, c.Skeleton.VertFactor))
	}
	if !(c.Skeleton.BaseWidth*c.Skeleton.VertFactor > 0) {
		errs = append(errs, fmt.Errorf("%w: base_width %g", dynamo.ErrNonPositiveRadius, c.Skeleton.BaseWidth))
	}
	if !(c.Skeleton.Height > 0) {
		errs = append(errs, fmt.Errorf("%w: height %g", dynamo.ErrInvalidBox, c.Skeleton.Height))
	}
	if !(c.Cloud.Step > 0) {
		errs = append(errs, fmt.Errorf("%w: cloud step %g", dynamo.ErrInvalidStep, c.Cloud.Step))
	}
	if c.Cloud.VelSigma < 0 {
		errs = append(errs, fmt.Errorf("%w: vel_sigma %g", dynamo.ErrParameterBounds, c.Cloud.VelSigma))
	}
	if err := c.Render.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Index.Kind {
	case spatial.KindKDTree, spatial.KindBrute:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown index kind %q", dynamo.ErrParameterBounds, c.Index.Kind))
	}
	for i, p := range c.Script {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("script[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Script = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Script == nil {
		cfg.Script = TextScript()
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
