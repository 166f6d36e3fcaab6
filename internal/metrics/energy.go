package metrics

import (
	"math"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// MeanSquaredVelocity samples <|v|²> after every step. Value is the mean over
// the run; History keeps one sample per step.
type MeanSquaredVelocity struct {
	name    string
	history []float64
}

func NewMeanSquaredVelocity() *MeanSquaredVelocity {
	return &MeanSquaredVelocity{name: "mean_squared_velocity"}
}

func (m *MeanSquaredVelocity) Name() string { return m.name }

func (m *MeanSquaredVelocity) Observe(c *dynamo.Cloud) {
	m.history = append(m.history, c.MeanSquaredVelocity())
}

func (m *MeanSquaredVelocity) Value() float64 {
	if len(m.history) == 0 {
		return 0
	}
	return stat.Mean(m.history, nil)
}

// Last returns the most recent sample.
func (m *MeanSquaredVelocity) Last() float64 {
	if len(m.history) == 0 {
		return 0
	}
	return m.history[len(m.history)-1]
}

func (m *MeanSquaredVelocity) History() []float64 { return m.history }
func (m *MeanSquaredVelocity) Reset()             { m.history = nil }

// EnergyDecay reports the final kinetic energy as a fraction of the first
// observed value. Under damping it should fall towards zero.
type EnergyDecay struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewEnergyDecay() *EnergyDecay {
	return &EnergyDecay{name: "energy_decay"}
}

func (e *EnergyDecay) Name() string { return e.name }

func (e *EnergyDecay) Observe(c *dynamo.Cloud) {
	ke := c.MeanSquaredVelocity()
	if e.samples == 0 {
		e.initial = ke
	}
	e.current = ke
	e.samples++
}

func (e *EnergyDecay) Value() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return e.current / e.initial
}

func (e *EnergyDecay) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}

// PeakSpeed is the largest |v| seen by any particle during the run.
type PeakSpeed struct {
	name string
	max  float64
}

func NewPeakSpeed() *PeakSpeed {
	return &PeakSpeed{name: "peak_speed"}
}

func (p *PeakSpeed) Name() string { return p.name }

func (p *PeakSpeed) Observe(c *dynamo.Cloud) {
	for _, v := range c.Vel {
		p.max = math.Max(p.max, math.Hypot(v.X, v.Y))
	}
}

func (p *PeakSpeed) Value() float64 { return p.max }
func (p *PeakSpeed) Reset()         { p.max = 0 }
