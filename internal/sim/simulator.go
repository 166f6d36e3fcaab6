package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/logging"
)

// Simulator runs phases back to back over one cloud. It is single-threaded:
// each step completes, is checked and observed before the next begins.
type Simulator struct {
	box       dynamo.Box
	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

func New(box dynamo.Box) *Simulator {
	return &Simulator{
		box:       box,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// TotalSteps is the number of frames a run over phases will produce.
func TotalSteps(phases ...Phase) int {
	n := 0
	for _, p := range phases {
		n += p.Steps()
	}
	return n
}

// Run mutates c in place. Cancellation is honoured between steps only; on
// cancellation or failure the partial Result is returned with the error.
func (s *Simulator) Run(ctx context.Context, c *dynamo.Cloud, phases ...Phase) (*Result, error) {
	if err := s.box.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Phases:  make([]PhaseResult, 0, len(phases)),
		Metrics: make(map[string]float64),
		Traces:  make(map[string][]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	log := logging.Logger()
	for _, ph := range phases {
		name := ph.Name()
		if err := ph.Begin(c); err != nil {
			return result, &dynamo.SimulationError{Phase: name, Step: -1, Wrapped: err}
		}

		pr := PhaseResult{Name: name, Steps: ph.Steps()}
		log.Info("phase started", "phase", name, "steps", pr.Steps)
		start := time.Now()

		for j := 0; j < pr.Steps; j++ {
			select {
			case <-ctx.Done():
				result.Phases = append(result.Phases, pr)
				s.collect(result)
				return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
			default:
			}

			if err := s.step(ph, j, c); err != nil {
				result.Phases = append(result.Phases, pr)
				s.collect(result)
				return result, &dynamo.SimulationError{Phase: name, Step: j, Wrapped: err}
			}
			pr.Frames++
			result.Frames++
		}

		result.Phases = append(result.Phases, pr)
		log.Info("phase finished", "phase", name, "frames", pr.Frames, "elapsed", time.Since(start))
	}

	s.collect(result)
	return result, nil
}

func (s *Simulator) step(ph Phase, j int, c *dynamo.Cloud) error {
	if err := ph.Step(j, c); err != nil {
		return err
	}
	if !c.IsValid() {
		return dynamo.ErrInvalidState
	}
	if i := s.box.Escaped(c.Pos); i >= 0 {
		return fmt.Errorf("%w: particle %d at (%g, %g)", dynamo.ErrEscapedDomain, i, c.Pos[i].X, c.Pos[i].Y)
	}

	for _, m := range s.metrics {
		m.Observe(c)
	}
	for _, obs := range s.observers {
		if err := obs.OnStep(ph.Name(), j, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
		if tr, ok := m.(dynamo.Tracer); ok {
			result.Traces[m.Name()] = tr.History()
		}
	}
}
