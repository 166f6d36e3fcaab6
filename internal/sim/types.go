package sim

import "github.com/san-kum/cloudmorph/internal/dynamo"

// Phase is one act of an animation. Begin is called once with the cloud as
// left by the previous phase; Step(j) is then called for j = 0..Steps()-1 and
// must leave positions wrapped into the domain.
type Phase interface {
	Name() string
	Steps() int
	Begin(c *dynamo.Cloud) error
	Step(j int, c *dynamo.Cloud) error
}

type PhaseResult struct {
	Name   string `json:"name"`
	Steps  int    `json:"steps"`
	Frames int    `json:"frames"`
}

type Result struct {
	Frames  int
	Phases  []PhaseResult
	Metrics map[string]float64
	Traces  map[string][]float64
}
