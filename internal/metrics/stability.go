package metrics

import (
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/spatial"
)

// SettledFraction is the share of particles inside the influence radius of
// their nearest skeleton point. Value is the latest sample.
type SettledFraction struct {
	name    string
	index   spatial.Index
	width   []float64
	history []float64
}

func NewSettledFraction(index spatial.Index, width []float64) *SettledFraction {
	return &SettledFraction{
		name:  "settled_fraction",
		index: index,
		width: width,
	}
}

func (s *SettledFraction) Name() string { return s.name }

func (s *SettledFraction) Observe(c *dynamo.Cloud) {
	if c.Len() == 0 {
		return
	}
	dist, idx := s.index.Query(c.Pos)
	inside := 0
	for i, d := range dist {
		if d < s.width[idx[i]] {
			inside++
		}
	}
	s.history = append(s.history, float64(inside)/float64(c.Len()))
}

func (s *SettledFraction) Value() float64 {
	if len(s.history) == 0 {
		return 0
	}
	return s.history[len(s.history)-1]
}

func (s *SettledFraction) History() []float64 { return s.history }
func (s *SettledFraction) Reset()             { s.history = nil }
