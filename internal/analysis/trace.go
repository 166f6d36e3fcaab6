package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SettleStep returns the first step from which trace stays at or above
// threshold, or -1.
func SettleStep(trace []float64, threshold float64) int {
	settled := -1
	for i, v := range trace {
		switch {
		case v < threshold:
			settled = -1
		case settled < 0:
			settled = i
		}
	}
	return settled
}

// DecayRate fits log(trace) = a - rate*step over the strictly positive
// samples. A damped cloud has rate > 0; per-step damping γ shows up as
// roughly -2·ln γ for the squared velocity.
func DecayRate(trace []float64) (rate float64, ok bool) {
	xs := make([]float64, 0, len(trace))
	ys := make([]float64, 0, len(trace))
	for i, v := range trace {
		if v > 0 && !math.IsInf(v, 0) {
			xs = append(xs, float64(i))
			ys = append(ys, math.Log(v))
		}
	}
	if len(xs) < 2 {
		return 0, false
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return -beta, true
}

// Summary is the digest printed for a stored run.
type Summary struct {
	Steps          int
	SettleStep     int
	FinalSettled   float64
	PeakMSV        float64
	DecayRate      float64
	HasDecay       bool
	Period         float64
	HasOscillation bool
}

// Summarize digests the mean squared velocity and settled fraction traces.
// threshold is the settled fraction that counts as settled.
func Summarize(msv, settled []float64, threshold float64) Summary {
	s := Summary{Steps: max(len(msv), len(settled)), SettleStep: SettleStep(settled, threshold)}
	if len(settled) > 0 {
		s.FinalSettled = settled[len(settled)-1]
	}
	if len(msv) > 0 {
		s.PeakMSV = floats.Max(msv)
	}
	s.DecayRate, s.HasDecay = DecayRate(msv)
	s.Period, s.HasOscillation = DominantPeriod(msv)
	return s
}
