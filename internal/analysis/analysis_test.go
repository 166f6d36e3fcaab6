package analysis

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func TestDominantPeriod(t *testing.T) {
	g := NewWithT(t)

	data := make([]float64, 64)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*float64(i)/8)
	}
	period, ok := DominantPeriod(data)
	g.Expect(ok).To(BeTrue())
	g.Expect(period).To(BeNumerically("~", 8, 1e-9))
}

func TestDominantPeriodFlat(t *testing.T) {
	tests := []struct {
		name string
		data []float64
	}{
		{"empty", nil},
		{"single", []float64{1}},
		{"constant", []float64{2, 2, 2, 2, 2, 2}},
		{"decay", decay(0.93, 60)},
		{"ramp", []float64{5, 4, 3, 2, 1, 0, -1, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := DominantPeriod(tt.data); ok {
				t.Errorf("expected no period for %v", tt.data)
			}
		})
	}
}

func decay(gamma float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pow(gamma*gamma, float64(i))
	}
	return out
}

func TestDominantPeriodDampedOscillation(t *testing.T) {
	g := NewWithT(t)

	data := make([]float64, 120)
	for i := range data {
		data[i] = 2 + math.Exp(-float64(i)/200)*math.Cos(2*math.Pi*float64(i)/10)
	}
	period, ok := DominantPeriod(data)
	g.Expect(ok).To(BeTrue())
	g.Expect(period).To(BeNumerically("~", 10, 1e-9))
}

func TestPowerSpectrumLength(t *testing.T) {
	ps := PowerSpectrum(make([]float64, 10))
	if len(ps) != 6 {
		t.Fatalf("len = %d, want 6", len(ps))
	}
}

func TestSettleStep(t *testing.T) {
	tests := []struct {
		name  string
		trace []float64
		want  int
	}{
		{"never", []float64{0.1, 0.2, 0.3}, -1},
		{"from start", []float64{0.9, 0.95, 1}, 0},
		{"dips back", []float64{0.9, 0.5, 0.85, 0.9}, 2},
		{"falls at end", []float64{0.9, 0.9, 0.1}, -1},
		{"empty", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SettleStep(tt.trace, 0.8); got != tt.want {
				t.Errorf("SettleStep = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecayRate(t *testing.T) {
	g := NewWithT(t)

	gamma := 0.93
	trace := make([]float64, 40)
	for i := range trace {
		trace[i] = 5 * math.Pow(gamma*gamma, float64(i))
	}
	rate, ok := DecayRate(trace)
	g.Expect(ok).To(BeTrue())
	g.Expect(rate).To(BeNumerically("~", -2*math.Log(gamma), 1e-9))

	_, ok = DecayRate([]float64{0, 0, 1})
	g.Expect(ok).To(BeFalse())
}

func TestSummarize(t *testing.T) {
	g := NewWithT(t)

	msv := []float64{4, 2, 1, 0.5}
	settled := []float64{0, 0.5, 0.9, 1}
	s := Summarize(msv, settled, 0.8)
	g.Expect(s.Steps).To(Equal(4))
	g.Expect(s.SettleStep).To(Equal(2))
	g.Expect(s.FinalSettled).To(Equal(1.0))
	g.Expect(s.PeakMSV).To(Equal(4.0))
	g.Expect(s.HasDecay).To(BeTrue())
	g.Expect(s.DecayRate).To(BeNumerically("~", math.Ln2, 1e-9))
	g.Expect(s.HasOscillation).To(BeFalse())

	s = Summarize(decay(0.93, 60), nil, 0.8)
	g.Expect(s.HasOscillation).To(BeFalse())
	g.Expect(s.HasDecay).To(BeTrue())
}
