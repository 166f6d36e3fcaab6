package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude of the real FFT of data with its mean
// removed, indexed by frequency bin 0..n/2.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := stat.Mean(data, nil)
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	coeff := fourier.NewFFT(len(data)).Coefficients(nil, centered)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod returns the period, in steps, of the strongest non-constant
// component of data. It needs at least two full cycles in the window: when
// the strongest bin is the first one the series is trending, not oscillating,
// and ok is false. ok is also false for flat or too short input.
func DominantPeriod(data []float64) (period float64, ok bool) {
	ps := PowerSpectrum(data)
	best, bin := 0.0, 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > best {
			best, bin = ps[k], k
		}
	}
	if bin < 2 || best < 1e-12 {
		return 0, false
	}
	return float64(len(data)) / float64(bin), true
}
