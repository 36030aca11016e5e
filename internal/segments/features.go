package segments

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Band edges in Hz for the low/mid power comparison. Ship noise is
// broadband but concentrates below ~200 Hz; the mid band is the reference.
const (
	lowBandMinHz = 10
	lowBandMaxHz = 200
	midBandMaxHz = 2000

	// backgroundEntropy anchors the ship-noise index: the spectral entropy
	// of typical ambient recordings at these stations.
	backgroundEntropy = 16.0

	epsilon = 1e-9
)

// Features are the loudness and spectral measurements of one clip.
type Features struct {
	RMS             float64
	MeanDB          float64 // RMS amplitude in dBFS
	MaxDB           float64 // peak amplitude in dBFS
	LowFreqRatio    float64 // low-band power / mid-band power
	SpectralEntropy float64 // information entropy of the normalized spectrum, bits
	DeltaL          float64 // decibel ratio between low and mid bands
	ShipNoiseIndex  float64 // 0.7*ratio + 0.3*(backgroundEntropy - entropy)
}

// Measure computes all features from a normalized mono waveform. Degenerate
// input (empty or silent) yields NaN spectral features, which classify as
// no-confidence downstream.
func Measure(samples []float64, sampleRate int) Features {
	f := Features{
		RMS:             math.NaN(),
		MeanDB:          math.NaN(),
		MaxDB:           math.NaN(),
		LowFreqRatio:    math.NaN(),
		SpectralEntropy: math.NaN(),
		DeltaL:          math.NaN(),
		ShipNoiseIndex:  math.NaN(),
	}
	if len(samples) == 0 || sampleRate <= 0 {
		return f
	}

	var sumSq, peak float64
	for _, v := range samples {
		sumSq += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	f.RMS = math.Sqrt(sumSq / float64(len(samples)))
	f.MeanDB = 20 * math.Log10(f.RMS+epsilon)
	f.MaxDB = 20 * math.Log10(peak+epsilon)

	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)

	var total, low, mid float64
	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		p := real(c)*real(c) + imag(c)*imag(c)
		power[i] = p
		total += p

		freq := fft.Freq(i) * float64(sampleRate)
		switch {
		case freq >= lowBandMinHz && freq < lowBandMaxHz:
			low += p
		case freq >= lowBandMaxHz && freq < midBandMaxHz:
			mid += p
		}
	}
	if total <= 0 {
		return f
	}

	f.LowFreqRatio = low / (mid + epsilon)
	f.DeltaL = 10 * math.Log10((low+epsilon)/(mid+epsilon))

	var entropy float64
	for _, p := range power {
		q := p / total
		entropy -= q * math.Log2(q+1e-12)
	}
	f.SpectralEntropy = entropy
	f.ShipNoiseIndex = 0.7*f.LowFreqRatio + 0.3*(backgroundEntropy-f.SpectralEntropy)
	return f
}
