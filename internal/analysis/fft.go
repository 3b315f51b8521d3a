package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT is the discrete Fourier transform of a real signal.
func FFT(data []float64) []complex128 {
	return fft.FFTReal(data)
}

// PadPow2 zero-pads data to the next power of two.
func PadPow2(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, data)
	return padded
}

// PowerSpectrum returns the magnitude of the first half of the spectrum of
// data, zero-padded to a power of two.
func PowerSpectrum(data []float64) []float64 {
	spectrum := FFT(PadPow2(data))
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantBin returns the index of the largest non-DC bin, or 0 if there is none.
func DominantBin(ps []float64) int {
	best, idx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, idx = ps[i], i
		}
	}
	return idx
}
