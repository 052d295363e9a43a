// Package dsp implements the audio post-processing stage: approximate
// mel-spectrogram inversion, peak normalization, linear resampling, and
// the procedural synthetic signal used by the last-resort backend.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Griffin-Lim reconstruction parameters, matching the analysis settings
// of the VITS-style models this daemon serves.
const (
	fftSize          = 1024
	hopSize          = 256
	griffinLimRounds = 32

	melBreakHz = 700.0
	melScale   = 2595.0
)

// MelToAudio converts mel-scale spectral frames in the decibel domain
// into a time-domain signal. mel is indexed [band][frame]. The inverse
// mel projection is a transposed triangular filterbank, so the result
// is approximate and lossy; phases are estimated with Griffin-Lim
// starting from zero phase, which keeps the reconstruction
// deterministic. Output is peak-normalized to 1.0.
func MelToAudio(mel [][]float32, sampleRate int) []float32 {
	if len(mel) == 0 || len(mel[0]) == 0 {
		return nil
	}
	bands := len(mel)
	frames := len(mel[0])
	bins := fftSize/2 + 1

	// dB -> power.
	power := make([][]float64, bands)
	for b := range mel {
		power[b] = make([]float64, frames)
		for t, db := range mel[b] {
			power[b][t] = math.Pow(10, float64(db)/10)
		}
	}

	// Transposed filterbank projection onto linear frequency bins.
	fb := melFilterbank(bands, bins, sampleRate)
	mag := make([][]float64, frames)
	for t := 0; t < frames; t++ {
		mag[t] = make([]float64, bins)
		for k := 0; k < bins; k++ {
			var sum float64
			for b := 0; b < bands; b++ {
				sum += fb[b][k] * power[b][t]
			}
			mag[t][k] = math.Sqrt(math.Max(sum, 0))
		}
	}

	samples := griffinLim(mag)
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s)
	}
	return Normalize(out, 1.0)
}

// griffinLim estimates phases for the fixed magnitude spectrogram mag
// (indexed [frame][bin]) by alternating projection for a fixed number
// of rounds.
func griffinLim(mag [][]float64) []float64 {
	fft := fourier.NewFFT(fftSize)
	frames := len(mag)
	bins := fftSize/2 + 1

	spec := make([][]complex128, frames)
	for t := range spec {
		spec[t] = make([]complex128, bins)
		for k, m := range mag[t] {
			spec[t][k] = complex(m, 0) // zero initial phase
		}
	}

	signal := istft(fft, spec)
	for round := 0; round < griffinLimRounds; round++ {
		est := stft(fft, signal, frames)
		for t := range spec {
			for k := range spec[t] {
				phase := cmplxPhase(est[t][k])
				spec[t][k] = complex(mag[t][k]*math.Cos(phase), mag[t][k]*math.Sin(phase))
			}
		}
		signal = istft(fft, spec)
	}
	return signal
}

func cmplxPhase(c complex128) float64 {
	return math.Atan2(imag(c), real(c))
}

func stft(fft *fourier.FFT, signal []float64, frames int) [][]complex128 {
	window := hann(fftSize)
	out := make([][]complex128, frames)
	buf := make([]float64, fftSize)
	for t := 0; t < frames; t++ {
		start := t * hopSize
		for i := 0; i < fftSize; i++ {
			if idx := start + i; idx < len(signal) {
				buf[i] = signal[idx] * window[i]
			} else {
				buf[i] = 0
			}
		}
		out[t] = fft.Coefficients(nil, buf)
	}
	return out
}

func istft(fft *fourier.FFT, spec [][]complex128) []float64 {
	window := hann(fftSize)
	length := (len(spec)-1)*hopSize + fftSize
	signal := make([]float64, length)
	norm := make([]float64, length)
	for t, frame := range spec {
		// Sequence is unnormalized: scale by the transform length.
		seq := fft.Sequence(nil, frame)
		start := t * hopSize
		for i := 0; i < fftSize; i++ {
			signal[start+i] += seq[i] / fftSize * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}
	for i := range signal {
		if norm[i] > 1e-8 {
			signal[i] /= norm[i]
		}
	}
	return signal
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// melFilterbank builds triangular filters on the HTK mel scale and
// returns them indexed [band][bin], each band normalized to unit sum so
// the transposed projection keeps energy bounded.
func melFilterbank(bands, bins, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 { return melScale * math.Log10(1+hz/melBreakHz) }
	melToHz := func(mel float64) float64 { return melBreakHz * (math.Pow(10, mel/melScale) - 1) }

	maxHz := float64(sampleRate) / 2
	points := make([]float64, bands+2)
	maxMel := hzToMel(maxHz)
	for i := range points {
		points[i] = melToHz(maxMel * float64(i) / float64(bands+1))
	}

	binHz := maxHz / float64(bins-1)
	fb := make([][]float64, bands)
	for b := 0; b < bands; b++ {
		fb[b] = make([]float64, bins)
		lo, mid, hi := points[b], points[b+1], points[b+2]
		var sum float64
		for k := 0; k < bins; k++ {
			hz := float64(k) * binHz
			var w float64
			switch {
			case hz <= lo || hz >= hi:
				w = 0
			case hz <= mid:
				w = (hz - lo) / (mid - lo)
			default:
				w = (hi - hz) / (hi - mid)
			}
			fb[b][k] = w
			sum += w
		}
		if sum > 0 {
			for k := range fb[b] {
				fb[b][k] /= sum
			}
		}
	}
	return fb
}
