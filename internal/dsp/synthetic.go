package dsp

import (
	"math"
	"strings"
	"unicode"
)

// Synthetic signal parameters. Frequencies start at A3 and step up by
// ten hertz per alphabet position; the envelope is a short linear
// attack and a longer linear release.
const (
	syntheticSecondsPerChar = 0.1
	syntheticBaseHz         = 220.0
	syntheticHzPerLetter    = 10.0
	syntheticAttackSeconds  = 0.01
	syntheticReleaseSeconds = 0.1
	syntheticPeak           = 0.8
)

// Synthetic generates a procedural waveform from text statistics alone:
// one decaying sinusoid per alphabetic character, frequency derived
// from the character's position in the alphabet. The output depends
// only on (text, sampleRate), so repeated calls are bit-identical, and
// it is never empty even for empty text.
func Synthetic(text string, sampleRate int) []float32 {
	duration := float64(len([]rune(text))) * syntheticSecondsPerChar
	n := int(duration * float64(sampleRate))
	if n < sampleRate/10 {
		n = sampleRate / 10 // at least 100 ms, empty input included
	}

	acc := make([]float64, n)
	step := 1.0 / float64(sampleRate)
	for i, r := range []rune(strings.ToLower(text)) {
		if !unicode.IsLetter(r) || r < 'a' || r > 'z' {
			continue
		}
		freq := syntheticBaseHz + float64(r-'a')*syntheticHzPerLetter
		amp := 0.3 / float64(i+1)
		omega := 2 * math.Pi * freq
		for s := 0; s < n; s++ {
			acc[s] += amp * math.Sin(omega*float64(s)*step)
		}
	}

	applyEnvelope(acc, sampleRate)

	out := make([]float32, n)
	for i, v := range acc {
		out[i] = float32(v)
	}
	return Normalize(out, syntheticPeak)
}

// applyEnvelope shapes the signal with a linear attack and release so
// the tone does not click at either end.
func applyEnvelope(samples []float64, sampleRate int) {
	attack := int(syntheticAttackSeconds * float64(sampleRate))
	if attack > 0 && len(samples) > attack {
		for i := 0; i < attack; i++ {
			samples[i] *= float64(i) / float64(attack)
		}
	}
	release := int(syntheticReleaseSeconds * float64(sampleRate))
	if release > 0 && len(samples) > release {
		start := len(samples) - release
		for i := start; i < len(samples); i++ {
			samples[i] *= float64(len(samples)-1-i) / float64(release)
		}
	}
}
