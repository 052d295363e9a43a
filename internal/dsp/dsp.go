package dsp

// Normalize scales samples in place so the largest magnitude equals
// peak, and returns the slice. A silent or empty buffer is returned
// unchanged.
func Normalize(samples []float32, peak float32) []float32 {
	var max float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return samples
	}
	scale := peak / max
	for i := range samples {
		samples[i] *= scale
	}
	return samples
}

// Resample converts samples from one rate to another by linear
// interpolation. It is intentionally simple: synthesis output is
// band-limited speech and the daemon only ever downshifts or upshifts
// between common speech rates.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
