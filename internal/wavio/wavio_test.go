package wavio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	const rate = 22050
	const seconds = 0.5
	n := int(seconds * rate)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/rate))
	}

	path := filepath.Join(t.TempDir(), "nested", "out", "tone.wav")
	if err := Write(path, samples, rate); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, gotRate, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotRate != rate {
		t.Fatalf("expected sample rate %d, got %d", rate, gotRate)
	}
	if len(got) != n {
		t.Fatalf("expected %d samples, got %d", n, len(got))
	}
	for i := 0; i < n; i += 1000 {
		if math.Abs(float64(got[i]-samples[i])) > 1.0/32000 {
			t.Fatalf("sample %d drifted: %v vs %v", i, got[i], samples[i])
		}
	}
}

func TestWriteClampsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := Write(path, []float32{2.0, -2.0, 0}, 22050); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, s := range got {
		if math.Abs(float64(s)) > 1.0+1e-3 {
			t.Fatalf("sample %d not clamped: %v", i, s)
		}
	}
}

func TestWriteRejectsBadRate(t *testing.T) {
	if err := Write(filepath.Join(t.TempDir(), "bad.wav"), []float32{0}, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}
