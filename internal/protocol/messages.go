package protocol

import "time"

// SynthRequest asks the daemon to synthesize speech for a piece of text.
type SynthRequest struct {
	SessionID  string `json:"session_id"`
	Text       string `json:"text"`
	SampleRate int    `json:"sample_rate,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
}

// SynthResult carries the synthesized audio back on the bus. PCM is
// 16-bit little-endian mono at SampleRate. Provenance names the backend
// tier that produced the audio so callers can tell real inference from
// the synthetic fallback.
type SynthResult struct {
	SessionID  string    `json:"session_id"`
	Provenance string    `json:"provenance"`
	SampleRate int       `json:"sample_rate"`
	Samples    int       `json:"samples"`
	DurationMS int64     `json:"duration_ms"`
	PCM        []byte    `json:"pcm,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	SubjectSynthRequest = "tts.synth.request"
	SubjectSynthResult  = "tts.synth.result"
)
