// Package voice loads per-voice model descriptors from piper-style JSON
// sidecar files. Loading is deliberately forgiving: a missing field is
// replaced by its default, and only a missing file or unreadable JSON is
// an error.
package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrConfigNotFound is returned when the JSON sidecar does not exist.
	ErrConfigNotFound = errors.New("voice config not found")
	// ErrConfigMalformed is returned when the sidecar is not valid JSON.
	ErrConfigMalformed = errors.New("voice config malformed")
	// ErrModelNotFound is returned when the referenced model artifact is missing.
	ErrModelNotFound = errors.New("voice model artifact not found")
)

// Defaults applied when the sidecar omits a field.
const (
	DefaultSampleRate  = 22050
	DefaultLanguage    = "pt"
	DefaultNoiseScale  = 0.667
	DefaultLengthScale = 1.0
	DefaultNoiseW      = 0.8
)

// Scales holds the three inference scale parameters a VITS-style model
// expects alongside the phoneme sequence.
type Scales struct {
	Noise  float32
	Length float32
	NoiseW float32
}

// Descriptor is the immutable description of a loaded voice: where its
// artifacts live, how text maps to phoneme ids, and how its audio is shaped.
type Descriptor struct {
	ModelPath  string
	ConfigPath string

	PhonemeIDs map[string]int64
	SampleRate int
	Language   string
	Scales     Scales

	maxID int64
}

// sidecar mirrors the subset of the piper voice config we consume.
// Unknown fields are ignored.
type sidecar struct {
	PhonemeIDMap map[string][]int64 `json:"phoneme_id_map"`
	Audio        struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	Inference struct {
		NoiseScale  *float32 `json:"noise_scale"`
		LengthScale *float32 `json:"length_scale"`
		NoiseW      *float32 `json:"noise_w"`
	} `json:"inference"`
	Language json.RawMessage `json:"language"`
}

// Load reads the sidecar at configPath and returns a descriptor for the
// model at modelPath. The model file must exist; everything inside the
// sidecar degrades to defaults.
func Load(modelPath, configPath string) (*Descriptor, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: empty model path", ErrModelNotFound)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("read voice config: %w", err)
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}

	d := &Descriptor{
		ModelPath:  modelPath,
		ConfigPath: configPath,
		SampleRate: DefaultSampleRate,
		Language:   DefaultLanguage,
		Scales: Scales{
			Noise:  DefaultNoiseScale,
			Length: DefaultLengthScale,
			NoiseW: DefaultNoiseW,
		},
	}

	if sc.Audio.SampleRate > 0 {
		d.SampleRate = sc.Audio.SampleRate
	}
	if lang := parseLanguage(sc.Language); lang != "" {
		d.Language = lang
	}
	if sc.Inference.NoiseScale != nil {
		d.Scales.Noise = *sc.Inference.NoiseScale
	}
	if sc.Inference.LengthScale != nil {
		d.Scales.Length = *sc.Inference.LengthScale
	}
	if sc.Inference.NoiseW != nil {
		d.Scales.NoiseW = *sc.Inference.NoiseW
	}

	d.setPhonemeIDs(flattenIDMap(sc.PhonemeIDMap))

	return d, nil
}

// New builds a descriptor directly from its parts, substituting the
// default phoneme table when ids is empty. Intended for callers that do
// not load from disk (tests, synthetic voices).
func New(ids map[string]int64, sampleRate int, language string, scales Scales) *Descriptor {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if language == "" {
		language = DefaultLanguage
	}
	d := &Descriptor{
		SampleRate: sampleRate,
		Language:   language,
		Scales:     scales,
	}
	d.setPhonemeIDs(ids)
	return d
}

func (d *Descriptor) setPhonemeIDs(ids map[string]int64) {
	if len(ids) == 0 {
		ids = DefaultPhonemeIDs()
	}
	d.PhonemeIDs = ids
	d.maxID = 0
	for _, id := range ids {
		if id > d.maxID {
			d.maxID = id
		}
	}
}

// parseLanguage accepts both the bare string form ("pt") and piper's
// object form ({"code": "pt_BR", ...}).
func parseLanguage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Code
	}
	return ""
}

// flattenIDMap keeps the first id of each symbol's id list, dropping
// symbols with empty lists or negative ids.
func flattenIDMap(m map[string][]int64) map[string]int64 {
	if len(m) == 0 {
		return nil
	}
	flat := make(map[string]int64, len(m))
	for sym, ids := range m {
		if len(ids) == 0 || ids[0] < 0 {
			continue
		}
		flat[sym] = ids[0]
	}
	return flat
}

// MaxID reports the largest phoneme id in the table. The table is never
// empty after Load, so MaxID is always well-defined.
func (d *Descriptor) MaxID() int64 { return d.maxID }

// ID returns the id for a symbol and whether it is present.
func (d *Descriptor) ID(symbol string) (int64, bool) {
	id, ok := d.PhonemeIDs[symbol]
	return id, ok
}
