package voice

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeVoice(t *testing.T, config string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "voice.onnx")
	if err := os.WriteFile(modelPath, []byte("onnx"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	configPath := filepath.Join(dir, "voice.onnx.json")
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return modelPath, configPath
}

func TestLoadDefaultsOnEmptyConfig(t *testing.T) {
	modelPath, configPath := writeVoice(t, `{}`)
	d, err := Load(modelPath, configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.SampleRate != DefaultSampleRate {
		t.Fatalf("expected default sample rate, got %d", d.SampleRate)
	}
	if d.Language != DefaultLanguage {
		t.Fatalf("expected default language, got %q", d.Language)
	}
	if d.Scales.Noise != DefaultNoiseScale || d.Scales.Length != DefaultLengthScale || d.Scales.NoiseW != DefaultNoiseW {
		t.Fatalf("expected default scales, got %+v", d.Scales)
	}
	if len(d.PhonemeIDs) == 0 {
		t.Fatal("expected default phoneme table substitution")
	}
	if d.MaxID() != 39 {
		t.Fatalf("expected max id 39 from default table, got %d", d.MaxID())
	}
}

func TestLoadParsesSidecarFields(t *testing.T) {
	modelPath, configPath := writeVoice(t, `{
		"phoneme_id_map": {"_": [1], "$": [2], " ": [3], "a": [10], "b": [42]},
		"audio": {"sample_rate": 16000},
		"inference": {"noise_scale": 0.5, "length_scale": 1.2, "noise_w": 0.6},
		"language": {"code": "pt_BR"}
	}`)
	d, err := Load(modelPath, configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", d.SampleRate)
	}
	if d.Language != "pt_BR" {
		t.Fatalf("expected language pt_BR, got %q", d.Language)
	}
	if d.Scales.Noise != 0.5 || d.Scales.Length != 1.2 || d.Scales.NoiseW != 0.6 {
		t.Fatalf("unexpected scales: %+v", d.Scales)
	}
	if id, ok := d.ID("b"); !ok || id != 42 {
		t.Fatalf("expected b=42, got %d (%v)", id, ok)
	}
	if d.MaxID() != 42 {
		t.Fatalf("expected max id 42, got %d", d.MaxID())
	}
}

func TestLoadBareLanguageString(t *testing.T) {
	modelPath, configPath := writeVoice(t, `{"language": "en-us"}`)
	d, err := Load(modelPath, configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Language != "en-us" {
		t.Fatalf("expected en-us, got %q", d.Language)
	}
}

func TestLoadErrors(t *testing.T) {
	modelPath, configPath := writeVoice(t, `{`)
	if _, err := Load(modelPath, configPath); !errors.Is(err, ErrConfigMalformed) {
		t.Fatalf("expected ErrConfigMalformed, got %v", err)
	}
	if _, err := Load(modelPath, filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.onnx"), configPath); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := Load("", configPath); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound for empty path, got %v", err)
	}
}

func TestControlSymbolFallbacks(t *testing.T) {
	modelPath, configPath := writeVoice(t, `{"phoneme_id_map": {"a": [14]}}`)
	d, err := Load(modelPath, configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.BOS() != FallbackBOSID || d.EOS() != FallbackEOSID || d.Separator() != FallbackSeparatorID {
		t.Fatalf("expected fallback control ids, got bos=%d eos=%d sep=%d", d.BOS(), d.EOS(), d.Separator())
	}
}
