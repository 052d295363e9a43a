package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/glolivercoder/pipertts/internal/voice"
)

// melBandGuess is the usual mel resolution of VITS-family acoustic
// models; used only to tell spectral outputs apart from waveforms.
const melBandGuess = 80

// tensorRole classifies a model input by name so the session can be fed
// regardless of the exact export signature.
type tensorRole int

const (
	roleUnknown tensorRole = iota
	roleTokens
	roleLengths
	roleScales
)

var ortInitOnce sync.Once

// onnxBackend runs the model artifact through an in-process ONNX
// Runtime session. This is the primary tier.
type onnxBackend struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	inputRoles  []tensorRole
	outputCount int
	desc        *voice.Descriptor
	log         *slog.Logger
	mu          sync.Mutex
}

func newONNXBackend(desc *voice.Descriptor, libraryPath string, log *slog.Logger) (*onnxBackend, error) {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
	})
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(desc.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model inputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: model exposes no inputs or outputs", ErrUnsupportedModel)
	}

	names := make([]string, len(inputs))
	roles := make([]tensorRole, len(inputs))
	for i, info := range inputs {
		names[i] = info.Name
		roles[i] = classifyInput(info.Name)
	}
	outputNames := make([]string, len(outputs))
	for i, info := range outputs {
		outputNames[i] = info.Name
	}

	session, err := ort.NewDynamicAdvancedSession(desc.ModelPath, names, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &onnxBackend{
		session:     session,
		inputNames:  names,
		inputRoles:  roles,
		outputCount: len(outputNames),
		desc:        desc,
		log:         log,
	}, nil
}

// classifyInput matches an exported input name against the roles a
// VITS-style model expects.
func classifyInput(name string) tensorRole {
	lower := strings.ToLower(name)
	switch {
	case lower == "input" || strings.Contains(lower, "phoneme") || strings.Contains(lower, "token"):
		return roleTokens
	case strings.Contains(lower, "length"):
		return roleLengths
	case strings.Contains(lower, "scale"):
		return roleScales
	default:
		return roleUnknown
	}
}

func (b *onnxBackend) Name() Provenance { return ProvenanceONNX }

// Run feeds the token sequence through the session. Inputs whose role
// could not be identified receive zero-valued placeholders so an
// unusual export signature degrades instead of crashing the call.
func (b *onnxBackend) Run(ctx context.Context, req Request) (RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return RawOutput{}, err
	}
	if len(req.Tokens) == 0 {
		return RawOutput{}, fmt.Errorf("empty token sequence")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	inputs := make([]ort.Value, len(b.inputNames))
	defer func() {
		for _, v := range inputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	for i, role := range b.inputRoles {
		var (
			value ort.Value
			err   error
		)
		switch role {
		case roleTokens:
			value, err = ort.NewTensor(ort.NewShape(1, int64(len(req.Tokens))), req.Tokens)
		case roleLengths:
			value, err = ort.NewTensor(ort.NewShape(1), []int64{int64(len(req.Tokens))})
		case roleScales:
			s := b.desc.Scales
			value, err = ort.NewTensor(ort.NewShape(3), []float32{s.Noise, s.Length, s.NoiseW})
		default:
			value, err = ort.NewTensor(ort.NewShape(1, 1), make([]float32, 1))
		}
		if err != nil {
			return RawOutput{}, fmt.Errorf("build tensor for %s: %w", b.inputNames[i], err)
		}
		inputs[i] = value
	}

	outputs := make([]ort.Value, b.outputCount)
	if err := b.session.Run(inputs, outputs); err != nil {
		return RawOutput{}, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	first, ok := outputs[0].(*ort.Tensor[float32])
	if !ok || first == nil {
		return RawOutput{}, fmt.Errorf("%w: first output is not a float tensor", ErrUnsupportedModel)
	}

	data := append([]float32(nil), first.GetData()...)
	shape := first.GetShape()
	out := RawOutput{SampleRate: b.desc.SampleRate}
	if bands, frames, bandMajor, isMel := melLayout(shape); isMel {
		out.Mel = reshapeMel(data, bands, frames, bandMajor)
	} else {
		out.Samples = data
	}
	if len(out.Samples) == 0 && len(out.Mel) == 0 {
		return RawOutput{}, fmt.Errorf("model produced no output data")
	}
	return out, nil
}

// melLayout decides whether a squeezed output shape looks like mel
// spectral frames rather than a flat waveform, accepting both
// band-major and frame-major exports.
func melLayout(shape []int64) (bands, frames int, bandMajor, isMel bool) {
	var dims []int64
	for _, d := range shape {
		if d > 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) != 2 {
		return 0, 0, false, false
	}
	if dims[0] == melBandGuess {
		return int(dims[0]), int(dims[1]), true, true
	}
	if dims[1] == melBandGuess {
		return int(dims[1]), int(dims[0]), false, true
	}
	return 0, 0, false, false
}

// reshapeMel splits a flat buffer into [bands][frames].
func reshapeMel(data []float32, bands, frames int, bandMajor bool) [][]float32 {
	if bands*frames > len(data) {
		frames = len(data) / bands
	}
	mel := make([][]float32, bands)
	if bandMajor {
		for b := 0; b < bands; b++ {
			mel[b] = data[b*frames : (b+1)*frames]
		}
		return mel
	}
	for b := 0; b < bands; b++ {
		mel[b] = make([]float32, frames)
		for t := 0; t < frames; t++ {
			mel[b][t] = data[t*bands+b]
		}
	}
	return mel
}

func (b *onnxBackend) Close() {
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
}
