package synth

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/glolivercoder/pipertts/internal/voice"
	"github.com/glolivercoder/pipertts/internal/wavio"
)

// piperCLIBackend shells out to the reference piper binary. Each call
// uses uniquely named temp files so concurrent synthesis requests
// cannot collide, and both files are removed on every exit path.
type piperCLIBackend struct {
	cmd  []string
	desc *voice.Descriptor
	log  *slog.Logger
}

func newPiperCLIBackend(desc *voice.Descriptor, command string, log *slog.Logger) (*piperCLIBackend, error) {
	if command == "" {
		command = "piper"
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse external tool command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("external tool command empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("external tool not resolvable: %w", err)
	}
	return &piperCLIBackend{cmd: args, desc: desc, log: log}, nil
}

func (b *piperCLIBackend) Name() Provenance { return ProvenancePiperCLI }

func (b *piperCLIBackend) Run(ctx context.Context, req Request) (RawOutput, error) {
	tmpDir := os.TempDir()
	call := uuid.NewString()
	inputPath := filepath.Join(tmpDir, "pipertts_in_"+call+".txt")
	outputPath := filepath.Join(tmpDir, "pipertts_out_"+call+".wav")
	defer os.Remove(inputPath)
	defer os.Remove(outputPath)

	if err := os.WriteFile(inputPath, []byte(req.Text), 0o600); err != nil {
		return RawOutput{}, fmt.Errorf("write input file: %w", err)
	}

	args := append([]string{}, b.cmd[1:]...)
	args = append(args,
		"--model", b.desc.ModelPath,
		"--config", b.desc.ConfigPath,
		"--input-file", inputPath,
		"--output-file", outputPath,
	)

	cmd := exec.CommandContext(ctx, b.cmd[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return RawOutput{}, &ExternalToolError{Err: err, Stderr: stderr.String()}
	}

	samples, rate, err := wavio.Read(outputPath)
	if err != nil {
		return RawOutput{}, fmt.Errorf("read tool output: %w", err)
	}
	if len(samples) == 0 {
		return RawOutput{}, fmt.Errorf("external tool produced empty audio")
	}
	return RawOutput{Samples: samples, SampleRate: rate}, nil
}

func (b *piperCLIBackend) Close() {}
