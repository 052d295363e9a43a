// Command pipertts-synth synthesizes a single utterance to a WAV file.
// It loads the voice, runs the backend cascade once, and reports which
// tier produced the audio. Useful for smoke-testing a voice without
// running the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/glolivercoder/pipertts/internal/synth"
	"github.com/glolivercoder/pipertts/internal/voice"
)

func main() {
	var (
		modelPath   string
		configPath  string
		text        string
		outPath     string
		sampleRate  int
		piperCmd    string
		onnxLibrary string
		threads     int
		noONNX      bool
		noSherpa    bool
		timeout     time.Duration
		verbose     bool
	)

	flag.StringVar(&modelPath, "model", "", "Path to the ONNX voice model")
	flag.StringVar(&configPath, "voice-config", "", "Path to the voice JSON sidecar (default: model path + .json)")
	flag.StringVar(&text, "text", "", "Text to synthesize")
	flag.StringVar(&outPath, "out", "out.wav", "Output WAV path")
	flag.IntVar(&sampleRate, "rate", 0, "Output sample rate (default: voice native rate)")
	flag.StringVar(&piperCmd, "piper-command", "piper", "External piper command line")
	flag.StringVar(&onnxLibrary, "onnx-library", "", "Path to the onnxruntime shared library")
	flag.IntVar(&threads, "threads", 2, "Inference threads")
	flag.BoolVar(&noONNX, "no-onnx", false, "Skip the in-process ONNX backend")
	flag.BoolVar(&noSherpa, "no-sherpa", false, "Skip the sherpa-onnx backend")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "Synthesis timeout")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if modelPath == "" {
		fmt.Fprintln(os.Stderr, "usage: pipertts-synth -model voice.onnx -text \"ola mundo\" [-out out.wav]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if text == "" && flag.NArg() > 0 {
		text = strings.Join(flag.Args(), " ")
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "no text given")
		os.Exit(2)
	}
	if configPath == "" {
		configPath = modelPath + ".json"
	}

	desc, err := voice.Load(modelPath, configPath)
	if err != nil {
		logger.Error("failed to load voice", slog.String("error", err.Error()))
		os.Exit(1)
	}

	synthesizer := synth.New(desc, synth.Config{
		PiperCommand:    piperCmd,
		ONNXLibraryPath: onnxLibrary,
		NumThreads:      threads,
		DisableONNX:     noONNX,
		DisableSherpa:   noSherpa,
	}, logger)
	defer synthesizer.Close()

	ready := synthesizer.Readiness()
	logger.Debug("backend readiness",
		slog.Bool("onnx", ready.PrimaryReady),
		slog.Bool("sherpa", ready.SecondaryReady),
		slog.Bool("piper_cli", ready.ExternalReady))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	result, err := synthesizer.Synthesize(ctx, text, synth.Options{OutputPath: outPath, SampleRate: sampleRate})
	if err != nil {
		logger.Error("synthesis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	seconds := float64(len(result.Samples)) / float64(result.SampleRate)
	fmt.Printf("%s: %.2fs of audio at %d Hz via %s (%.0f ms)\n",
		outPath, seconds, result.SampleRate, result.Provenance,
		float64(time.Since(start).Microseconds())/1000)
}
