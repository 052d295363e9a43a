// Package config loads the daemon configuration: a YAML file layered
// under PIPERTTS_* environment overrides, validated before use. Every
// field has a default so an empty file (or no file) still yields a
// runnable configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	StoreDir       string   `yaml:"store_dir"`
}

// VoiceConfig locates the model artifact and its JSON sidecar.
type VoiceConfig struct {
	ModelPath  string `yaml:"model_path"`
	ConfigPath string `yaml:"config_path"`
}

// SynthConfig tunes backend probing and the external tool tier.
type SynthConfig struct {
	PiperCommand    string `yaml:"piper_command"`
	ONNXLibraryPath string `yaml:"onnx_library_path"`
	NumThreads      int    `yaml:"num_threads"`
	DisableONNX     bool   `yaml:"disable_onnx"`
	DisableSherpa   bool   `yaml:"disable_sherpa"`
}

// ServiceConfig controls the bus-facing synthesis service.
type ServiceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TimeoutMS int    `yaml:"timeout_ms"`
	OutputDir string `yaml:"output_dir"`
}

// HistoryConfig controls the SQLite synthesis history store.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRecords    int    `yaml:"max_records"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Voice       VoiceConfig     `yaml:"voice"`
	Synth       SynthConfig     `yaml:"synth"`
	Service     ServiceConfig   `yaml:"service"`
	History     HistoryConfig   `yaml:"history"`
}

func Default() Config {
	return Config{
		RuntimeName: "pipertts",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			StoreDir:       "./data/nats",
		},
		Synth: SynthConfig{
			PiperCommand: "piper",
			NumThreads:   2,
		},
		Service: ServiceConfig{
			Enabled:   false,
			TimeoutMS: 45000,
			OutputDir: "./data/audio",
		},
		History: HistoryConfig{
			Path:          "./data/pipertts-history.db",
			RetentionMode: "persistent",
			RetentionDays: 30,
			MaxRecords:    10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PIPERTTS_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PIPERTTS_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PIPERTTS_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PIPERTTS_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PIPERTTS_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PIPERTTS_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PIPERTTS_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "PIPERTTS_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PIPERTTS_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PIPERTTS_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PIPERTTS_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PIPERTTS_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PIPERTTS_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PIPERTTS_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PIPERTTS_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.StoreDir, "PIPERTTS_BUS_STORE_DIR")
	overrideString(&cfg.Voice.ModelPath, "PIPERTTS_VOICE_MODEL_PATH")
	overrideString(&cfg.Voice.ConfigPath, "PIPERTTS_VOICE_CONFIG_PATH")
	overrideString(&cfg.Synth.PiperCommand, "PIPERTTS_SYNTH_PIPER_COMMAND")
	overrideString(&cfg.Synth.ONNXLibraryPath, "PIPERTTS_SYNTH_ONNX_LIBRARY_PATH")
	overrideInt(&cfg.Synth.NumThreads, "PIPERTTS_SYNTH_NUM_THREADS")
	overrideBool(&cfg.Synth.DisableONNX, "PIPERTTS_SYNTH_DISABLE_ONNX")
	overrideBool(&cfg.Synth.DisableSherpa, "PIPERTTS_SYNTH_DISABLE_SHERPA")
	overrideBool(&cfg.Service.Enabled, "PIPERTTS_SERVICE_ENABLED")
	overrideInt(&cfg.Service.TimeoutMS, "PIPERTTS_SERVICE_TIMEOUT_MS")
	overrideString(&cfg.Service.OutputDir, "PIPERTTS_SERVICE_OUTPUT_DIR")
	overrideString(&cfg.History.Path, "PIPERTTS_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "PIPERTTS_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "PIPERTTS_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxRecords, "PIPERTTS_HISTORY_MAX_RECORDS")
	overrideBool(&cfg.History.VacuumOnStart, "PIPERTTS_HISTORY_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Service.Enabled {
		if cfg.Voice.ModelPath == "" {
			return errors.New("voice.model_path must be set when the synthesis service is enabled")
		}
		if cfg.Service.TimeoutMS <= 0 {
			return errors.New("service.timeout_ms must be positive")
		}
	}
	if cfg.Synth.NumThreads < 0 {
		return errors.New("synth.num_threads must be >= 0")
	}
	if cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "persistent":
		// ok
	default:
		return errors.New("history.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}

// SidecarPath resolves the voice config path, defaulting to the piper
// convention of <model>.json next to the artifact.
func (v VoiceConfig) SidecarPath() string {
	if v.ConfigPath != "" {
		return v.ConfigPath
	}
	if v.ModelPath == "" {
		return ""
	}
	return v.ModelPath + ".json"
}
