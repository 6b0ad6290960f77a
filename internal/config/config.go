// Package config handles loading and validating the voicetone configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the voicetone daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Tones      TonesConfig      `mapstructure:"tones"`
	STT        STTConfig        `mapstructure:"stt"`
	LLM        LLMConfig        `mapstructure:"llm"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Azure      AzureConfig      `mapstructure:"azure"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	// MaxAudioBytes caps the size of a submitted recording.
	MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
}

// PipelineConfig tunes the turn pipeline.
type PipelineConfig struct {
	Languages           []string `mapstructure:"languages"` // detection candidates, first is the fallback
	HistoryWindow       int      `mapstructure:"history_window"`
	TranscriptionPrompt string   `mapstructure:"transcription_prompt"`
	Temperature         float64  `mapstructure:"temperature"`
	MaxTokens           int      `mapstructure:"max_tokens"`
}

// TonesConfig points at an optional tone table file. Empty uses the
// built-in table.
type TonesConfig struct {
	File string `mapstructure:"file"`
}

// STTConfig selects and configures the transcription backend.
type STTConfig struct {
	Backend string           `mapstructure:"backend"` // "azure", "google", "openai" or "whisper"
	OpenAI  OpenAISTTConfig  `mapstructure:"openai"`
	Google  GoogleSTTConfig  `mapstructure:"google"`
	Whisper WhisperSTTConfig `mapstructure:"whisper"`
}

// OpenAISTTConfig holds OpenAI transcription settings.
type OpenAISTTConfig struct {
	Model string `mapstructure:"model"`
}

// GoogleSTTConfig holds Google Cloud Speech settings. Credentials come from
// the file, or from Application Default Credentials when it is empty.
type GoogleSTTConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Model           string `mapstructure:"model"`
	SampleRate      int    `mapstructure:"sample_rate"`
}

// WhisperSTTConfig holds self-hosted Whisper settings.
type WhisperSTTConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Type      string `mapstructure:"type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	Model     string `mapstructure:"model"`
	VADFilter bool   `mapstructure:"vad_filter"`
}

// LLMConfig selects and configures the reply generator.
type LLMConfig struct {
	Backend string         `mapstructure:"backend"` // "openai", "azure" or "local"
	Model   string         `mapstructure:"model"`   // model, or deployment name for azure
	Local   LocalLLMConfig `mapstructure:"local"`
}

// LocalLLMConfig holds self-hosted LLM settings.
type LocalLLMConfig struct {
	Endpoint string `mapstructure:"endpoint"` // Ollama /api/generate or an OpenAI-compatible chat URL
	Model    string `mapstructure:"model"`
}

// TTSConfig selects and configures the text-to-speech backend. The backend
// also decides the synthesis strategy: azure speaks markup with explicit
// prosody, openai and piper take natural-language instructions.
type TTSConfig struct {
	Backend string          `mapstructure:"backend"` // "azure", "openai" or "piper"
	Azure   AzureTTSConfig  `mapstructure:"azure"`
	OpenAI  OpenAITTSConfig `mapstructure:"openai"`
	Piper   PiperConfig     `mapstructure:"piper"`
}

// AzureTTSConfig holds Azure Speech synthesis settings.
type AzureTTSConfig struct {
	OutputFormat string `mapstructure:"output_format"`
}

// OpenAITTSConfig holds OpenAI speech settings.
type OpenAITTSConfig struct {
	Model  string `mapstructure:"model"`
	Voice  string `mapstructure:"voice"`
	Format string `mapstructure:"format"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances set Endpoints, keyed by ISO-639-1 code; Endpoint
// is then the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"` // ISO-639-1 code -> Piper voice model
}

// AzureConfig holds Azure credentials shared by the speech backends and
// Azure OpenAI.
type AzureConfig struct {
	SpeechKey        string `mapstructure:"speech_key"`
	Region           string `mapstructure:"region"`
	SpeechEndpoint   string `mapstructure:"speech_endpoint"` // overrides the region-derived host
	OpenAIEndpoint   string `mapstructure:"openai_endpoint"`
	OpenAIKey        string `mapstructure:"openai_key"`
	OpenAIAPIVersion string `mapstructure:"openai_api_version"`
}

// OpenAIConfig holds OpenAI API credentials.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// MetricsConfig toggles the Prometheus endpoint on the health server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./voicetone.yaml, ./configs/voicetone.yaml, /etc/voicetone/voicetone.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.max_audio_bytes", 10<<20)
	v.SetDefault("pipeline.languages", []string{"en-US", "de-DE"})
	v.SetDefault("pipeline.history_window", 3)
	v.SetDefault("pipeline.temperature", 0.5)
	v.SetDefault("pipeline.max_tokens", 300)
	v.SetDefault("stt.backend", "azure")
	v.SetDefault("stt.openai.model", "gpt-4o-transcribe")
	v.SetDefault("stt.google.model", "latest_short")
	v.SetDefault("stt.google.sample_rate", 16000)
	v.SetDefault("stt.whisper.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("stt.whisper.type", "openai")
	v.SetDefault("llm.backend", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.local.endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("llm.local.model", "llama3")
	v.SetDefault("tts.backend", "azure")
	v.SetDefault("tts.azure.output_format", "audio-24khz-48kbitrate-mono-mp3")
	v.SetDefault("tts.openai.model", "gpt-4o-mini-tts")
	v.SetDefault("tts.openai.voice", "nova")
	v.SetDefault("tts.openai.format", "mp3")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("azure.region", "westeurope")
	v.SetDefault("azure.openai_api_version", "2024-10-21")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voicetone")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voicetone")
	}

	// Environment variables: VOICETONE_SERVER_HEALTH_PORT, VOICETONE_TTS_BACKEND, etc.
	v.SetEnvPrefix("VOICETONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${AZURE_SPEECH_KEY}")
	cfg.Azure.SpeechKey = resolveEnvRef(cfg.Azure.SpeechKey)
	cfg.Azure.OpenAIKey = resolveEnvRef(cfg.Azure.OpenAIKey)
	cfg.Azure.OpenAIEndpoint = resolveEnvRef(cfg.Azure.OpenAIEndpoint)
	cfg.OpenAI.APIKey = resolveEnvRef(cfg.OpenAI.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend names and required settings.
func (c *Config) Validate() error {
	switch c.STT.Backend {
	case "azure", "google", "openai", "whisper":
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
	}
	switch c.LLM.Backend {
	case "openai", "azure", "local":
	default:
		return fmt.Errorf("unknown llm backend %q", c.LLM.Backend)
	}
	switch c.TTS.Backend {
	case "azure", "openai", "piper":
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	if len(c.Pipeline.Languages) == 0 {
		return fmt.Errorf("pipeline.languages must not be empty")
	}
	if (c.STT.Backend == "azure" || c.TTS.Backend == "azure") && c.Azure.SpeechKey == "" {
		return fmt.Errorf("azure.speech_key is required for the azure speech backends")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
