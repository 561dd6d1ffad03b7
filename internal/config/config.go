package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig stores HTTP listener settings.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ICEServers        []string      `yaml:"ice_servers"`
}

// PipelineConfig stores the ingest pipeline tuning knobs.
type PipelineConfig struct {
	TargetSampleRate       int           `yaml:"target_sample_rate"`
	BufferDurationSeconds  float64       `yaml:"buffer_duration_seconds"`
	VADEnergyThreshold     float64       `yaml:"vad_energy_threshold"`
	TranscriptionTimeout   time.Duration `yaml:"transcription_timeout"`
	SynthesisTimeout       time.Duration `yaml:"synthesis_timeout"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	FrameQueueSize         int           `yaml:"frame_queue_size"`
	ReplyQueueSize         int           `yaml:"reply_queue_size"`
	Container              string        `yaml:"container"` // wav | opus
	HighPassCutoffHz       float64       `yaml:"high_pass_cutoff_hz"`
	MaxSessions            int           `yaml:"max_sessions"`
	IdleTimeout            time.Duration `yaml:"idle_timeout"`
	DebugDumpDir           string        `yaml:"debug_dump_dir"`
}

// DeepgramConfig stores Deepgram prerecorded API settings.
type DeepgramConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// WhisperConfig stores OpenAI transcription settings.
type WhisperConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// TranscriptionConfig selects and configures the speech-to-text provider.
type TranscriptionConfig struct {
	Provider      string         `yaml:"provider"` // deepgram | whisper
	MaxAttempts   int            `yaml:"max_attempts"`
	MaxConcurrent int            `yaml:"max_concurrent"`
	Deepgram      DeepgramConfig `yaml:"deepgram"`
	Whisper       WhisperConfig  `yaml:"whisper"`
}

// OpenAISpeechConfig stores OpenAI text-to-speech settings.
type OpenAISpeechConfig struct {
	Model string `yaml:"model"`
	Voice string `yaml:"voice"`
}

// CartesiaConfig stores Cartesia text-to-speech settings.
type CartesiaConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	VoiceID string `yaml:"voice_id"`
	ModelID string `yaml:"model_id"`
	Version string `yaml:"version"`
}

// SynthesisConfig selects and configures the text-to-speech provider.
type SynthesisConfig struct {
	Provider        string             `yaml:"provider"` // openai | cartesia
	SampleRate      int                `yaml:"sample_rate"`
	PhraseCacheSize int                `yaml:"phrase_cache_size"`
	FallbackPhrase  string             `yaml:"fallback_phrase"`
	OpenAI          OpenAISpeechConfig `yaml:"openai"`
	Cartesia        CartesiaConfig     `yaml:"cartesia"`
}

// ChatConfig stores chat completion settings for the OpenAI responder.
type ChatConfig struct {
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// ResponderConfig selects how replies are generated from transcripts.
type ResponderConfig struct {
	Provider string     `yaml:"provider"` // keyword | openai
	OpenAI   ChatConfig `yaml:"openai"`
}

// OpenAIConfig stores OpenAI specific configurations.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Config stores the application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Responder     ResponderConfig     `yaml:"responder"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	PricingFile   string              `yaml:"pricing_file"`
	LogLevel      string              `yaml:"log_level"`
}

// TranscriptionModel returns the model billed for speech-to-text.
func (c *Config) TranscriptionModel() string {
	if c.Transcription.Provider == ProviderWhisper {
		return c.Transcription.Whisper.Model
	}
	return c.Transcription.Deepgram.Model
}

// SpeechModel returns the model billed for text-to-speech.
func (c *Config) SpeechModel() string {
	if c.Synthesis.Provider == ProviderCartesia {
		return c.Synthesis.Cartesia.ModelID
	}
	return c.Synthesis.OpenAI.Model
}

// Environment variables consulted for credentials left empty in the file.
const (
	EnvDeepgramAPIKey = "DEEPGRAM_API_KEY"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvCartesiaAPIKey = "CARTESIA_API_KEY"
)

// LoadConfig loads the configuration from the given file path. Credentials
// missing from the file are taken from the environment, after loading a .env
// file from the working directory when one exists.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and fills defaults. It does not read the environment or validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyEnv fills empty credentials from lookup.
func (c *Config) ApplyEnv(lookup func(string) string) {
	if c.Transcription.Deepgram.APIKey == "" {
		c.Transcription.Deepgram.APIKey = lookup(EnvDeepgramAPIKey)
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = lookup(EnvOpenAIAPIKey)
	}
	if c.Synthesis.Cartesia.APIKey == "" {
		c.Synthesis.Cartesia.APIKey = lookup(EnvCartesiaAPIKey)
	}
}

// ApplyDefaults sets every unset field to its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.LogLevel, "info")

	setDefault(&c.Server.ListenAddr, ":8080")
	setDefault(&c.Server.ReadHeaderTimeout, 10*time.Second)
	if len(c.Server.ICEServers) == 0 {
		c.Server.ICEServers = []string{"stun:stun.l.google.com:19302"}
	}

	p := &c.Pipeline
	setDefault(&p.TargetSampleRate, 16000)
	setDefault(&p.BufferDurationSeconds, 3.0)
	setDefault(&p.VADEnergyThreshold, 500.0)
	setDefault(&p.TranscriptionTimeout, 10*time.Second)
	setDefault(&p.SynthesisTimeout, 15*time.Second)
	setDefault(&p.MaxConsecutiveFailures, 3)
	setDefault(&p.FrameQueueSize, 1024)
	setDefault(&p.ReplyQueueSize, 4)
	setDefault(&p.Container, ContainerWAV)
	setDefault(&p.IdleTimeout, 2*time.Minute)

	tr := &c.Transcription
	setDefault(&tr.Provider, ProviderDeepgram)
	setDefault(&tr.MaxAttempts, 1)
	setDefault(&tr.MaxConcurrent, 8)
	setDefault(&tr.Deepgram.BaseURL, "https://api.deepgram.com")
	setDefault(&tr.Deepgram.Model, "nova-2")
	setDefault(&tr.Deepgram.Language, "en")
	setDefault(&tr.Whisper.Model, "whisper-1")

	s := &c.Synthesis
	setDefault(&s.Provider, ProviderOpenAI)
	setDefault(&s.SampleRate, 24000)
	setDefault(&s.PhraseCacheSize, 64)
	setDefault(&s.FallbackPhrase, "Sorry, I didn't catch that.")
	setDefault(&s.OpenAI.Model, "tts-1")
	setDefault(&s.OpenAI.Voice, "alloy")
	setDefault(&s.Cartesia.BaseURL, "https://api.cartesia.ai")
	setDefault(&s.Cartesia.VoiceID, "71a7ad14-091c-4e8e-a314-022ece01c121")
	setDefault(&s.Cartesia.ModelID, "sonic-english")
	setDefault(&s.Cartesia.Version, "2024-06-10")

	setDefault(&c.Responder.Provider, ProviderKeyword)
	setDefault(&c.Responder.OpenAI.Model, "gpt-4o-mini")
	setDefault(&c.Responder.OpenAI.SystemPrompt,
		"You are a friendly voice assistant. Answer in one or two short spoken sentences.")
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Provider and container names accepted in the configuration.
const (
	ProviderDeepgram = "deepgram"
	ProviderWhisper  = "whisper"
	ProviderOpenAI   = "openai"
	ProviderCartesia = "cartesia"
	ProviderKeyword  = "keyword"

	ContainerWAV  = "wav"
	ContainerOpus = "opus"
)

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	p := c.Pipeline
	switch {
	case p.TargetSampleRate <= 0:
		return fmt.Errorf("pipeline.target_sample_rate must be positive, got %d", p.TargetSampleRate)
	case p.BufferDurationSeconds <= 0:
		return fmt.Errorf("pipeline.buffer_duration_seconds must be positive, got %v", p.BufferDurationSeconds)
	case p.VADEnergyThreshold < 0:
		return fmt.Errorf("pipeline.vad_energy_threshold must not be negative, got %v", p.VADEnergyThreshold)
	case p.TranscriptionTimeout <= 0:
		return errors.New("pipeline.transcription_timeout must be positive")
	case p.HighPassCutoffHz < 0 || p.HighPassCutoffHz >= float64(p.TargetSampleRate)/2:
		return fmt.Errorf("pipeline.high_pass_cutoff_hz %v out of range", p.HighPassCutoffHz)
	case p.Container != ContainerWAV && p.Container != ContainerOpus:
		return fmt.Errorf("pipeline.container must be %q or %q, got %q", ContainerWAV, ContainerOpus, p.Container)
	}

	switch c.Transcription.Provider {
	case ProviderDeepgram:
		if c.Transcription.Deepgram.APIKey == "" {
			return fmt.Errorf("transcription.deepgram.api_key (or %s) is not configured", EnvDeepgramAPIKey)
		}
	case ProviderWhisper:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key (or %s) is required by the whisper transcriber", EnvOpenAIAPIKey)
		}
	default:
		return fmt.Errorf("unknown transcription.provider %q", c.Transcription.Provider)
	}

	switch c.Synthesis.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key (or %s) is required by openai speech synthesis", EnvOpenAIAPIKey)
		}
	case ProviderCartesia:
		if c.Synthesis.Cartesia.APIKey == "" {
			return fmt.Errorf("synthesis.cartesia.api_key (or %s) is not configured", EnvCartesiaAPIKey)
		}
	default:
		return fmt.Errorf("unknown synthesis.provider %q", c.Synthesis.Provider)
	}

	switch c.Responder.Provider {
	case ProviderKeyword:
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key (or %s) is required by the openai responder", EnvOpenAIAPIKey)
		}
	default:
		return fmt.Errorf("unknown responder.provider %q", c.Responder.Provider)
	}

	return nil
}
