package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "RESEARCHCAST_CONFIG"

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	Environment  string `yaml:"environment"`
}

type HTTPConfig struct {
	Bind              string        `yaml:"bind"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type SearchConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"` // anthropic, openai, bedrock
	Model           string        `yaml:"model"` // empty picks the provider default
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	AWSRegion       string        `yaml:"aws_region"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout"`
}

type ExpansionConfig struct {
	IntroTarget      int `yaml:"intro_target"`
	SubtopicTarget   int `yaml:"subtopic_target"`
	ConclusionTarget int `yaml:"conclusion_target"`
	MaxIterations    int `yaml:"max_iterations"`
	Parallelism      int `yaml:"parallelism"`
}

type TTSConfig struct {
	Provider         string  `yaml:"provider"` // elevenlabs, google, polly
	ElevenLabsAPIKey string  `yaml:"elevenlabs_api_key"`
	ElevenLabsURL    string  `yaml:"elevenlabs_url"`
	Model            string  `yaml:"model"`
	Voice1           string  `yaml:"voice1"`
	Voice2           string  `yaml:"voice2"`
	RequestsPerSec   float64 `yaml:"requests_per_second"`
	AWSRegion        string  `yaml:"aws_region"`
}

type ProgressConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Search      SearchConfig    `yaml:"search"`
	Cache       CacheConfig     `yaml:"cache"`
	LLM         LLMConfig       `yaml:"llm"`
	Expansion   ExpansionConfig `yaml:"expansion"`
	TTS         TTSConfig       `yaml:"tts"`
	Progress    ProgressConfig  `yaml:"progress"`
	Deadline    time.Duration   `yaml:"pipeline_deadline"`
}

func Default() Config {
	return Config{
		ServiceName: "researchcast",
		HTTP: HTTPConfig{
			Bind:              "0.0.0.0",
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
			Environment:  "development",
		},
		Search: SearchConfig{
			BaseURL:    "https://api.search.brave.com",
			Timeout:    15 * time.Second,
			MaxResults: 10,
		},
		Cache: CacheConfig{
			TTL: 6 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			AWSRegion:      "us-east-1",
			Temperature:    0.7,
			MaxTokens:      1024,
			MaxAttempts:    3,
			BaseDelay:      time.Second,
			AttemptTimeout: 120 * time.Second,
		},
		Expansion: ExpansionConfig{
			IntroTarget:      350,
			SubtopicTarget:   400,
			ConclusionTarget: 300,
			MaxIterations:    20,
			Parallelism:      1,
		},
		TTS: TTSConfig{
			Provider:       "elevenlabs",
			ElevenLabsURL:  "https://api.elevenlabs.io",
			Model:          "eleven_turbo_v2",
			RequestsPerSec: 0,
			AWSRegion:      "us-east-1",
		},
		Progress: ProgressConfig{
			Subject: "researchcast.progress",
		},
		Deadline: 10 * time.Minute,
	}
}

// Load builds a Config from defaults, the optional YAML file at path and
// environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
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
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Provider-native variable names first, then the prefixed ones.
	overrideString(&cfg.Search.APIKey, "BRAVE_API_KEY")
	overrideString(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	overrideString(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	overrideString(&cfg.TTS.ElevenLabsAPIKey, "ELEVENLABS_API_KEY")
	overrideString(&cfg.LLM.AWSRegion, "AWS_REGION")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	overrideString(&cfg.ServiceName, "RESEARCHCAST_SERVICE_NAME")
	overrideString(&cfg.HTTP.Bind, "RESEARCHCAST_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "RESEARCHCAST_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "RESEARCHCAST_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "RESEARCHCAST_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "RESEARCHCAST_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.Environment, "RESEARCHCAST_ENVIRONMENT")
	overrideString(&cfg.Search.BaseURL, "RESEARCHCAST_SEARCH_BASE_URL")
	overrideDuration(&cfg.Search.Timeout, "RESEARCHCAST_SEARCH_TIMEOUT")
	overrideString(&cfg.Cache.RedisAddr, "RESEARCHCAST_REDIS_ADDR")
	overrideString(&cfg.Cache.Password, "RESEARCHCAST_REDIS_PASSWORD")
	overrideDuration(&cfg.Cache.TTL, "RESEARCHCAST_CACHE_TTL")
	overrideString(&cfg.LLM.Provider, "RESEARCHCAST_LLM_PROVIDER")
	overrideString(&cfg.LLM.Model, "RESEARCHCAST_LLM_MODEL")
	overrideString(&cfg.LLM.OpenAIBaseURL, "RESEARCHCAST_OPENAI_BASE_URL")
	overrideFloat(&cfg.LLM.Temperature, "RESEARCHCAST_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.MaxTokens, "RESEARCHCAST_LLM_MAX_TOKENS")
	overrideInt(&cfg.LLM.MaxAttempts, "RESEARCHCAST_LLM_MAX_ATTEMPTS")
	overrideDuration(&cfg.LLM.BaseDelay, "RESEARCHCAST_LLM_BASE_DELAY")
	overrideDuration(&cfg.LLM.AttemptTimeout, "RESEARCHCAST_LLM_ATTEMPT_TIMEOUT")
	overrideInt(&cfg.Expansion.IntroTarget, "RESEARCHCAST_INTRO_TARGET")
	overrideInt(&cfg.Expansion.SubtopicTarget, "RESEARCHCAST_SUBTOPIC_TARGET")
	overrideInt(&cfg.Expansion.ConclusionTarget, "RESEARCHCAST_CONCLUSION_TARGET")
	overrideInt(&cfg.Expansion.MaxIterations, "RESEARCHCAST_MAX_ITERATIONS")
	overrideInt(&cfg.Expansion.Parallelism, "RESEARCHCAST_EXPAND_PARALLELISM")
	overrideString(&cfg.TTS.Provider, "RESEARCHCAST_TTS_PROVIDER")
	overrideString(&cfg.TTS.ElevenLabsURL, "RESEARCHCAST_ELEVENLABS_URL")
	overrideString(&cfg.TTS.Model, "RESEARCHCAST_TTS_MODEL")
	overrideString(&cfg.TTS.Voice1, "RESEARCHCAST_VOICE1")
	overrideString(&cfg.TTS.Voice2, "RESEARCHCAST_VOICE2")
	overrideFloat(&cfg.TTS.RequestsPerSec, "RESEARCHCAST_TTS_RPS")
	overrideString(&cfg.Progress.NATSURL, "RESEARCHCAST_NATS_URL")
	overrideString(&cfg.Progress.Subject, "RESEARCHCAST_NATS_SUBJECT")
	overrideDuration(&cfg.Deadline, "RESEARCHCAST_PIPELINE_DEADLINE")
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

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}

// Validate reports the first invalid field. Missing API keys are not
// checked here; each adapter reports its own missing credential when used.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "bedrock":
	default:
		return fmt.Errorf("llm.provider must be one of anthropic|openai|bedrock, got %q", c.LLM.Provider)
	}
	if c.LLM.MaxAttempts < 1 {
		return errors.New("llm.max_attempts must be >= 1")
	}
	if c.LLM.BaseDelay < 0 {
		return errors.New("llm.base_delay must be >= 0")
	}
	if c.LLM.AttemptTimeout <= 0 {
		return errors.New("llm.attempt_timeout must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.Expansion.IntroTarget <= 0 || c.Expansion.SubtopicTarget <= 0 || c.Expansion.ConclusionTarget <= 0 {
		return errors.New("expansion targets must be positive")
	}
	if c.Expansion.MaxIterations < 1 {
		return errors.New("expansion.max_iterations must be >= 1")
	}
	if c.Expansion.Parallelism < 1 {
		return errors.New("expansion.parallelism must be >= 1")
	}
	switch c.TTS.Provider {
	case "elevenlabs", "google", "polly":
	default:
		return fmt.Errorf("tts.provider must be one of elevenlabs|google|polly, got %q", c.TTS.Provider)
	}
	if c.TTS.RequestsPerSec < 0 {
		return errors.New("tts.requests_per_second must be >= 0")
	}
	if c.Deadline <= 0 {
		return errors.New("pipeline_deadline must be positive")
	}
	return nil
}
