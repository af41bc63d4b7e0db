package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrNilConfig is returned when a nil Config is provided.
var ErrNilConfig = errors.New("config is nil")

// Provider names accepted by llm.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultGeminiBaseURL is the Generative Language API root used when llm.base_url is empty.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"

// Config holds the full application configuration.
type Config struct {
	Storage StorageConfig  `mapstructure:"storage"`
	LLM     ProviderConfig `mapstructure:"llm"`
	Extract ExtractConfig  `mapstructure:"extract"`
	Log     LogConfig      `mapstructure:"log"`
	Server  ServerConfig   `mapstructure:"server"`
}

// StorageConfig locates the key-value database file.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ProviderConfig holds connection details for the quote extraction model.
type ProviderConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=gemini openai"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// ExtractConfig tunes the chunked extraction pipeline.
type ExtractConfig struct {
	ChunkSize int           `mapstructure:"chunk_size" validate:"min=1"`
	MinChars  int           `mapstructure:"min_chars" validate:"min=0"`
	Delay     time.Duration `mapstructure:"delay" validate:"min=0"`
}

// LogConfig controls the slog setup.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=pretty json text"`
	File   string `mapstructure:"file"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", DefaultStoragePath())
	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("extract.chunk_size", 20)
	v.SetDefault("extract.min_chars", 100)
	v.SetDefault("extract.delay", 500*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
	v.SetDefault("log.file", "")
	v.SetDefault("server.port", 8000)
}

// DefaultStoragePath returns ~/.quoteshelf/shelf.db, or a relative path when the
// home directory is unknown.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".quoteshelf", "shelf.db")
	}
	return filepath.Join(home, ".quoteshelf", "shelf.db")
}

// Load reads the Viper-populated config into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("unmarshal config: " + err.Error())
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == ProviderGemini {
		cfg.LLM.BaseURL = DefaultGeminiBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field-level constraints.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	if c.LLM.Provider == ProviderOpenAI && c.LLM.BaseURL == "" {
		return errors.New("config validation failed:\n  llm.base_url is required for the openai provider")
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := fieldPath(e.Namespace())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
		case "url":
			msgs = append(msgs, field+" must be a valid URL")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", field, e.Tag()))
		}
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// fieldPath turns "Config.LLM.BaseURL" into "llm.baseurl".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return strings.Join(parts, ".")
}
