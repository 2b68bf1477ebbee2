// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.drivechat/config.yaml)
//  3. Default values
//
// Security: sensitive values (Drive access token) are masked in
// MarshalJSON/String. Validation is fail-fast with sentinel errors so
// callers can use errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the completion model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the overlap is negative or not
	// smaller than the chunk size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrMissingDriveToken indicates no Drive access token is configured.
	ErrMissingDriveToken = errors.New("missing drive access token")
)

const (
	// DefaultModelName is the default Gemini completion model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	DefaultEmbedderModel = "text-embedding-004"

	// MaxChunkSizeLimit bounds the configurable chunk size.
	MaxChunkSizeLimit = 10000

	// MaxTopK bounds the configurable retrieval depth.
	MaxTopK = 20
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI model configuration
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Indexing configuration
	ChunkSize      int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	MinChunkLength int `mapstructure:"min_chunk_length" json:"min_chunk_length"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k" json:"top_k"`

	// Google Drive configuration
	DriveFolderID    string `mapstructure:"drive_folder_id" json:"drive_folder_id"`
	DriveAccessToken string `mapstructure:"drive_access_token" json:"drive_access_token"` // SENSITIVE: masked in MarshalJSON

	// Server configuration
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Logging configuration
	LogJSON bool `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > config file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".drivechat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	viper.SetDefault("chunk_size", 1000)
	viper.SetDefault("chunk_overlap", 200)
	viper.SetDefault("min_chunk_length", 50)
	viper.SetDefault("top_k", 5)

	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via viper; Validate()
// only checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("drive_access_token", "DRIVE_ACCESS_TOKEN")
	mustBind("drive_folder_id", "DRIVECHAT_DRIVE_FOLDER_ID")
	mustBind("model_name", "DRIVECHAT_MODEL_NAME")
	mustBind("embedder_model", "DRIVECHAT_EMBEDDER_MODEL")
	mustBind("cors_origins", "DRIVECHAT_CORS_ORIGINS")
	mustBind("trust_proxy", "DRIVECHAT_TRUST_PROXY")
	mustBind("log_json", "DRIVECHAT_LOG_JSON")
}

// Validate checks the configuration, fail-fast.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSizeLimit {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidChunkSize, c.ChunkSize, MaxChunkSizeLimit)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: got %d with chunk size %d", ErrInvalidChunkOverlap, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidTopK, c.TopK, MaxTopK)
	}
	return nil
}

// ValidateServe applies the additional checks required by serve mode,
// where the external providers must actually be reachable.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is not set", ErrMissingAPIKey)
	}
	if c.DriveAccessToken == "" {
		return fmt.Errorf("%w: set DRIVE_ACCESS_TOKEN", ErrMissingDriveToken)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars
// or fewer are fully masked to prevent substring matching; longer ones
// keep the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DriveAccessToken = maskSecret(a.DriveAccessToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
