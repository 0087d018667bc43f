package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/poiesic/memvault/ai"
	"github.com/poiesic/memvault/envelope"
)

// MasterKeyEnv names the environment variable consulted when the config file
// carries no master key.
const MasterKeyEnv = "ENCRYPTION_MASTER_KEY_BASE64"

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the service configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Crypto CryptoConfig      `yaml:"crypto"`
	AI     AIConfig          `yaml:"ai"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Crypto.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`

	// AskTimeout bounds a single question, including both upstream calls.
	AskTimeout time.Duration `yaml:"ask_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.AskTimeout, validation.Min(time.Duration(0))),
	)
}

// StoreConfig locates the note store.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(!c.InMemory, validation.Required)),
	)
}

// CryptoConfig holds the envelope master key, base64 encoded.
type CryptoConfig struct {
	MasterKey string `yaml:"master_key"`
}

// Validate fills MasterKey from MasterKeyEnv when it is empty and checks
// that it decodes to a 32-byte key.
func (c *CryptoConfig) Validate() error {
	if c.MasterKey == "" {
		c.MasterKey = os.Getenv(MasterKeyEnv)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MasterKey,
			validation.Required.Error("master key is required (set crypto.master_key or "+MasterKeyEnv+")"),
			validation.By(validMasterKey)),
	)
}

// Key decodes the master key.
func (c *CryptoConfig) Key() ([]byte, error) {
	return envelope.ParseMasterKey(c.MasterKey)
}

func validMasterKey(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := envelope.ParseMasterKey(s); err != nil {
		return errors.New("must be a base64 encoded 32-byte key")
	}
	return nil
}

// AIConfig selects the OpenAI-compatible embedding and generation endpoints.
type AIConfig struct {
	Host            string  `yaml:"host"`
	EmbeddingHost   string  `yaml:"embedding_host"`
	GenerationHost  string  `yaml:"generation_host"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	GenerationModel string  `yaml:"generation_model"`
	APIToken        string  `yaml:"api_token"`
	Temperature     float64 `yaml:"temperature"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.When(c.EmbeddingHost == "" || c.GenerationHost == "", validation.Required)),
		validation.Field(&c.EmbeddingModel, validation.Required),
		validation.Field(&c.GenerationModel, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
	)
}

// Provider converts the section into an ai.Config. Per-service hosts
// override Host.
func (c *AIConfig) Provider() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithGenerationModel(c.GenerationModel),
		ai.WithAPIToken(c.APIToken),
		ai.WithTemperature(c.Temperature),
	}
	if c.Host != "" {
		opts = append(opts, ai.WithHost(c.Host))
	}
	if c.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.EmbeddingHost))
	}
	if c.GenerationHost != "" {
		opts = append(opts, ai.WithGenerationHost(c.GenerationHost))
	}
	return ai.NewConfig(opts...)
}

// AuthConfig holds API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): requests are trusted, for deployments behind an
//     authenticating gateway.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values. The
// master key has no default.
func NewDefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:       8080,
				AskTimeout: 60 * time.Second,
			},
		},
		Store: StoreConfig{
			Path: "./memvault.db",
		},
		AI: AIConfig{
			Host:            aiDefaults.EmbeddingHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			GenerationModel: aiDefaults.GenerationModel,
			Temperature:     aiDefaults.Temperature,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
