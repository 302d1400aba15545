// Package config resolves sigstrip settings from flags, environment, the
// optional .sigstrip.yaml file and a .env file, and validates them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sigstrip/pkg/llm"
)

// Backends.
const (
	BackendHosted = "hosted"
	BackendLocal  = "local"
)

// Defaults.
const (
	DefaultInputFolder   = "emails/"
	DefaultBackend       = BackendHosted
	DefaultTemperature   = 0.1
	DefaultTimeout       = 10 * time.Minute
	DefaultSummaryFormat = "json"
	DefaultDotEnvFile    = ".env"
)

// EnvPrefix is prepended to every key for environment lookups.
const EnvPrefix = "SIGSTRIP"

// legacyEnv maps keys to environment names honoured for compatibility.
var legacyEnv = map[string][]string{
	"input_folder": {"EML_EMAILS_FOLDER"},
}

// Config is the resolved configuration of one run.
type Config struct {
	InputFolder string `mapstructure:"input_folder" validate:"required"`
	OutputPath  string `mapstructure:"output"`

	Backend  string `mapstructure:"backend" validate:"oneof=hosted local"`
	Provider string `mapstructure:"provider" validate:"required,oneof=openai anthropic ollama"`
	Model    string `mapstructure:"model" validate:"required"`
	APIKey   string `mapstructure:"api_key" validate:"required_if=Backend hosted DryRun false"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`

	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// MaxContentSize is a human-readable size such as "64KB"; "0" or empty
	// means unlimited. MaxContentBytes holds the parsed value.
	MaxContentSize  string  `mapstructure:"max_content_size"`
	MaxContentBytes int     `mapstructure:"-"`
	MinOutputRatio  float64 `mapstructure:"min_output_ratio" validate:"gte=0,lte=1"`

	DryRun           bool   `mapstructure:"dry_run"`
	TrainingDataPath string `mapstructure:"save_training_data"`
	SummaryPath      string `mapstructure:"summary"`
	SummaryFormat    string `mapstructure:"summary_format" validate:"oneof=json yaml yml"`
	Progress         bool   `mapstructure:"progress"`

	Debug   bool `mapstructure:"debug"`
	Quiet   bool `mapstructure:"quiet"`
	LogJSON bool `mapstructure:"log_json"`
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input_folder", DefaultInputFolder)
	v.SetDefault("output", "")
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("provider", "")
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("max_content_size", "0")
	v.SetDefault("min_output_ratio", 0.0)
	v.SetDefault("dry_run", false)
	v.SetDefault("save_training_data", "")
	v.SetDefault("summary", "")
	v.SetDefault("summary_format", DefaultSummaryFormat)
	v.SetDefault("progress", false)
	v.SetDefault("debug", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_json", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		args := append([]string{key, EnvPrefix + "_" + strings.ToUpper(key)}, names...)
		_ = v.BindEnv(args...)
	}
}

// Load decodes v into a Config, fills provider-dependent defaults and
// validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))

	if c.Provider == "" {
		c.Provider = "openai"
		if c.Backend == BackendLocal {
			c.Provider = "ollama"
		}
	}
	if c.Model == "" {
		c.Model = llm.GetDefaultModel(c.Provider)
	}
	if c.APIKey == "" {
		c.APIKey = llm.LookupAPIKey(c.Provider)
	}

	size := strings.TrimSpace(c.MaxContentSize)
	if size != "" && size != "0" {
		n, err := humanize.ParseBytes(size)
		if err != nil {
			return fmt.Errorf("invalid max_content_size %q: %w", c.MaxContentSize, err)
		}
		c.MaxContentBytes = int(n)
	}
	return nil
}

// Validate checks field constraints and backend/provider consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	switch {
	case c.Backend == BackendLocal && c.Provider != "ollama":
		return fmt.Errorf("invalid configuration: local backend requires provider ollama, got %s", c.Provider)
	case c.Backend == BackendHosted && c.Provider == "ollama":
		return errors.New("invalid configuration: provider ollama requires backend local")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_if":
		if fe.Field() == "APIKey" {
			return "no API key: set --api-key or " + llm.APIKeyEnv("openai") + "/" + llm.APIKeyEnv("anthropic")
		}
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// ProviderConfig returns the llm settings for the configured provider.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}

// LoadDotEnv exports the variables defined in a dotenv file. Variables
// already present in the environment win. A missing file is not an error.
// Names are upper-cased because viper folds keys to lower case.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}
