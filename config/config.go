package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/santiagomed/quill/llm"
	"github.com/spf13/viper"
)

// Config holds everything quill reads from config.yaml, .env and QUILL_* variables.
type Config struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	LogLevel       string        `mapstructure:"log_level"`
	ExportDir      string        `mapstructure:"export_dir"`
	TellmURL       string        `mapstructure:"tellm_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Workers        int           `mapstructure:"workers"`
	Server         ServerConfig  `mapstructure:"server"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(llm.ProviderGemini))
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("export_dir", ".")
	v.SetDefault("tellm_url", "")
	v.SetDefault("request_timeout", 0)
	v.SetDefault("workers", 1)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
}

// Load reads the configuration. An explicit path must exist; otherwise config.yaml is looked up
// in the working directory and ~/.quill, and a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "QUILL_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("gemini_api_key", "QUILL_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".quill"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ProviderConfig builds the provider configuration a new session starts with.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	p := llm.ProviderConfig{
		Provider:  llm.Provider(strings.ToLower(strings.TrimSpace(c.Provider))),
		ModelName: c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
	}
	if p.Provider == llm.ProviderGemini && p.ModelName == "" {
		p.ModelName = llm.DefaultGeminiModel
	}
	return p
}

func (c *Config) Validate() error {
	if err := c.ProviderConfig().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}
