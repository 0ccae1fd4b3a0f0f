// Package config loads pipeline configuration from a config file, the
// environment, and an optional .env file. Components never read the
// environment themselves; they receive a *Config built once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Credential names reported by MissingError. They match the environment
// variables the original tooling used, so error messages tell the
// operator exactly which variable to set.
const (
	CredGemini        = "GEMINI_API_KEY"
	CredKie           = "KIE_API_KEY"
	CredAirtableToken = "AIRTABLE_API_TOKEN"
	CredAirtableBase  = "AIRTABLE_BASE_ID"
)

// Config is the explicit configuration object passed into every component.
type Config struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	KieAPIKey      string `mapstructure:"kie_api_key"`
	AirtableToken  string `mapstructure:"airtable_token"`
	AirtableBaseID string `mapstructure:"airtable_base_id"`
	AirtableTable  string `mapstructure:"airtable_table"`

	ProjectName string `mapstructure:"project_name"`
	InputDir    string `mapstructure:"input_dir"`
	OutputDir   string `mapstructure:"output_dir"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		AirtableTable: "Scenes",
		ProjectName:   "Creative Cloner Project",
		InputDir:      "inputs",
		OutputDir:     "outputs",
	}
}

// MissingError reports required credentials that are absent. It is fatal:
// commands check it before making any remote call.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

// Load reads configuration from (in increasing precedence) defaults, an
// optional config file, and the environment. A .agent/.env or .env file is
// loaded into the environment first, matching the original tool layout.
func Load(cfgFile string) (*Config, error) {
	// Missing .env files are not an error; they are a local convenience.
	_ = godotenv.Load(".agent/.env")
	_ = godotenv.Load()

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("airtable_table", defaults.AirtableTable)
	v.SetDefault("project_name", defaults.ProjectName)
	v.SetDefault("input_dir", defaults.InputDir)
	v.SetDefault("output_dir", defaults.OutputDir)

	v.SetEnvPrefix("CLONER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The original tools read bare variable names; keep accepting them.
	bind := func(key string, envs ...string) {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	bind("gemini_api_key", "CLONER_GEMINI_API_KEY", "GEMINI_API_KEY")
	bind("kie_api_key", "CLONER_KIE_API_KEY", "KIE_API_KEY")
	bind("airtable_token", "CLONER_AIRTABLE_TOKEN", "AIRTABLE_API_TOKEN", "AIRTABLE_API_KEY")
	bind("airtable_base_id", "CLONER_AIRTABLE_BASE_ID", "AIRTABLE_BASE_ID")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cloner")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.GeminiAPIKey = ResolveEnvVars(cfg.GeminiAPIKey)
	cfg.KieAPIKey = ResolveEnvVars(cfg.KieAPIKey)
	cfg.AirtableToken = ResolveEnvVars(cfg.AirtableToken)
	cfg.AirtableBaseID = ResolveEnvVars(cfg.AirtableBaseID)

	return &cfg, nil
}

// Require returns a MissingError naming every requested credential that is
// not set.
func (c *Config) Require(creds ...string) error {
	var missing []string
	for _, cred := range creds {
		if c.credential(cred) == "" {
			missing = append(missing, cred)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

func (c *Config) credential(name string) string {
	switch name {
	case CredGemini:
		return c.GeminiAPIKey
	case CredKie:
		return c.KieAPIKey
	case CredAirtableToken:
		return c.AirtableToken
	case CredAirtableBase:
		return c.AirtableBaseID
	}
	return ""
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
