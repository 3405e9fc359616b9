package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// GatewayConfig configures the connection to the LLM gateway and the
// credential resolution chain.
type GatewayConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"` // Gateway base URL
	Model    string `yaml:"model,omitempty"`    // Default model name

	// Credential sources, tried in order: explicit API key, Secrets
	// Manager secret, STS session token.
	APIKey             string `yaml:"api_key,omitempty"`
	SecretName         string `yaml:"secret_name,omitempty"`
	RoleARN            string `yaml:"role_arn,omitempty"`
	UseManagedIdentity bool   `yaml:"use_managed_identity,omitempty"`
	TokenScope         string `yaml:"token_scope,omitempty"`

	Timeout     int `yaml:"timeout,omitempty"`      // Request timeout in seconds
	MaxAttempts int `yaml:"max_attempts,omitempty"` // Total attempts per request
}

// AgentSettings configures agent identity and generation tuning.
type AgentSettings struct {
	Name                string  `yaml:"name,omitempty"`
	BrandVoice          string  `yaml:"brand_voice,omitempty"`
	ContentTemperature  float64 `yaml:"content_temperature,omitempty"`
	AnalysisTemperature float64 `yaml:"analysis_temperature,omitempty"`
	MaxIterations       int     `yaml:"max_iterations,omitempty"`
	QualityThreshold    float64 `yaml:"quality_threshold,omitempty"`
}

// Config is the full marketingd configuration.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Agent   AgentSettings `yaml:"agent,omitempty"`
}

// DefaultConfig returns the built-in defaults. Loaded config files are
// merged on top of these.
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Endpoint:    "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Timeout:     30,
			MaxAttempts: 3,
		},
		Agent: AgentSettings{
			Name:             "marketing-agent",
			BrandVoice:       "professional",
			MaxIterations:    3,
			QualityThreshold: 7.0,
		},
	}
}

// LoadConfig reads the config file at path, merges defaults under it,
// and applies environment variable overrides. A missing file is not an
// error; defaults plus env overrides are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(expandPath(path))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Fall through to defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Defaults fill in fields the file left empty.
	if err := mergo.Merge(cfg, *DefaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge config defaults: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GATEWAY_ENDPOINT"); v != "" {
		cfg.Gateway.Endpoint = v
	}
	if v := os.Getenv("GATEWAY_MODEL"); v != "" {
		cfg.Gateway.Model = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("GATEWAY_SECRET_NAME"); v != "" {
		cfg.Gateway.SecretName = v
	}
	if v := os.Getenv("GATEWAY_ROLE_ARN"); v != "" {
		cfg.Gateway.RoleARN = v
	}
}

// GetConfigPath returns the default config file path.
// Can be overridden via MARKETING_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("MARKETING_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.marketingd/config.yaml"
	}
	return filepath.Join(homeDir, ".marketingd", "config.yaml")
}

// SaveConfig saves the configuration to the specified path.
func SaveConfig(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
