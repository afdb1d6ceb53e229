package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Model     ModelConfig     `json:"model"`
	Selection SelectionConfig `json:"selection"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Store     StoreConfig     `json:"store"`
	Log       LogConfig       `json:"log"`
}

// ModelConfig holds the vision model backend settings
type ModelConfig struct {
	Backend     string `json:"backend"` // "ollama" or "openai"
	URL         string `json:"url"`
	Name        string `json:"name"`
	SendFormat  string `json:"send_format"` // "jpg" or "png"
	SendMaxDim  int    `json:"send_max_dim"`
	SendQuality int    `json:"send_quality"`
}

// SelectionConfig holds the region-of-interest drawing constants
type SelectionConfig struct {
	// ClosureThreshold is the polygon closure radius in normalized
	// (0-100) units.
	ClosureThreshold float64 `json:"closure_threshold"`
}

// AnalysisConfig holds the counting analysis constants
type AnalysisConfig struct {
	Passes int `json:"passes"`
}

// StoreConfig holds session persistence settings
type StoreConfig struct {
	Dir string `json:"dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:     "ollama",
			URL:         "http://localhost:11434",
			Name:        "llava:13b",
			SendFormat:  "png",
			SendMaxDim:  1536,
			SendQuality: 85,
		},
		Selection: SelectionConfig{
			ClosureThreshold: 2.0,
		},
		Analysis: AnalysisConfig{
			Passes: 2,
		},
		Store: StoreConfig{
			Dir: defaultStoreDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration fields from environment variables.
// Typically used after godotenv has loaded a .env file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("IHC_BACKEND"); v != "" {
		c.Model.Backend = v
	}
	if v := os.Getenv("IHC_MODEL_URL"); v != "" {
		c.Model.URL = v
	}
	if v := os.Getenv("IHC_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("IHC_STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("IHC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Backend != "ollama" && c.Model.Backend != "openai" {
		return fmt.Errorf("model.backend must be \"ollama\" or \"openai\"")
	}

	if c.Model.URL == "" {
		return fmt.Errorf("model.url cannot be empty")
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name cannot be empty")
	}

	if c.Model.SendQuality < 1 || c.Model.SendQuality > 100 {
		return fmt.Errorf("model.send_quality must be between 1 and 100")
	}

	if c.Model.SendMaxDim < 0 {
		return fmt.Errorf("model.send_max_dim must not be negative")
	}

	if c.Selection.ClosureThreshold <= 0 || c.Selection.ClosureThreshold > 100 {
		return fmt.Errorf("selection.closure_threshold must be between 0 and 100")
	}

	if c.Analysis.Passes < 1 {
		return fmt.Errorf("analysis.passes must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "ihc-counter", "config.json")
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./session"
	}
	return filepath.Join(home, ".local", "share", "ihc-counter")
}
