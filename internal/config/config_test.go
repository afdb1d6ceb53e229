package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Model.Backend = "openai"
	cfg.Model.Name = "gpt-4o"
	cfg.Selection.ClosureThreshold = 3.5
	cfg.Analysis.Passes = 3

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Model.Backend != "openai" || loaded.Model.Name != "gpt-4o" {
		t.Errorf("model settings not preserved: %+v", loaded.Model)
	}
	if loaded.Selection.ClosureThreshold != 3.5 {
		t.Errorf("closure threshold = %v, want 3.5", loaded.Selection.ClosureThreshold)
	}
	if loaded.Analysis.Passes != 3 {
		t.Errorf("passes = %d, want 3", loaded.Analysis.Passes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IHC_BACKEND", "openai")
	t.Setenv("IHC_MODEL", "qwen2.5-vl")
	t.Setenv("IHC_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Model.Backend != "openai" {
		t.Errorf("backend = %q, want openai", cfg.Model.Backend)
	}
	if cfg.Model.Name != "qwen2.5-vl" {
		t.Errorf("model name = %q, want qwen2.5-vl", cfg.Model.Name)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Model.Backend = "vertex" }},
		{"empty url", func(c *Config) { c.Model.URL = "" }},
		{"empty model", func(c *Config) { c.Model.Name = "" }},
		{"quality too high", func(c *Config) { c.Model.SendQuality = 101 }},
		{"negative max dim", func(c *Config) { c.Model.SendMaxDim = -1 }},
		{"zero threshold", func(c *Config) { c.Selection.ClosureThreshold = 0 }},
		{"zero passes", func(c *Config) { c.Analysis.Passes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
