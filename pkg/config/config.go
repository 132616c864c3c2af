package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ModelSettings struct {
		Temperature float64 `yaml:"temperature"`
		TopP        float64 `yaml:"top_p"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"model_settings"`
	Limits struct {
		HistoryMaxTurns        int   `yaml:"history_max_turns"`
		TurnMaxChars           int   `yaml:"turn_max_chars"`
		DossierMaxChars        int   `yaml:"dossier_max_chars"`
		RequestMaxBytes        int64 `yaml:"request_max_bytes"`
		UpstreamTimeoutSeconds int   `yaml:"upstream_timeout_seconds"`
	} `yaml:"limits"`
	Personas struct {
		File          string `yaml:"file"`
		ExpectedCount int    `yaml:"expected_count"`
	} `yaml:"personas"`
	Server struct {
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`
}

func defaults() *Config {
	config := &Config{}
	config.ModelSettings.Temperature = 0.7
	config.ModelSettings.TopP = 1
	config.ModelSettings.MaxTokens = 2048
	config.Limits.HistoryMaxTurns = 24
	config.Limits.TurnMaxChars = 4000
	config.Limits.DossierMaxChars = 24000
	config.Limits.RequestMaxBytes = 1 << 20
	config.Limits.UpstreamTimeoutSeconds = 180
	config.Personas.File = "data/personas.yml"
	config.Personas.ExpectedCount = 7
	config.Server.StaticDir = "static"
	return config
}

func LoadConfig(path string) (*Config, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return defaults(), nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := defaults()
	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}
