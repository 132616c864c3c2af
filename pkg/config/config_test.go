package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Provide a path that definitely doesn't exist
	config, err := LoadConfig("non_existent_config.yml")
	require.NoError(t, err)

	assert.Equal(t, 0.7, config.ModelSettings.Temperature)
	assert.Equal(t, 1.0, config.ModelSettings.TopP)
	assert.Equal(t, 2048, config.ModelSettings.MaxTokens)
	assert.Equal(t, 24, config.Limits.HistoryMaxTurns)
	assert.Equal(t, 4000, config.Limits.TurnMaxChars)
	assert.Equal(t, 24000, config.Limits.DossierMaxChars)
	assert.Equal(t, int64(1<<20), config.Limits.RequestMaxBytes)
	assert.Equal(t, 180, config.Limits.UpstreamTimeoutSeconds)
	assert.Equal(t, "data/personas.yml", config.Personas.File)
	assert.Equal(t, 7, config.Personas.ExpectedCount)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	content := []byte(`
model_settings:
  temperature: 0.4
  top_p: 0.9
  max_tokens: 1024
limits:
  history_max_turns: 12
  turn_max_chars: 2000
  dossier_max_chars: 10000
  upstream_timeout_seconds: 60
personas:
  file: testdata/personas.yml
  expected_count: 3
`)
	tmpfile, err := os.CreateTemp("", "config_test_*.yml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write(content); err != nil {
		tmpfile.Close()
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, 0.4, config.ModelSettings.Temperature)
	assert.Equal(t, 0.9, config.ModelSettings.TopP)
	assert.Equal(t, 1024, config.ModelSettings.MaxTokens)
	assert.Equal(t, 12, config.Limits.HistoryMaxTurns)
	assert.Equal(t, 2000, config.Limits.TurnMaxChars)
	assert.Equal(t, 10000, config.Limits.DossierMaxChars)
	assert.Equal(t, 60, config.Limits.UpstreamTimeoutSeconds)
	assert.Equal(t, "testdata/personas.yml", config.Personas.File)
	assert.Equal(t, 3, config.Personas.ExpectedCount)

	// Fields the file doesn't mention keep their defaults
	assert.Equal(t, int64(1<<20), config.Limits.RequestMaxBytes)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	content := []byte(`
model_settings:
  temperature: "not a number"
  broken_yaml: [ unclosed bracket
`)
	tmpfile, err := os.CreateTemp("", "config_invalid_*.yml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write(content); err != nil {
		tmpfile.Close()
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(tmpfile.Name())

	assert.Error(t, err)
	assert.Nil(t, config)
}
