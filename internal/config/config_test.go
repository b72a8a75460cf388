package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_ValidConfigParsesSuccessfully(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: generic_equity
    priority: PRIMARY
    rate_limit_rps: 5
    burst: 10
    circuit:
      failure_threshold: 5
      success_threshold: 2
    budget:
      soft_threshold: 0.8
sink:
  compression: LZ4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "generic_equity", cfg.Providers[0].Name)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAMLReturnsError(t *testing.T) {
	path := writeConfig(t, "providers: [this is not valid: yaml: at all")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsMissingProviderName(t *testing.T) {
	cfg := &GlobalConfig{Providers: []ProviderConfig{{Priority: "PRIMARY"}}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsDuplicateProviderNames(t *testing.T) {
	cfg := &GlobalConfig{Providers: []ProviderConfig{
		{Name: "p1", Priority: "PRIMARY"},
		{Name: "p1", Priority: "SECONDARY"},
	}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInvalidPriority(t *testing.T) {
	cfg := &GlobalConfig{Providers: []ProviderConfig{{Name: "p1", Priority: "URGENT"}}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeRateLimitParameters(t *testing.T) {
	cfg := &GlobalConfig{Providers: []ProviderConfig{{Name: "p1", Priority: "PRIMARY", RateLimitRPS: -1}}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeSoftThreshold(t *testing.T) {
	cfg := &GlobalConfig{Providers: []ProviderConfig{{Name: "p1", Priority: "PRIMARY", Budget: BudgetConfig{SoftThreshold: 1.5}}}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInvalidSinkCompression(t *testing.T) {
	cfg := &GlobalConfig{Sink: SinkConfig{Compression: "GZIP"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := &GlobalConfig{
		Providers: []ProviderConfig{{Name: "p1", Priority: "PRIMARY", Budget: BudgetConfig{SoftThreshold: 0.8}}},
		Sink:      SinkConfig{Compression: "LZ4"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestDurationHelpers_ConvertSecondsAndMillisecondsFields(t *testing.T) {
	b := BackoffConfig{BaseMS: 200}
	assert.Equal(t, int64(200), b.BaseDelay().Milliseconds())

	c := CircuitConfig{RecoveryTimeSec: 30}
	assert.Equal(t, 30.0, c.RecoveryTime().Seconds())

	s := SinkConfig{FlushIntervalSec: 300}
	assert.Equal(t, 300.0, s.FlushInterval().Seconds())
}
