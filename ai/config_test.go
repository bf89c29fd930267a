package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, 768, cfg.Dimension)
	assert.Equal(t, 0, cfg.Device)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithBackend(BackendHuggingFace),
		WithModel("nomic-ai/nomic-embed-text-v1.5"),
		WithToken("hf_test"),
		WithDimension(384),
		WithDevice(2),
	)

	assert.Equal(t, BackendHuggingFace, cfg.Backend)
	assert.Equal(t, "nomic-ai/nomic-embed-text-v1.5", cfg.Model)
	assert.Equal(t, "hf_test", cfg.Token)
	assert.Equal(t, 384, cfg.Dimension)
	assert.Equal(t, 2, cfg.Device)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "adds v1 suffix", host: "http://localhost:11434", want: "http://localhost:11434/v1"},
		{name: "trims trailing slash", host: "http://localhost:11434/", want: "http://localhost:11434/v1"},
		{name: "keeps existing suffix", host: "http://localhost:11434/v1", want: "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid default", mutate: func(c *Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: true},
		{name: "missing model", mutate: func(c *Config) { c.Model = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "tensorflow" }, wantErr: true},
		{name: "zero dimension", mutate: func(c *Config) { c.Dimension = 0 }, wantErr: true},
		{name: "negative device", mutate: func(c *Config) { c.Device = -1 }, wantErr: true},
		{name: "huggingface without host", mutate: func(c *Config) { c.Backend = BackendHuggingFace; c.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ForDevice(t *testing.T) {
	base := NewConfig(WithHost("http://gpu0:8000/v1"))

	bound := base.ForDevice(3, "http://gpu3:8000/v1")
	assert.Equal(t, 3, bound.Device)
	assert.Equal(t, "http://gpu3:8000/v1", bound.Host)

	// The base config is untouched.
	assert.Equal(t, 0, base.Device)
	assert.Equal(t, "http://gpu0:8000/v1", base.Host)

	// Empty host keeps the base endpoint.
	same := base.ForDevice(1, "")
	assert.Equal(t, "http://gpu0:8000/v1", same.Host)
	assert.Equal(t, 1, same.Device)
}
