// Copyright 2025 Openshelf Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// Supported embedding backends.
const (
	BackendOpenAI      = "openai"
	BackendHuggingFace = "huggingface"
)

// Config holds configuration for an embedding engine instance.
// A Config is bound to exactly one device; workers never share an engine.
type Config struct {
	// Backend selects the engine implementation (BackendOpenAI or
	// BackendHuggingFace).
	Backend string

	// Host is the base URL of the embedding service for this device.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible
	// server. Unused by the HuggingFace backend.
	Host string

	// Model is the embedding model identifier.
	// Example: "nomic-embed-text", "nomic-ai/nomic-embed-text-v1.5"
	Model string

	// Token is the API token. Local OpenAI-compatible services accept any
	// value; the HuggingFace backend reads it for authentication.
	Token string

	// Dimension is the vector width committed to the store. Engine output
	// is padded with zeros or truncated to fit. Default: 768.
	Dimension int

	// Device is the integer device identifier this engine is bound to.
	Device int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend selects the engine implementation.
func WithBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithDimension sets the committed vector width.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithDevice binds the engine to a device.
func WithDevice(device int) ConfigOption {
	return func(c *Config) {
		c.Device = device
	}
}

// DefaultConfig returns a Config with defaults for a local OpenAI-compatible
// service on device 0.
func DefaultConfig() *Config {
	return &Config{
		Backend:   BackendOpenAI,
		Host:      "http://localhost:11434/v1",
		Model:     "nomic-embed-text",
		Token:     "none",
		Dimension: 768,
		Device:    0,
	}
}

// NewConfig creates a Config with default values and applies the provided
// options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ForDevice returns a copy of the config bound to the given device and host.
// The coordinator uses this to hand each worker its own engine binding.
func (c *Config) ForDevice(device int, host string) *Config {
	clone := *c
	clone.Device = device
	if host != "" {
		clone.Host = host
	}
	return &clone
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, ...) require the /v1 suffix
// on the base URL, so it is added if missing.
func (c *Config) Normalize() {
	if c.Backend == BackendOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendOpenAI:
		if c.Host == "" {
			return errors.New("ai config: Host is required")
		}
	case BackendHuggingFace:
		// Host is not used; the client talks to the Inference API.
	default:
		return errors.New("ai config: unknown Backend")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Dimension <= 0 {
		return errors.New("ai config: Dimension must be positive")
	}
	if c.Device < 0 {
		return errors.New("ai config: Device must not be negative")
	}
	return nil
}
