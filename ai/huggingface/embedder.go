// Package huggingface provides an ai.Embedder backed by the HuggingFace
// Inference API. It covers hosted models where no local OpenAI-compatible
// server is available.
package huggingface

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hupe1980/go-huggingface"
	"github.com/openshelf/reviewloader/ai"
)

// Embedder implements ai.Embedder using the HuggingFace Inference API.
type Embedder struct {
	client *huggingface.InferenceClient
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := config.Token
	if token == "" {
		token = os.Getenv("HUGGINGFACEHUB_API_TOKEN")
	}
	if token == "" {
		token = os.Getenv("HF_TOKEN")
	}

	client := huggingface.NewInferenceClient(token)
	client.SetModel(config.Model)

	return &Embedder{
		client: client,
		model:  config.Model,
		logger: slog.Default().With("component", "huggingface-embedder", "device", config.Device),
	}, nil
}

// NewEmbedder creates an embedder for the model in config.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for a batch of texts.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts))

	req := &huggingface.FeatureExtractionRequest{
		Inputs: texts,
		Options: huggingface.Options{
			WaitForModel: huggingface.PTR(true),
			UseCache:     huggingface.PTR(true),
		},
	}

	vectors, err := e.client.FeatureExtractionWithAutomaticReduction(ctx, req)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("huggingface feature extraction for %s: %w", e.model, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("huggingface returned %d embeddings for %d texts", len(vectors), len(texts))
	}

	return vectors, nil
}
