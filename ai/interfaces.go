package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use, deterministic for
// a fixed model version, and must not retain references to the input batch
// after returning, so per-batch buffers stay bounded by the batch size.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice is index-aligned with the input texts.
	// Returns an error if any embedding generation fails; partial results
	// are never returned.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
