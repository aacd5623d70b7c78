// Package embed provides the pluggable text-embedding client (C1): it turns
// content into an L2-normalized vector, with an LRU cache in front and a
// token-bucket limiter guarding outbound provider calls.
package embed

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/latticememory/memex/memory/model"
)

// Embedder is a pluggable text-embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds every text in one call, preserving input order.
	// Providers with a native batch endpoint use it; others fall back to
	// sequential Embed calls.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// embedBatchSequentially is the fallback EmbedBatch for providers with no
// native batch endpoint: one Embed call per text, in order.
func embedBatchSequentially(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// ErrNotSupported is returned by providers that do not offer embeddings.
var ErrNotSupported = errors.New("embeddings not supported by this provider")

// StatusError is implemented by provider errors that carry an HTTP status
// code, letting callers distinguish a rejected request (4xx — bad input,
// not retryable) from a transient failure (5xx, timeout, network — worth
// retrying).
type StatusError interface {
	error
	StatusCode() int
}

// IsInvalidInput reports whether err represents the provider rejecting the
// request itself (a 4xx response, or ErrNotSupported) rather than a
// transient failure a caller might retry.
func IsInvalidInput(err error) bool {
	if errors.Is(err, ErrNotSupported) {
		return true
	}
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode()
		return code >= 400 && code < 500
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500
	}
	return false
}

// DummyEmbedder is a deterministic, offline fallback: useful for tests and
// as the last resort when no provider is configured.
type DummyEmbedder struct{ Dimensions int }

func (d DummyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return DummyEmbedding(text, d.dims()), nil
}

func (d DummyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatchSequentially(ctx, d, texts)
}

func (d DummyEmbedder) dims() int {
	if d.Dimensions > 0 {
		return d.Dimensions
	}
	return 768
}

// DummyEmbedding hashes text's bytes into a fixed-size vector and returns it
// L2-normalized, so downstream cosine comparisons behave like a real
// provider's output.
func DummyEmbedding(text string, dims int) []float32 {
	if dims <= 0 {
		dims = 768
	}
	vec := make([]float32, dims)
	for i, ch := range []byte(text) {
		vec[i%dims] += float32(ch) / 255.0
	}
	return model.Normalize(vec)
}

// AutoEmbedder chooses a provider from environment variables:
//
//	MEMEX_EMBED_PROVIDER=openai|google|gemini|vertex|vertexai|ollama|voyage|fastembed
//	MEMEX_EMBED_MODEL=<model string>
//
// Falling back to DummyEmbedder when no provider is configured or the
// provider fails to initialize (e.g. missing API key).
func AutoEmbedder() Embedder {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("MEMEX_EMBED_PROVIDER")))
	modelName := strings.TrimSpace(os.Getenv("MEMEX_EMBED_MODEL"))

	switch provider {
	case "openai":
		if e, err := NewOpenAIEmbedder(modelName); err == nil {
			return e
		}
	case "google", "gemini", "vertex", "vertexai":
		if e, err := NewGoogleEmbedder(modelName); err == nil {
			return e
		}
	case "ollama":
		if e, err := NewOllamaEmbedder(modelName); err == nil {
			return e
		}
	case "voyage":
		if e, err := NewVoyageEmbedder(modelName); err == nil {
			return e
		}
	case "fastembed":
		if opts := defaultFastEmbedOptions(); opts != nil {
			if e, err := NewFastEmbedder(context.Background(), opts); err == nil {
				return e
			}
		}
	}

	log.Printf("embed: AutoEmbedder falling back to DummyEmbedder (provider=%q)", provider)
	return DummyEmbedder{}
}
