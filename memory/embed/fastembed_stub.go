//go:build !fastembed

package embed

import (
	"context"
	"fmt"
)

// Options configures the fastembed-backed provider. Zero value picks the
// library's default model.
type Options struct {
	Model     string
	CacheDir  string
	MaxLength int
	BatchSize int
}

func defaultFastEmbedOptions() *Options { return nil }

// NewFastEmbedder requires the "fastembed" build tag; without it, the ONNX
// runtime dependency is not linked in.
func NewFastEmbedder(ctx context.Context, opt *Options) (Embedder, error) {
	return nil, fmt.Errorf("fastembed support not included; rebuild with -tags fastembed")
}
