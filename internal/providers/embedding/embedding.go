package embedding

import "context"

// Provider maps text to a fixed-dimension vector. Implementations must fail
// on empty input rather than returning a zero vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
