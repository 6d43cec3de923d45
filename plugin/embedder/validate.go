package embedder

import (
	"fmt"
	"math"
)

// minL2Norm rejects all-zero or silently corrupted vectors from a
// misbehaving model. A healthy embedding is normalized or close to it.
const minL2Norm = 0.5

// validateVector checks a vector returned by the embedding service.
// wantDim <= 0 skips the dimension check.
func validateVector(vec []float32, wantDim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	if wantDim > 0 && len(vec) != wantDim {
		return fmt.Errorf("%w: dimension %d, want %d", ErrInvalidEmbedding, len(vec), wantDim)
	}
	var sum float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component", ErrInvalidEmbedding)
		}
		sum += f * f
	}
	if math.Sqrt(sum) < minL2Norm {
		return fmt.Errorf("%w: L2 norm %.4f below %.1f", ErrInvalidEmbedding, math.Sqrt(sum), minL2Norm)
	}
	return nil
}
