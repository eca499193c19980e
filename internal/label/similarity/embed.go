package similarity

import (
	"hash/fnv"
	"math"
)

// DefaultEmbeddingDim is the hashed bag-of-words vector width. Wide
// enough that label vocabularies rarely collide, small enough to embed
// every corpus entry on each ranking call.
const DefaultEmbeddingDim = 256

// Embedder produces hashed bag-of-words vectors from pre-tokenized
// text. Vectors are L2-normalized so cosine similarity reduces to a
// dot product.
type Embedder struct {
	dim int
}

// NewEmbedder creates an embedder with the given vector width.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	return &Embedder{dim: dim}
}

// Dim returns the vector width.
func (e *Embedder) Dim() int { return e.dim }

// Embed hashes each token into a bucket and L2-normalizes the result.
// An empty token list yields the zero vector.
func (e *Embedder) Embed(tokens []string) []float32 {
	vec := make([]float32, e.dim)
	for _, w := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		idx := int(h.Sum32()) % e.dim
		if idx < 0 {
			idx = -idx
		}
		vec[idx] += 1.0
	}

	var sumSq float32
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq > 0 {
		invNorm := float32(1.0 / math.Sqrt(float64(sumSq)))
		for i, v := range vec {
			vec[i] = v * invNorm
		}
	}
	return vec
}

// Cosine returns the cosine similarity of two vectors. For vectors out
// of Embed this is the plain dot product.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
