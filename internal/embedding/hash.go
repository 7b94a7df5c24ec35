package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hash is a deterministic bag-of-words embedder. Every lower-cased word is
// hashed into one of the dimensions and the result is L2-normalized, so texts
// sharing words get a positive cosine similarity. It needs no network access.
type Hash struct {
	dims int
}

func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Hash{dims: dims}
}

func (h *Hash) Name() string    { return ProviderHash }
func (h *Hash) Dimensions() int { return h.dims }

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return []float32{}, nil
	}

	vector := make([]float32, h.dims)
	for _, w := range words {
		sum := fnv.New32a()
		_, _ = sum.Write([]byte(w))
		vector[sum.Sum32()%uint32(h.dims)]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}

	return vector, nil
}
