package llm

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"strings"
)

const DefaultHashDimension = 384

// HashEmbedder derives deterministic vectors from word hashes. It needs no
// model and is meant for offline runs and tests; similar texts share words
// and therefore share vector components.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

// CreateEmbedding satisfies the langchaingo embeddings.EmbedderClient interface.
func (h *HashEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	v := make([]float32, h.dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := md5.Sum([]byte(word))
		idx := binary.LittleEndian.Uint32(sum[0:4]) % uint32(h.dimension)
		// second hash word picks the sign
		if sum[4]&1 == 0 {
			v[idx]++
		} else {
			v[idx]--
		}
	}
	return v
}
