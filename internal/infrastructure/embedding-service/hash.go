package embedding_service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashService локальный детерминированный эмбеддер на хэшировании признаков (слова и пары слов).
// Годится для разработки и тестов: похожие тексты дают близкие векторы, сеть не нужна.
type HashService struct {
	dims int
}

func NewHashService(dims int) *HashService {
	if dims <= 0 {
		dims = 256
	}
	return &HashService{dims: dims}
}

func (s *HashService) ModelName() string {
	return fmt.Sprintf("hash-%d", s.dims)
}

func (s *HashService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.vector(text)
	}
	return vectors, nil
}

func (s *HashService) vector(text string) []float32 {
	vec := make([]float32, s.dims)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		s.add(vec, tok, 1)
		if i > 0 {
			s.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}

	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func (s *HashService) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := sum % uint64(s.dims)
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
