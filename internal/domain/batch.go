package domain

import (
	"fmt"

	"github.com/DRSN-tech/wine-search/pkg/e"
)

// Batch упорядоченная пачка элементов, отправляемая во внешний сервис одним вызовом.
// Пачку нельзя переупорядочить или отфильтровать: из неё можно только извлечь тексты
// и приклеить обратно результаты в том же порядке.
type Batch[T any] struct {
	items []T
}

// NewBatch копирует элементы, чтобы вызывающий код не мог изменить порядок после создания.
func NewBatch[T any](items []T) Batch[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return Batch[T]{items: cp}
}

func (b Batch[T]) Len() int {
	return len(b.items)
}

func (b Batch[T]) Empty() bool {
	return len(b.items) == 0
}

// Texts извлекает строку из каждого элемента с сохранением порядка.
func (b Batch[T]) Texts(extract func(T) string) []string {
	texts := make([]string, len(b.items))
	for i, item := range b.items {
		texts[i] = extract(item)
	}
	return texts
}

// Aligned элемент пачки вместе с вектором, полученным для него по позиции.
type Aligned[T any] struct {
	Item   T
	Vector []float32
}

// Zip сопоставляет i-й вектор i-му элементу. Число векторов должно совпадать с размером
// пачки, векторы не могут быть пустыми и должны иметь одну размерность.
func (b Batch[T]) Zip(vectors [][]float32) ([]Aligned[T], error) {
	if len(vectors) != len(b.items) {
		return nil, fmt.Errorf("%w: got %d vectors for %d items", e.ErrVectorCountMismatch, len(vectors), len(b.items))
	}

	out := make([]Aligned[T], len(b.items))
	dim := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: position %d", e.ErrVectorEmbeddingEmpty, i)
		}
		if i == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, fmt.Errorf("%w: position %d has %d, expected %d", e.ErrVectorDimensionMismatch, i, len(vec), dim)
		}
		out[i] = Aligned[T]{Item: b.items[i], Vector: vec}
	}

	return out, nil
}
