// Package bolt локальный векторный индекс на bbolt для разработки без Qdrant.
// Все точки держатся в памяти, поиск полным перебором по косинусной близости.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/jimlawless/whereami"
	"go.etcd.io/bbolt"
)

type storedPoint struct {
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

type EmbeddingRepo struct {
	db     *bbolt.DB
	bucket []byte

	mu     sync.RWMutex
	points map[domain.ProductID]storedPoint
	dim    int
}

// Open открывает (или создаёт) файл индекса.
func Open(path, bucket string) (*EmbeddingRepo, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	repo, err := NewEmbeddingRepo(db, bucket)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func NewEmbeddingRepo(db *bbolt.DB, bucket string) (*EmbeddingRepo, error) {
	repo := &EmbeddingRepo{
		db:     db,
		bucket: []byte(bucket),
		points: make(map[domain.ProductID]storedPoint),
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(repo.bucket)
		return err
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := repo.load(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return repo, nil
}

func (r *EmbeddingRepo) load() error {
	return r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(r.bucket).ForEach(func(k, v []byte) error {
			var p storedPoint
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("point %s: %w", k, err)
			}
			r.points[domain.ProductID(k)] = p
			if r.dim == 0 {
				r.dim = len(p.Vector)
			}
			return nil
		})
	})
}

// Upsert записывает точки в одной транзакции. Точка с существующим id перезаписывается.
func (r *EmbeddingRepo) Upsert(ctx context.Context, entries []domain.IndexEntry) (*domain.UpsertAck, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim := r.dim
	staged := make(map[domain.ProductID]storedPoint, len(entries))
	ids := make([]domain.ProductID, 0, len(entries))

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		for _, entry := range entries {
			if dim == 0 {
				dim = len(entry.Vector)
			}
			if len(entry.Vector) != dim {
				return fmt.Errorf("%w: point %s has %d, index has %d", e.ErrVectorDimensionMismatch, entry.ID, len(entry.Vector), dim)
			}

			p := storedPoint{Vector: entry.Vector, Metadata: entry.Metadata}
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(entry.ID), data); err != nil {
				return err
			}
			staged[entry.ID] = p
			ids = append(ids, entry.ID)
		}
		return nil
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// Память обновляется только после успешного коммита
	for id, p := range staged {
		r.points[id] = p
	}
	r.dim = dim

	return &domain.UpsertAck{Count: len(ids), IDs: ids, Status: "completed"}, nil
}

// Query возвращает topK ближайших точек. При равной близости порядок определяется id.
func (r *EmbeddingRepo) Query(ctx context.Context, q domain.IndexQuery) ([]domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.points) == 0 {
		return []domain.Match{}, nil
	}
	if len(q.Vector) != r.dim {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: query has %d, index has %d", e.ErrVectorDimensionMismatch, len(q.Vector), r.dim))
	}

	matches := make([]domain.Match, 0, len(r.points))
	for id, p := range r.points {
		m := domain.Match{ID: id, Score: cosine(q.Vector, p.Vector)}
		if q.WithMetadata {
			m.Metadata = make(domain.Metadata, len(p.Metadata))
			for k, v := range p.Metadata {
				m.Metadata[k] = v
			}
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if q.TopK > 0 && len(matches) > q.TopK {
		matches = matches[:q.TopK]
	}
	return matches, nil
}

// Len возвращает число точек в индексе.
func (r *EmbeddingRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}

func (r *EmbeddingRepo) Close() error {
	return r.db.Close()
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
