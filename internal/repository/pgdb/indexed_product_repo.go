package pgdb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// IndexedProductRepo ведёт реестр проиндексированных товаров
type IndexedProductRepo struct {
	pool *pgxpool.Pool
}

func NewIndexedProductRepo(pool *pgxpool.Pool) *IndexedProductRepo {
	return &IndexedProductRepo{
		pool: pool,
	}
}

// UpsertBatch записывает товары одним батчем внутри транзакции из контекста.
// Повторная индексация товара перезаписывает строку и увеличивает index_count.
func (i *IndexedProductRepo) UpsertBatch(ctx context.Context, products []usecase.IndexedProduct) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
	INSERT INTO indexed_products (product_id, schema, search_text, metadata, embedding_model, run_id, indexed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (product_id)
	DO UPDATE SET schema          = EXCLUDED.schema,
	              search_text     = EXCLUDED.search_text,
	              metadata        = EXCLUDED.metadata,
	              embedding_model = EXCLUDED.embedding_model,
	              run_id          = EXCLUDED.run_id,
	              indexed_at      = EXCLUDED.indexed_at,
	              index_count     = indexed_products.index_count + 1;
	`

	batch := &pgx.Batch{}
	for _, p := range products {
		model, err := toIndexedProductModel(p)
		if err != nil {
			return fmt.Errorf("%s: failed to encode metadata of %s: %w", whereami.WhereAmI(), p.ID, err)
		}
		batch.Queue(query,
			model.ProductID,
			model.Schema,
			model.Text,
			model.Metadata,
			model.Model,
			model.RunID,
			model.IndexedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, p := range products {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("%s: failed to upsert product %s: %w", whereami.WhereAmI(), p.ID, err)
		}
	}

	if err := results.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
