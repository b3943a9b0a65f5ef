package usecase

import (
	"context"

	"github.com/DRSN-tech/wine-search/internal/domain"
)

type CatalogUC interface {
	Products(ctx context.Context) (*domain.Catalog, error)
	TextData(ctx context.Context) ([]domain.NormalizedRecord, error)
	Insert(ctx context.Context) (*domain.UpsertAck, error)
	Query(ctx context.Context, req *QueryReq) (*QueryRes, error)
}
