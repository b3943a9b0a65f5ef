package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// SnapshotRepo хранит снимки каталога, из которых строился индекс, в MinIO.
type SnapshotRepo struct {
	mc  objectPutter
	cfg *cfg.MinIOCfg
}

func NewSnapshotRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *SnapshotRepo {
	return newSnapshotRepo(mc, cfg)
}

func newSnapshotRepo(mc objectPutter, cfg *cfg.MinIOCfg) *SnapshotRepo {
	return &SnapshotRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// SnapshotKey возвращает ключ объекта снимка: snapshots/<tenant>/<run>.json
func SnapshotKey(tenantID, runID string) string {
	return fmt.Sprintf("snapshots/%s/%s.json", tenantID, runID)
}

// Save загружает каталог в JSON и возвращает ключ объекта.
func (s *SnapshotRepo) Save(ctx context.Context, req *usecase.SaveSnapshotReq) (string, error) {
	data, err := json.Marshal(req.Catalog)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	info, err := s.mc.PutObject(ctx, s.cfg.BucketName, SnapshotKey(req.TenantID, req.RunID),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"tenant": req.TenantID,
				"run":    req.RunID,
			},
		})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}
