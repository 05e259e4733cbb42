package storage

import (
	"context"
	"fmt"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/domain/repository"
	"go.uber.org/zap"
)

// New выбирает драйвер хранилища по STORAGE_DRIVER
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (repository.ImageStorage, error) {
	switch cfg.Driver {
	case "minio":
		return NewMinIO(ctx, &cfg.MinIO, logger)
	case "local", "":
		return NewLocal(cfg.UploadsDir, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
