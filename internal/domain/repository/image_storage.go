package repository

import (
	"context"
	"io"
	"time"
)

// ImageStorage - хранилище фотографий отчётов
type ImageStorage interface {
	// Put сохраняет объект под ключом key
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get открывает объект на чтение; domain.ErrImageNotFound, если его нет
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// PresignedURL возвращает временную ссылку на объект.
	// Пустая строка - хранилище отдаёт файлы само через Get.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Delete удаляет объект
	Delete(ctx context.Context, key string) error
}
