package repository

import (
	"context"
	"time"

	"github.com/accessibility-reports/internal/domain"
)

// StreamRepository - интерфейс для работы с Redis Streams
type StreamRepository interface {
	// CreateConsumerGroup создаёт consumer group (идемпотентно)
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// ConsumeBatch читает до count сообщений, блокируясь не дольше block
	ConsumeBatch(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]domain.StreamMessage, error)

	// ClaimPending забирает consumer'у сообщения группы, простаивающие в pending дольше minIdle.
	// start - курсор сканирования ("0-0" с начала); возвращает курсор следующего вызова,
	// "0-0" означает, что список pending просмотрен целиком.
	ClaimPending(ctx context.Context, stream, group, consumer string, minIdle time.Duration, start string, count int64) ([]domain.StreamMessage, string, error)

	// AckMessage подтверждает обработку сообщения
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// AckMessages подтверждает обработку нескольких сообщений
	AckMessages(ctx context.Context, stream, group string, messageIDs []string) error

	// PublishToStream публикует сообщение в стрим
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
