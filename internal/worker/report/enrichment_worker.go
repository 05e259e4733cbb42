package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/accessibility-reports/internal/pkg/metrics"
	"github.com/accessibility-reports/internal/worker"
)

const (
	workerName = "report-enrichment"

	maxBatchSize    = 20                     // максимум сообщений за раз
	emptyQueueSleep = 100 * time.Millisecond // пауза если очередь пуста
	errorSleep      = time.Second

	defaultBlockTimeout  = 2 * time.Second
	defaultRetryDelay    = 500 * time.Millisecond
	defaultClaimMinIdle  = time.Minute
	defaultClaimInterval = 30 * time.Second

	// claimCursorStart - начало списка pending для XAUTOCLAIM
	claimCursorStart = "0-0"
)

// ReportEnricher - обогащение одного отчёта (реализуется usecase.EnrichmentUseCase)
type ReportEnricher interface {
	EnrichReport(ctx context.Context, event *domain.ReportCreatedEvent) (*domain.ReportEnrichedEvent, error)
}

// Config - параметры воркера обогащения
type Config struct {
	ConsumerGroup string
	MaxRetries    int
	// BlockTimeout - сколько XREADGROUP ждёт новых сообщений
	BlockTimeout time.Duration
	// RetryDelay - пауза перед повтором, растёт линейно с номером попытки
	RetryDelay time.Duration
	// ClaimMinIdle - сообщение в pending дольше этого считается брошенным
	ClaimMinIdle time.Duration
	// ClaimInterval - как часто просматривать pending в поисках брошенных сообщений
	ClaimInterval time.Duration
}

// EnrichmentWorker читает stream:report:created, определяет адрес отчёта
// и публикует результат в stream:report:enriched
type EnrichmentWorker struct {
	*worker.BaseWorker
	streamRepo repository.StreamRepository
	enricher   ReportEnricher
	cfg        Config

	// состояние просмотра pending, меняется только в горутине Start
	claimCursor string
	lastClaim   time.Time
}

// NewEnrichmentWorker создает новый EnrichmentWorker
func NewEnrichmentWorker(
	streamRepo repository.StreamRepository,
	enricher ReportEnricher,
	cfg Config,
	logger *zap.Logger,
) *EnrichmentWorker {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = defaultBlockTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = defaultClaimMinIdle
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = defaultClaimInterval
	}

	return &EnrichmentWorker{
		BaseWorker:  worker.NewBaseWorker(workerName, cfg.ConsumerGroup, logger),
		streamRepo:  streamRepo,
		enricher:    enricher,
		cfg:         cfg,
		claimCursor: claimCursorStart,
	}
}

// Start запускает воркер
func (w *EnrichmentWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting report enrichment worker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.ConsumerName()),
		zap.Int("max_batch_size", maxBatchSize),
		zap.Int("max_retries", w.cfg.MaxRetries),
		zap.Duration("claim_min_idle", w.cfg.ClaimMinIdle))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamReportCreated, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		default:
			processed, err := w.processBatch(ctx)
			if err != nil {
				logger.Error("Failed to process batch", zap.Error(err))
				w.Pause(ctx, errorSleep)
				continue
			}

			if processed == 0 {
				w.Pause(ctx, emptyQueueSleep)
			}
		}
	}
}

// nextBatch отдаёт брошенные pending-сообщения, если пришло время их искать,
// иначе читает новые. Просмотр pending идёт при старте и затем раз в ClaimInterval.
func (w *EnrichmentWorker) nextBatch(ctx context.Context) ([]domain.StreamMessage, error) {
	if w.claimCursor != claimCursorStart || time.Since(w.lastClaim) >= w.cfg.ClaimInterval {
		claimed, next, err := w.streamRepo.ClaimPending(
			ctx,
			domain.StreamReportCreated,
			w.ConsumerGroup(),
			w.ConsumerName(),
			w.cfg.ClaimMinIdle,
			w.claimCursor,
			maxBatchSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim pending messages: %w", err)
		}

		w.claimCursor = next
		if next == "" || next == claimCursorStart {
			w.claimCursor = claimCursorStart
			w.lastClaim = time.Now()
		}
		if len(claimed) > 0 {
			w.Logger().Info("Reprocessing abandoned messages", zap.Int("count", len(claimed)))
			metrics.WorkerMessages.WithLabelValues(workerName, "reclaimed").Add(float64(len(claimed)))
			return claimed, nil
		}
	}

	messages, err := w.streamRepo.ConsumeBatch(
		ctx,
		domain.StreamReportCreated,
		w.ConsumerGroup(),
		w.ConsumerName(),
		maxBatchSize,
		w.cfg.BlockTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume batch: %w", err)
	}
	return messages, nil
}

// processBatch читает и обрабатывает пачку сообщений.
// Возвращает количество прочитанных сообщений.
func (w *EnrichmentWorker) processBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.nextBatch(ctx)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	logger.Debug("Processing batch", zap.Int("message_count", len(messages)))

	ackIDs := make([]string, 0, len(messages))
	for _, msg := range messages {
		event, err := parseMessage(msg)
		if err != nil {
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			metrics.WorkerMessages.WithLabelValues(workerName, "malformed").Inc()
			// битое сообщение подтверждаем, чтобы не застревало в pending
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		result, ok := w.enrich(ctx, event)
		if !ok {
			// остановка посреди повторов: остаток пачки остаётся в pending
			// и будет забран через ClaimPending после ClaimMinIdle
			break
		}

		if err := w.streamRepo.PublishToStream(ctx, domain.StreamReportEnriched, result); err != nil {
			logger.Error("Failed to publish enriched event",
				zap.String("report_id", event.ReportID.String()),
				zap.Error(err))
		}
		ackIDs = append(ackIDs, msg.ID)
	}

	if len(ackIDs) > 0 {
		if err := w.streamRepo.AckMessages(ctx, domain.StreamReportCreated, w.ConsumerGroup(), ackIDs); err != nil {
			// не критично: сообщения вернутся через ClaimPending
			logger.Error("Failed to ack messages", zap.Error(err))
		}
	}

	return len(messages), nil
}

// enrich вызывает обогащение с повторами временных ошибок.
// false - воркер остановлен до получения результата.
func (w *EnrichmentWorker) enrich(ctx context.Context, event *domain.ReportCreatedEvent) (*domain.ReportEnrichedEvent, bool) {
	logger := w.Logger().With(zap.String("report_id", event.ReportID.String()))

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		result, err := w.enricher.EnrichReport(ctx, event)
		if err == nil {
			outcome := "enriched"
			if result.Error != "" {
				outcome = "unresolved"
			}
			metrics.WorkerMessages.WithLabelValues(workerName, outcome).Inc()
			return result, true
		}

		lastErr = err
		logger.Warn("Enrichment attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", w.cfg.MaxRetries),
			zap.Error(err))

		if attempt < w.cfg.MaxRetries && !w.Pause(ctx, time.Duration(attempt)*w.cfg.RetryDelay) {
			return nil, false
		}
	}

	logger.Error("Enrichment failed, giving up", zap.Error(lastErr))
	metrics.WorkerMessages.WithLabelValues(workerName, "failed").Inc()
	return &domain.ReportEnrichedEvent{
		ReportID: event.ReportID,
		Error:    "enrichment failed: " + lastErr.Error(),
	}, true
}

// parseMessage парсит сообщение из стрима в ReportCreatedEvent
func parseMessage(msg domain.StreamMessage) (*domain.ReportCreatedEvent, error) {
	if msg.Data == "" {
		return nil, fmt.Errorf("missing or empty 'data' field")
	}

	var event domain.ReportCreatedEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.ReportID == uuid.Nil {
		return nil, fmt.Errorf("event has no report_id")
	}
	if !geo.ValidateCoordinates(event.Latitude, event.Longitude) {
		return nil, fmt.Errorf("event has invalid coordinates (%v, %v)", event.Latitude, event.Longitude)
	}

	return &event, nil
}
