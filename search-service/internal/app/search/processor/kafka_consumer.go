package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"facetsearch/pkg/logger"
	"facetsearch/pkg/metrics"
	"facetsearch/search-service/internal/app/search/entity"
	"facetsearch/search-service/internal/app/search/service"

	"github.com/segmentio/kafka-go"
)

const metricsService = "search-service"

// errMalformedEvent - сообщение, которое нельзя обработать никогда; offset коммитится
var errMalformedEvent = errors.New("malformed product event")

// messageReader - часть kafka.Reader, нужная consumer'у
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProductEventConsumer читает топик product_events и снимает фасеты с удаленных
// и деактивированных товаров, чтобы они не попадали в выдачу по фильтрам
type ProductEventConsumer struct {
	reader     messageReader
	topic      string
	groupID    string
	maintainer service.AttributionMaintainer
	retryDelay time.Duration
	stopChan   chan struct{}
	doneChan   chan struct{}
}

func NewProductEventConsumer(
	brokers []string,
	topic string,
	groupID string,
	maintainer service.AttributionMaintainer,
) *ProductEventConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.FirstOffset, // пропущенное удаление оставит висячие привязки
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
		Logger:         kafka.LoggerFunc(logger.Printf),
		ErrorLogger:    kafka.LoggerFunc(logger.ErrorPrintf),
	})

	return newProductEventConsumer(reader, topic, groupID, maintainer)
}

func newProductEventConsumer(reader messageReader, topic, groupID string, maintainer service.AttributionMaintainer) *ProductEventConsumer {
	return &ProductEventConsumer{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		maintainer: maintainer,
		retryDelay: time.Second,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start запускает чтение в отдельной горутине
func (c *ProductEventConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.topic).Str("group_id", c.groupID).Msg("Starting product events consumer")
	go c.consume(ctx)
}

// Stop дожидается завершения текущего сообщения и закрывает reader
func (c *ProductEventConsumer) Stop() {
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close kafka reader")
	}
	logger.Info().Msg("Product events consumer stopped")
}

func (c *ProductEventConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		message, err := c.reader.FetchMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			metrics.RecordKafkaError(metricsService, c.topic, "fetch")
			logger.Warn().Err(err).Str("topic", c.topic).Msg("Error fetching message")
			c.pause(ctx, time.Second)
			continue
		}

		if !c.handle(ctx, message) {
			return
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			metrics.RecordKafkaError(metricsService, c.topic, "commit")
			logger.Warn().Err(err).Int64("offset", message.Offset).Msg("Error committing message")
		}
	}
}

// handle повторяет обработку того же сообщения, пока она не пройдет или событие не окажется битым.
// Следующее сообщение не читается: group reader уже сдвинул позицию, и коммит более позднего
// offset'а потерял бы неудавшееся удаление. Возвращает false при остановке consumer'а.
func (c *ProductEventConsumer) handle(ctx context.Context, message kafka.Message) bool {
	for {
		start := time.Now()
		err := c.processMessage(ctx, message)
		switch {
		case err == nil:
			metrics.RecordKafkaMessageConsumed(metricsService, c.topic, c.groupID, time.Since(start))
			return true
		case errors.Is(err, errMalformedEvent):
			metrics.RecordKafkaError(metricsService, c.topic, "decode")
			logger.Error().Err(err).Int64("offset", message.Offset).Msg("Skipping malformed product event")
			return true
		}

		metrics.RecordKafkaError(metricsService, c.topic, "process")
		logger.Error().Err(err).Int64("offset", message.Offset).Msg("Error processing product event, retrying")
		c.pause(ctx, c.retryDelay)

		if c.stopped(ctx) {
			return false
		}
	}
}

func (c *ProductEventConsumer) stopped(ctx context.Context) bool {
	select {
	case <-c.stopChan:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// processMessage обрабатывает одно событие товара
// Создание и обновление товара фасетов не касаются и пропускаются
func (c *ProductEventConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.ProductEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.ProductID <= 0 {
		return fmt.Errorf("%w: product_id is required", errMalformedEvent)
	}

	switch event.EventType {
	case entity.ProductEventDeleted, entity.ProductEventDeactivated:
	default:
		logger.Debug().Str("event_type", event.EventType).Int64("product_id", event.ProductID).Msg("Ignoring product event")
		return nil
	}

	removed, err := c.maintainer.PurgeProduct(ctx, event.ProductID)
	if err != nil {
		return fmt.Errorf("failed to purge product %d: %w", event.ProductID, err)
	}

	logger.Info().
		Str("event_type", event.EventType).
		Int64("product_id", event.ProductID).
		Int64("removed", removed).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("Product event processed")

	return nil
}

func (c *ProductEventConsumer) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-c.stopChan:
	}
}
