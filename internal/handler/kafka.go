package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Liangwei-zhang/cleaning-service/internal/config"
	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
	"github.com/Liangwei-zhang/cleaning-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (entities.Order, error)
}

// OrderSubmission is the message body of the order intake topic. The
// idempotency key makes broker redeliveries safe to replay.
type OrderSubmission struct {
	IdempotencyKey string  `json:"idempotency_key" validate:"required"`
	PropertyID     int64   `json:"property_id" validate:"required"`
	HostName       string  `json:"host_name"`
	HostPhone      string  `json:"host_phone"`
	CheckoutTime   string  `json:"checkout_time" validate:"required"`
	Price          float64 `json:"price" validate:"gte=0"`
}

type kafkaHandler struct {
	dlq      *kafka.Writer
	reader   *kafka.Reader
	logger   *slog.Logger
	validate *validator.Validate
	creator  OrderCreator
}

func NewKafkaHandler(logger *slog.Logger, cfg config.Kafka, creator OrderCreator) *kafkaHandler {
	return &kafkaHandler{
		logger: logger.With(slog.String("handler", "kafka")),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   cfg.Topic,
			MaxWait: cfg.ReaderMaxWait,
		}),
		dlq: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		validate: validator.New(),
		creator:  creator,
	}
}

func (h *kafkaHandler) Consume(ctx context.Context) {
	for {
		m, err := h.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			}
			h.logger.Error("failed to fetch message", slog.Any("error", err))
			continue
		}

		if err := h.handleSubmission(ctx, m); err != nil {
			h.logger.Error("failed to handle submission", slog.Any("error", err))

			if err := h.writeToDLQ(ctx, m); err != nil {
				h.logger.Error("failed to write message to DLQ", slog.Any("error", err))
				continue
			}
			submissionsDLQ.Inc()
		}

		if err := h.reader.CommitMessages(ctx, m); err != nil {
			commitErrors.Inc()
			h.logger.Error("failed to commit message", slog.Any("error", err))
		}
	}
}

func (h *kafkaHandler) handleSubmission(ctx context.Context, m kafka.Message) error {
	var sub OrderSubmission
	if err := json.Unmarshal(m.Value, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal submission: %w", err)
	}

	if err := h.validate.Struct(sub); err != nil {
		return fmt.Errorf("invalid submission: %w", err)
	}

	_, err := h.creator.CreateOrder(ctx, service.CreateOrderInput{
		PropertyID:     sub.PropertyID,
		HostName:       sub.HostName,
		HostPhone:      sub.HostPhone,
		CheckoutTime:   sub.CheckoutTime,
		Price:          sub.Price,
		IdempotencyKey: sub.IdempotencyKey,
	})
	// A replayed message is expected after rebalances, commit it quietly.
	if errors.Is(err, entities.ErrDuplicateSubmission) {
		submissionsDuplicate.Inc()
		h.logger.Debug("duplicate submission skipped", slog.String("idempotency_key", sub.IdempotencyKey))
		return nil
	}
	if err != nil {
		return err
	}

	submissionsProcessed.Inc()
	return nil
}

func (h *kafkaHandler) writeToDLQ(ctx context.Context, m kafka.Message) error {
	m.Topic = fmt.Sprintf("%s-dlq", m.Topic)
	return h.dlq.WriteMessages(ctx, m)
}

func (h *kafkaHandler) Close() error {
	if err := h.reader.Close(); err != nil {
		return err
	}
	return h.dlq.Close()
}
