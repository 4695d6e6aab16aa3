// Package stream publishes monitor results to Kafka.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/monitor"
)

const writeTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config selects the brokers and topic.
type Config struct {
	Brokers []string
	Topic   string
}

// KafkaSink writes one message per result, keyed by symbol and interval so
// a symbol's results stay ordered within a partition.
type KafkaSink struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaSink builds a synchronous hash-balanced writer.
func NewKafkaSink(cfg Config, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, core.Errorf(core.ErrConfigMissing, "kafka: brokers are required")
	}
	if cfg.Topic == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "kafka: topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Zstd,
	}
	return NewKafkaSinkWithWriter(w, logger), nil
}

// NewKafkaSinkWithWriter wraps an existing writer.
func NewKafkaSinkWithWriter(w MessageWriter, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{writer: w, logger: logger}
}

func (k *KafkaSink) Name() string { return "kafka" }

// Publish writes the batch. Failed results are published too so consumers
// can see which symbols were skipped.
func (k *KafkaSink) Publish(ctx context.Context, b monitor.Batch) error {
	if len(b.Results) == 0 {
		return nil
	}

	batchID := []byte(b.ID.String())
	msgs := make([]kafka.Message, 0, len(b.Results))
	for _, r := range b.Results {
		value, err := json.Marshal(r)
		if err != nil {
			return core.Errorf(core.ErrSinkFailed, "kafka: encode %s: %w", r.Symbol, err)
		}
		status := "ok"
		if !r.OK() {
			status = "error"
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Symbol + "/" + r.Interval),
			Value: value,
			Time:  b.FinishedAt,
			Headers: []kafka.Header{
				{Key: "batch_id", Value: batchID},
				{Key: "status", Value: []byte(status)},
			},
		})
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, msgs...); err != nil {
		return core.Errorf(core.ErrSinkFailed, "kafka: write %d messages: %w", len(msgs), err)
	}
	k.logger.Debug("batch streamed", zap.Int("messages", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	if err := k.writer.Close(); err != nil {
		k.logger.Error("error closing kafka writer", zap.Error(err))
		return err
	}
	return nil
}
