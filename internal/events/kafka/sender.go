package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dtroode/fintrack-server/internal/events"
)

var _ events.Sender = (*Sender)(nil)

// Sender writes events to kafka, one topic per event type.
type Sender struct {
	writer *kafka.Writer
}

// NewSender creates a writer for brokers. Connections are opened lazily on
// the first write, so an unreachable broker only surfaces as send errors.
func NewSender(brokers []string, writeTimeout time.Duration) *Sender {
	return &Sender{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			WriteTimeout:           writeTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (s *Sender) Send(ctx context.Context, topic string, value []byte) error {
	err := s.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write %s message: %w", topic, err)
	}
	return nil
}

func (s *Sender) Close() error {
	return s.writer.Close()
}
