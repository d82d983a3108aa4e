package events

import (
	"context"

	"github.com/dtroode/fintrack-server/internal/logger"
)

var _ Sender = (*LogSender)(nil)

// LogSender writes events to the log instead of a broker.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, topic string, value []byte) error {
	s.log.InfoContext(ctx, "Event", "topic", topic, "payload", string(value))
	return nil
}

func (s *LogSender) Close() error {
	return nil
}
