package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/accountd/authserver/internal/mq"
	"github.com/rs/zerolog"
)

// QueueMailer publishes mail jobs to a broker instead of sending them
// itself. The emailworker command drains the queue.
type QueueMailer struct {
	broker mq.Backend
	queue  string
	logger zerolog.Logger
}

func NewQueueMailer(broker mq.Backend, queue string, logger zerolog.Logger) *QueueMailer {
	return &QueueMailer{broker: broker, queue: queue, logger: logger}
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}

	id, err := m.broker.Publish(ctx, m.queue, data)
	if err != nil {
		return fmt.Errorf("publish mail job: %w", err)
	}
	m.logger.Debug().Str("message_id", id).Str("subject", msg.Subject).Msg("mail job queued")
	return nil
}
