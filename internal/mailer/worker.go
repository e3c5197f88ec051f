package mailer

import (
	"context"
	"encoding/json"

	"github.com/accountd/authserver/internal/mq"
	"github.com/rs/zerolog"
)

// Worker drains mail jobs from the broker and delivers them through a
// concrete sender, normally the SMTP mailer.
type Worker struct {
	broker mq.Backend
	queue  string
	sender Mailer
	logger zerolog.Logger
}

func NewWorker(broker mq.Backend, queue string, sender Mailer, logger zerolog.Logger) *Worker {
	return &Worker{broker: broker, queue: queue, sender: sender, logger: logger}
}

// Run consumes the queue until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("queue", w.queue).Msg("email worker started")
	return w.broker.Subscribe(ctx, w.queue, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var job Message
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// A malformed job would never deliver; ack it so it does not loop.
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed mail job")
		return nil
	}

	if err := w.sender.Send(ctx, job); err != nil {
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("mail delivery failed")
		return err
	}
	return nil
}
