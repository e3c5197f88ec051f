package mq

import (
	"context"
	"fmt"

	"github.com/accountd/authserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID   string
	Data []byte
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations used for mail-job dispatch.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewFromConfig constructs the backend selected by EMAIL_BACKEND.
func NewFromConfig(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Email.Backend {
	case config.EmailBackendRabbitMQ:
		return NewRabbitMQBackend(cfg.RabbitMQ)
	case config.EmailBackendPubSub:
		return NewPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported broker backend %q", cfg.Email.Backend)
	}
}
