package mq

import (
	"context"
	"fmt"

	"github.com/code-hustle/apiserver/config"
)

// NewFromConfig constructs the broker selected by configuration, or nil when
// no backend is configured. Judge requests and results flow through this
// broker; with no broker, submissions are stored but never judged.
func NewFromConfig(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
