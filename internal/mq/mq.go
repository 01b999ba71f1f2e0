// Package mq carries the judge traffic between the API server and the
// external judge workers: judge requests go out when a submission is
// created, judge results come back and are applied as verdicts. RabbitMQ
// and Google Cloud Pub/Sub backends share one interface so a deployment
// can pick either without touching the submission service.
package mq

import "context"

// Message is a broker-agnostic payload delivered to subscribers. For judge
// traffic, Data is a JSON-encoded JudgeRequest or JudgeResult.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack;
// the submission service returns nil for malformed results so they are
// dropped instead of redelivered forever.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker operations the submission service needs.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends a message to the named channel, returning the broker's
// message id.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe consumes messages from the named channel until ctx is
// cancelled.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
