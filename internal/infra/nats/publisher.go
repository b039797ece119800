package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"quizroom-service/internal/domain"
)

// Publisher forwards room events to NATS so other service instances (and the
// socket fan-out tier) observe the same per-room topics.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials NATS with an optional token.
func Connect(url, token string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("quizroom-service"),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Publish(topic string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
