package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes each event on <subjectPrefix>.<operation>, so
// subscribers can pick single operations or all of them with a wildcard.
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event TaskEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.Subject(event))
	msg.Header.Set("Task-Id", event.TaskID)
	msg.Data = payload

	if err := p.conn.PublishMsg(msg); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Subject(event TaskEvent) string {
	return p.subjectPrefix + "." + event.Operation
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
