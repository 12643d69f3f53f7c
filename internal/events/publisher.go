package events

import (
	"context"
	"log"
)

type Publisher interface {
	Publish(ctx context.Context, event TaskEvent) error
	Close() error
}

// LogPublisher writes events to the process log. It is used when no broker
// is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event TaskEvent) error {
	log.Printf("event: task %s %s by %s (%s -> %s)", event.TaskID, event.Operation, event.UserID, event.PreviousState, event.State)
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
